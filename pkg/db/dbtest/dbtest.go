// Package dbtest opens an in-memory sqlite database carrying the marketplace
// schema for repository and service tests.
package dbtest

import (
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  title TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  status TEXT NOT NULL,
  category TEXT,
  industry TEXT,
  sales_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE seller_profiles (
  seller_id TEXT PRIMARY KEY,
  display_name TEXT,
  status TEXT NOT NULL,
  approved_at DATETIME,
  commission_rate TEXT,
  commission_status TEXT NOT NULL,
  payout_method TEXT,
  payout_details TEXT,
  total_sales_count INTEGER NOT NULL DEFAULT 0,
  total_earnings_cents INTEGER NOT NULL DEFAULT 0,
  last_payout_at DATETIME,
  lifetime_payout_cents INTEGER NOT NULL DEFAULT 0,
  payout_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE carts (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL UNIQUE,
  total_cents INTEGER NOT NULL DEFAULT 0,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  final_cents INTEGER NOT NULL DEFAULT 0 CHECK (final_cents >= 0),
  promocode_id TEXT,
  promo_code TEXT,
  discount_percentage TEXT,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  added_at DATETIME NOT NULL,
  UNIQUE (cart_id, product_id)
)`,
	`CREATE TABLE promocodes (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL,
  owner_type TEXT NOT NULL,
  owner_seller_id TEXT,
  discount_type TEXT NOT NULL,
  discount_value TEXT NOT NULL,
  max_discount_cents INTEGER,
  min_order_cents INTEGER NOT NULL DEFAULT 0,
  is_global INTEGER NOT NULL DEFAULT 0,
  product_ids TEXT,
  categories TEXT,
  industries TEXT,
  valid_from DATETIME,
  valid_until DATETIME,
  usage_limit INTEGER,
  usage_limit_per_user INTEGER,
  current_usage_count INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE UNIQUE INDEX ux_promocodes_code ON promocodes (lower(code))`,
	`CREATE TABLE promocode_usages (
  id TEXT PRIMARY KEY,
  promocode_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  discount_cents INTEGER NOT NULL,
  used_at DATETIME NOT NULL,
  UNIQUE (promocode_id, order_id)
)`,
	`CREATE TABLE checkout_intents (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  processor_intent_id TEXT NOT NULL UNIQUE,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL,
  snapshot TEXT NOT NULL,
  status TEXT NOT NULL,
  failure_reason TEXT,
  order_id TEXT,
  last_checked_at DATETIME,
  review_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE purchases (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  total_cents INTEGER NOT NULL,
  discount_cents INTEGER NOT NULL,
  final_cents INTEGER NOT NULL,
  currency TEXT NOT NULL,
  payment_status TEXT NOT NULL,
  order_status TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  payment_reference TEXT NOT NULL,
  transaction_id TEXT,
  promocode_id TEXT,
  promotion TEXT,
  purchased_at DATETIME NOT NULL,
  completed_at DATETIME,
  refunded_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE UNIQUE INDEX ux_purchases_payment_reference ON purchases (payment_reference)`,
	`CREATE TABLE purchase_items (
  id TEXT PRIMARY KEY,
  purchase_id TEXT NOT NULL,
  position INTEGER NOT NULL,
  product_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  title TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  access_granted INTEGER NOT NULL DEFAULT 0,
  access_granted_at DATETIME
)`,
	`CREATE TABLE platform_configs (
  id TEXT PRIMARY KEY,
  platform_fee_percentage TEXT NOT NULL,
  minimum_payout_cents INTEGER NOT NULL,
  processing_fee_cents INTEGER NOT NULL,
  hold_period_days INTEGER NOT NULL,
  maximum_payout_cents INTEGER NOT NULL,
  auto_payout INTEGER NOT NULL DEFAULT 0,
  currency TEXT NOT NULL,
  is_active INTEGER NOT NULL,
  updated_by TEXT,
  deactivated_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE UNIQUE INDEX ux_platform_configs_active ON platform_configs (is_active) WHERE is_active`,
	`CREATE TABLE payouts (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  gross_cents INTEGER NOT NULL,
  platform_fee_cents INTEGER NOT NULL,
  processing_fee_cents INTEGER NOT NULL,
  currency TEXT NOT NULL,
  method TEXT NOT NULL,
  details TEXT NOT NULL,
  status TEXT NOT NULL,
  period_start DATETIME,
  period_end DATETIME,
  order_ids TEXT,
  notes TEXT,
  failure_reason TEXT,
  rejection_reason TEXT,
  transaction_id TEXT,
  requested_at DATETIME NOT NULL,
  approved_at DATETIME,
  approved_by TEXT,
  processed_at DATETIME,
  completed_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE UNIQUE INDEX ux_payouts_seller_open ON payouts (seller_id) WHERE status IN ('pending','approved','processing','failed')`,
	`CREATE TABLE notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  severity TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  read_at DATETIME,
  created_at DATETIME
)`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
)`,
}

// Open returns a fresh in-memory database private to the calling test.
func Open(tb testing.TB) *gorm.DB {
	tb.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(tb.Name())
	conn, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			tb.Fatalf("apply schema: %v", err)
		}
	}
	tb.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}
