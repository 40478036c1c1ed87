package settlement

import (
	"context"

	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
	"github.com/angelmondragon/vaultmart-backend/pkg/pagination"
	"github.com/google/uuid"
)

// OrderList is a page of a buyer's orders.
type OrderList struct {
	Orders     []models.Purchase `json:"orders"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// GetOrder returns the order when buyerID owns it. A nil buyerID skips the
// ownership check (admin reads).
func (s *Service) GetOrder(ctx context.Context, orderID uuid.UUID, buyerID *uuid.UUID) (*models.Purchase, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil || (buyerID != nil && order.BuyerID != *buyerID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *Service) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	orders, next, err := s.repo.ListByBuyer(ctx, listOrdersParams{BuyerID: buyerID, Limit: params.Limit, Cursor: cursor})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	list := &OrderList{Orders: orders}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

// HasAccess reports whether the buyer holds an active access grant for productID.
func (s *Service) HasAccess(ctx context.Context, buyerID, productID uuid.UUID) (bool, error) {
	ok, err := s.repo.HasAccess(ctx, buyerID, productID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check access")
	}
	return ok, nil
}
