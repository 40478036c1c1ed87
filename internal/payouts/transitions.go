package payouts

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/angelmondragon/vaultmart-backend/internal/notifications"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
	"github.com/angelmondragon/vaultmart-backend/pkg/money"
	"github.com/angelmondragon/vaultmart-backend/pkg/outbox"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultHoldReason = "held for review"

// BulkResult reports the outcome of one payout in a bulk operation.
type BulkResult struct {
	PayoutID uuid.UUID `json:"payout_id"`
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
}

type transition struct {
	from   []enums.PayoutStatus
	to     enums.PayoutStatus
	reason string
	// apply mutates the loaded payout and returns the columns to persist.
	apply  func(p *models.Payout, now time.Time) map[string]any
	within func(ctx context.Context, tx *gorm.DB, p models.Payout, now time.Time) error
	notice func(p models.Payout) notifications.NotifyInput
}

// Approve moves a pending payout to approved.
func (s *Service) Approve(ctx context.Context, payoutID, adminID uuid.UUID, notes *string) (*models.Payout, error) {
	return s.transition(ctx, payoutID, adminID, transition{
		from: []enums.PayoutStatus{enums.PayoutStatusPending},
		to:   enums.PayoutStatusApproved,
		apply: func(p *models.Payout, now time.Time) map[string]any {
			p.ApprovedAt = &now
			p.ApprovedBy = &adminID
			fields := map[string]any{"approved_at": now, "approved_by": adminID}
			if notes != nil {
				p.Notes = notes
				fields["notes"] = *notes
			}
			return fields
		},
		notice: approvedNotice,
	})
}

// Reject cancels a pending payout. A reason is required.
func (s *Service) Reject(ctx context.Context, payoutID, adminID uuid.UUID, reason string) (*models.Payout, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required").
			WithDetails(map[string]any{"reason": "required"})
	}
	return s.transition(ctx, payoutID, adminID, transition{
		from:   []enums.PayoutStatus{enums.PayoutStatusPending},
		to:     enums.PayoutStatusCancelled,
		reason: reason,
		apply: func(p *models.Payout, now time.Time) map[string]any {
			p.RejectionReason = &reason
			p.CancelledAt = &now
			return map[string]any{"rejection_reason": reason, "cancelled_at": now}
		},
		notice: func(p models.Payout) notifications.NotifyInput {
			return notifications.NotifyInput{
				UserID:   p.SellerID,
				Title:    "Payout rejected",
				Body:     "Your payout of " + formatAmount(p) + " was rejected: " + reason,
				Severity: enums.NotificationSeverityError,
				Link:     sellerPayoutsLink,
			}
		},
	})
}

// Hold parks a pending or approved payout in failed until it is released.
func (s *Service) Hold(ctx context.Context, payoutID, adminID uuid.UUID, reason string) (*models.Payout, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultHoldReason
	}
	return s.transition(ctx, payoutID, adminID, transition{
		from:   []enums.PayoutStatus{enums.PayoutStatusPending, enums.PayoutStatusApproved},
		to:     enums.PayoutStatusFailed,
		reason: reason,
		apply: func(p *models.Payout, now time.Time) map[string]any {
			p.FailureReason = &reason
			return map[string]any{"failure_reason": reason}
		},
		notice: func(p models.Payout) notifications.NotifyInput {
			return notifications.NotifyInput{
				UserID:   p.SellerID,
				Title:    "Payout on hold",
				Body:     "Your payout of " + formatAmount(p) + " is on hold: " + reason,
				Severity: enums.NotificationSeverityWarning,
				Link:     sellerPayoutsLink,
			}
		},
	})
}

// Release returns a held payout to pending and clears its failure reason.
func (s *Service) Release(ctx context.Context, payoutID, adminID uuid.UUID) (*models.Payout, error) {
	return s.transition(ctx, payoutID, adminID, transition{
		from: []enums.PayoutStatus{enums.PayoutStatusFailed},
		to:   enums.PayoutStatusPending,
		apply: func(p *models.Payout, now time.Time) map[string]any {
			p.FailureReason = nil
			p.ApprovedAt = nil
			p.ApprovedBy = nil
			return map[string]any{"failure_reason": nil, "approved_at": nil, "approved_by": nil}
		},
		notice: func(p models.Payout) notifications.NotifyInput {
			return notifications.NotifyInput{
				UserID:   p.SellerID,
				Title:    "Payout released",
				Body:     "Your payout of " + formatAmount(p) + " is back in the review queue.",
				Severity: enums.NotificationSeverityInfo,
				Link:     sellerPayoutsLink,
			}
		},
	})
}

// StartProcessing marks an approved payout as sent to the payout rail.
func (s *Service) StartProcessing(ctx context.Context, payoutID, adminID uuid.UUID) (*models.Payout, error) {
	return s.transition(ctx, payoutID, adminID, transition{
		from: []enums.PayoutStatus{enums.PayoutStatusApproved},
		to:   enums.PayoutStatusProcessing,
		apply: func(p *models.Payout, now time.Time) map[string]any {
			p.ProcessedAt = &now
			return map[string]any{"processed_at": now}
		},
		notice: func(p models.Payout) notifications.NotifyInput {
			return notifications.NotifyInput{
				UserID:   p.SellerID,
				Title:    "Payout processing",
				Body:     "Your payout of " + formatAmount(p) + " is being processed.",
				Severity: enums.NotificationSeverityInfo,
				Link:     sellerPayoutsLink,
			}
		},
	})
}

// Complete finishes a processing payout and updates the seller's payout
// history in the same transaction.
func (s *Service) Complete(ctx context.Context, payoutID, adminID uuid.UUID, transactionID *string) (*models.Payout, error) {
	return s.transition(ctx, payoutID, adminID, transition{
		from: []enums.PayoutStatus{enums.PayoutStatusProcessing},
		to:   enums.PayoutStatusCompleted,
		apply: func(p *models.Payout, now time.Time) map[string]any {
			p.CompletedAt = &now
			fields := map[string]any{"completed_at": now}
			if transactionID != nil && strings.TrimSpace(*transactionID) != "" {
				txID := strings.TrimSpace(*transactionID)
				p.TransactionID = &txID
				fields["transaction_id"] = txID
			}
			return fields
		},
		within: func(ctx context.Context, tx *gorm.DB, p models.Payout, now time.Time) error {
			if err := s.sellers.WithTx(tx).RecordPayout(ctx, p.SellerID, p.AmountCents, now); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payout history")
			}
			return nil
		},
		notice: func(p models.Payout) notifications.NotifyInput {
			return notifications.NotifyInput{
				UserID:   p.SellerID,
				Title:    "Payout completed",
				Body:     "Your payout of " + formatAmount(p) + " has been sent.",
				Severity: enums.NotificationSeveritySuccess,
				Link:     sellerPayoutsLink,
			}
		},
	})
}

// BulkApprove approves each payout in its own transaction and reports a
// result per id.
func (s *Service) BulkApprove(ctx context.Context, adminID uuid.UUID, payoutIDs []uuid.UUID) ([]BulkResult, error) {
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id required")
	}
	if len(payoutIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout ids required")
	}
	results := make([]BulkResult, 0, len(payoutIDs))
	for _, id := range payoutIDs {
		result := BulkResult{PayoutID: id, Success: true}
		if _, err := s.Approve(ctx, id, adminID, nil); err != nil {
			result.Success = false
			result.Error = bulkError(err)
		}
		results = append(results, result)
	}
	return results, nil
}

func bulkError(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	return err.Error()
}

func (s *Service) transition(ctx context.Context, payoutID, adminID uuid.UUID, t transition) (*models.Payout, error) {
	if payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id required")
	}

	var (
		updated models.Payout
		from    enums.PayoutStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payout, err := repo.FindByID(ctx, payoutID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
		}
		if payout == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		from = payout.Status
		if !slices.Contains(t.from, from) {
			return stateConflict(from, t.to)
		}

		now := s.now().UTC()
		fields := t.apply(payout, now)
		fields["updated_at"] = now
		ok, err := repo.UpdateStatus(ctx, payout.ID, from, t.to, fields)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payout status")
		}
		if !ok {
			return stateConflict(from, t.to)
		}
		payout.Status = t.to
		if t.within != nil {
			if err := t.within(ctx, tx, *payout, now); err != nil {
				return err
			}
		}
		actor := &outbox.ActorRef{UserID: adminID, Role: string(enums.RoleAdmin)}
		if err := s.emitTransition(ctx, tx, *payout, from, t.to, t.reason, actor); err != nil {
			return err
		}
		updated = *payout
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(string(from), string(t.to))
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"payout_id": updated.ID.String(),
			"seller_id": updated.SellerID.String(),
			"admin_id":  adminID.String(),
			"from":      from,
			"to":        t.to,
		})
		s.logg.Info(logCtx, "payout status changed")
	}
	notifications.NotifyQuietly(ctx, s.notifier, s.logg, t.notice(updated))
	return &updated, nil
}

func stateConflict(current, target enums.PayoutStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "payout status does not allow this transition").
		WithDetails(map[string]any{"current_status": current, "target_status": target})
}

func approvedNotice(p models.Payout) notifications.NotifyInput {
	return notifications.NotifyInput{
		UserID:   p.SellerID,
		Title:    "Payout approved",
		Body:     "Your payout of " + formatAmount(p) + " was approved.",
		Severity: enums.NotificationSeveritySuccess,
		Link:     sellerPayoutsLink,
	}
}

func formatAmount(p models.Payout) string {
	return money.FormatCents(p.AmountCents) + " " + p.Currency
}
