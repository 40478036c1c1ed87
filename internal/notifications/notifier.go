package notifications

import (
	"context"
	"strings"

	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
	"github.com/angelmondragon/vaultmart-backend/pkg/logger"
	"github.com/google/uuid"
)

// NotifyInput describes a single in-app notification.
type NotifyInput struct {
	UserID   uuid.UUID
	Title    string
	Body     string
	Severity enums.NotificationSeverity
	Link     string
}

// Sender is the notification boundary used by settlement and payouts.
type Sender interface {
	Notify(ctx context.Context, input NotifyInput) error
}

// Notifier writes in-app notification rows.
type Notifier struct {
	repo Repository
}

// NewNotifier builds a Notifier over the notifications repository.
func NewNotifier(repo Repository) (*Notifier, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications repository required")
	}
	return &Notifier{repo: repo}, nil
}

func (n *Notifier) Notify(ctx context.Context, input NotifyInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification user id required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification title required")
	}
	severity := input.Severity
	if severity == "" {
		severity = enums.NotificationSeverityInfo
	}
	if !severity.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid notification severity")
	}
	row := &models.Notification{
		UserID:   input.UserID,
		Severity: severity,
		Title:    title,
		Message:  input.Body,
	}
	if link := strings.TrimSpace(input.Link); link != "" {
		row.Link = &link
	}
	if err := n.repo.Create(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}
	return nil
}

// NotifyQuietly delivers each notification and logs failures instead of
// returning them. Committed state never depends on notification delivery.
func NotifyQuietly(ctx context.Context, sender Sender, logg *logger.Logger, inputs ...NotifyInput) {
	if sender == nil {
		return
	}
	for _, input := range inputs {
		if err := sender.Notify(ctx, input); err != nil && logg != nil {
			logCtx := logg.WithFields(ctx, map[string]any{
				"notify_user_id": input.UserID.String(),
				"notify_title":   input.Title,
			})
			logg.Error(logCtx, "notification delivery failed", err)
		}
	}
}
