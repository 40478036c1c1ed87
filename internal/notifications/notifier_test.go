package notifications

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
	"github.com/angelmondragon/vaultmart-backend/pkg/logger"
	"github.com/google/uuid"
)

func TestNotifierDefaultsSeverityAndLink(t *testing.T) {
	var stored *models.Notification
	repo := &fakeRepository{createFn: func(ctx context.Context, n *models.Notification) error {
		stored = n
		return nil
	}}
	notifier, err := NewNotifier(repo)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	userID := uuid.New()
	if err := notifier.Notify(context.Background(), NotifyInput{UserID: userID, Title: " Order complete ", Body: "thanks"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if stored == nil || stored.UserID != userID {
		t.Fatalf("expected notification persisted for user")
	}
	if stored.Severity != enums.NotificationSeverityInfo {
		t.Fatalf("expected default info severity, got %s", stored.Severity)
	}
	if stored.Title != "Order complete" {
		t.Fatalf("expected trimmed title, got %q", stored.Title)
	}
	if stored.Link != nil {
		t.Fatalf("expected nil link")
	}
}

func TestNotifierRejectsInvalidInput(t *testing.T) {
	notifier, _ := NewNotifier(&fakeRepository{})
	cases := []NotifyInput{
		{Title: "missing user"},
		{UserID: uuid.New()},
		{UserID: uuid.New(), Title: "x", Severity: "loud"},
	}
	for _, input := range cases {
		err := notifier.Notify(context.Background(), input)
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for %+v, got %v", input, err)
		}
	}
}

func TestNotifyQuietlySwallowsFailures(t *testing.T) {
	calls := 0
	repo := &fakeRepository{createFn: func(ctx context.Context, n *models.Notification) error {
		calls++
		if calls == 1 {
			return errors.New("db down")
		}
		return nil
	}}
	notifier, _ := NewNotifier(repo)
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})

	NotifyQuietly(context.Background(), notifier, logg,
		NotifyInput{UserID: uuid.New(), Title: "first"},
		NotifyInput{UserID: uuid.New(), Title: "second"},
	)

	if calls != 2 {
		t.Fatalf("expected both notifications attempted, got %d", calls)
	}
	if !strings.Contains(buf.String(), "notification delivery failed") {
		t.Fatalf("expected failure to be logged, got %s", buf.String())
	}
}
