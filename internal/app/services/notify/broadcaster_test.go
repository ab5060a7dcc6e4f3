package notify

import (
	"context"
	"testing"
	"time"

	"github.com/R3E-Network/service_layer/internal/app/domain/event"
	"github.com/R3E-Network/service_layer/internal/app/domain/notification"
	"github.com/R3E-Network/service_layer/internal/app/domain/profile"
	"github.com/R3E-Network/service_layer/internal/app/domain/roster"
	"github.com/R3E-Network/service_layer/internal/app/storage"
	"github.com/R3E-Network/service_layer/internal/app/storage/memory"
)

func seedEventForBroadcast(t *testing.T, store storage.Store, now time.Time) event.Event {
	t.Helper()
	e, err := store.CreateEvent(context.Background(), event.Event{
		Name:              "Community Run",
		OrganizerID:       "org-1",
		RegistrationStart: now.Add(-time.Hour),
		RegistrationEnd:   now.Add(time.Hour),
		Capacity:          5,
		WaitingListCap:    event.Unlimited,
		Status:            event.StatusOpen,
	})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return e
}

type captureSender struct {
	received []Delivery
}

func (c *captureSender) Send(_ context.Context, batch []Delivery) (int, int, map[string]string, error) {
	c.received = append(c.received, batch...)
	return len(batch), 0, nil, nil
}

// TestBroadcastScenarioF mirrors the broadcast filtering scenario: u8 has
// notifications disabled, u9 has no push token. The log records all three
// intended recipients; only u7 is actually delivered to.
func TestBroadcastScenarioF(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()

	seed := []profile.Profile{
		{UserID: "u7", NotificationEnabled: true, PushToken: "tok-7"},
		{UserID: "u8", NotificationEnabled: false, PushToken: "tok-8"},
		{UserID: "u9", NotificationEnabled: true, PushToken: ""},
	}
	for _, p := range seed {
		if _, err := store.CreateProfile(ctx, p); err != nil {
			t.Fatalf("seed profile %s: %v", p.UserID, err)
		}
	}

	sender := &captureSender{}
	b := New(store, sender, nil)

	outcome, err := b.Broadcast(ctx, "evt-1", "Community Run", []string{"u7", "u8", "u9"}, notification.TypeOrganizerMsg, "hello", time.Time{}, now)
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if outcome.Sent != 1 || outcome.Excluded != 2 || outcome.Failed != 0 {
		t.Fatalf("expected sent=1 excluded=2 failed=0, got %+v", outcome)
	}
	if len(sender.received) != 1 || sender.received[0].UserID != "u7" {
		t.Fatalf("expected only u7 delivered, got %+v", sender.received)
	}

	logs, err := store.ListNotificationLogs(ctx, "evt-1", 0)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 1 || len(logs[0].RecipientID) != 3 {
		t.Fatalf("expected log with 3 intended recipients, got %+v", logs)
	}
}

func TestBroadcastMandatoryTypeIgnoresPreference(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := store.CreateProfile(ctx, profile.Profile{UserID: "u1", NotificationEnabled: false, PushToken: "tok-1"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sender := &captureSender{}
	b := New(store, sender, nil)
	outcome, err := b.Broadcast(ctx, "evt-1", "Community Run", []string{"u1"}, notification.TypeCancellation, "cancelled", time.Time{}, now)
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if outcome.Sent != 1 || outcome.Excluded != 0 {
		t.Fatalf("expected mandatory delivery despite disabled preference, got %+v", outcome)
	}
}

func TestBroadcastCarriesDeadlineForLotteryWin(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()
	deadline := now.Add(7 * 24 * time.Hour)

	if _, err := store.CreateProfile(ctx, profile.Profile{UserID: "u1", NotificationEnabled: true, PushToken: "tok-1"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sender := &captureSender{}
	b := New(store, sender, nil)
	if _, err := b.Broadcast(ctx, "evt-1", "Community Run", []string{"u1"}, notification.TypeLotteryWin, "you won", deadline, now); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if len(sender.received) != 1 || sender.received[0].Payload.InvitationDeadline == "" {
		t.Fatalf("expected invitation deadline set on LOTTERY_WIN payload, got %+v", sender.received)
	}
}

func TestBroadcastToRosterUsesOrganizerMessageType(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := store.CreateProfile(ctx, profile.Profile{UserID: "u1", NotificationEnabled: true, PushToken: "tok-1"}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	e := seedEventForBroadcast(t, store, now)
	if _, err := store.AdmitToWaitingList(ctx, e, "u1", nil, now); err != nil {
		t.Fatalf("admit: %v", err)
	}

	sender := &captureSender{}
	b := New(store, sender, nil)
	outcome, err := b.BroadcastToRoster(ctx, e.ID, e.Name, roster.Waiting, "reminder", now)
	if err != nil {
		t.Fatalf("broadcast to roster: %v", err)
	}
	if outcome.Sent != 1 {
		t.Fatalf("expected 1 sent, got %+v", outcome)
	}
}
