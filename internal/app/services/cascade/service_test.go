package cascade

import (
	"context"
	"testing"
	"time"

	"github.com/R3E-Network/service_layer/internal/app/domain/event"
	"github.com/R3E-Network/service_layer/internal/app/domain/profile"
	"github.com/R3E-Network/service_layer/internal/app/domain/roster"
	"github.com/R3E-Network/service_layer/internal/app/services/lottery"
	"github.com/R3E-Network/service_layer/internal/app/storage/memory"
)

// TestDeleteProfileScenarioD mirrors the cascade scenario: u5 is in
// waiting(E1), responsePending(E2), inEvent(E3), cancelled(E4). After
// deletion, u5 must be absent from every roster and its profile.
func TestDeleteProfileScenarioD(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := store.CreateProfile(ctx, profile.Profile{UserID: "u5", Role: profile.RoleEntrant}); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	e1, _ := store.CreateEvent(ctx, event.Event{Name: "E1", OrganizerID: "org", Capacity: 5, WaitingListCap: event.Unlimited, RegistrationStart: now, RegistrationEnd: now.Add(time.Hour), Status: event.StatusOpen})
	e2, _ := store.CreateEvent(ctx, event.Event{Name: "E2", OrganizerID: "org", Capacity: 5, WaitingListCap: event.Unlimited, RegistrationStart: now, RegistrationEnd: now.Add(time.Hour), Status: event.StatusOpen})
	e3, _ := store.CreateEvent(ctx, event.Event{Name: "E3", OrganizerID: "org", Capacity: 5, WaitingListCap: event.Unlimited, RegistrationStart: now, RegistrationEnd: now.Add(time.Hour), Status: event.StatusOpen})
	e4, _ := store.CreateEvent(ctx, event.Event{Name: "E4", OrganizerID: "org", Capacity: 5, WaitingListCap: event.Unlimited, RegistrationStart: now, RegistrationEnd: now.Add(time.Hour), Status: event.StatusOpen})

	engine := lottery.New(store, nil, time.Hour)

	// E1: leave u5 in the waiting roster.
	if _, err := store.AdmitToWaitingList(ctx, e1, "u5", nil, now); err != nil {
		t.Fatalf("seed e1 waiting: %v", err)
	}

	// E2: draw u5 into responsePending and leave it there.
	if _, err := store.AdmitToWaitingList(ctx, e2, "u5", nil, now); err != nil {
		t.Fatalf("seed e2 waiting: %v", err)
	}
	if _, err := engine.ExecuteDraw(ctx, e2.ID, 1, now, nil); err != nil {
		t.Fatalf("draw e2: %v", err)
	}

	// E3: draw u5 then accept into inEvent.
	if _, err := store.AdmitToWaitingList(ctx, e3, "u5", nil, now); err != nil {
		t.Fatalf("seed e3 waiting: %v", err)
	}
	if _, err := engine.ExecuteDraw(ctx, e3.ID, 1, now, nil); err != nil {
		t.Fatalf("draw e3: %v", err)
	}
	if err := engine.Accept(ctx, e3.ID, "u5", now); err != nil {
		t.Fatalf("accept e3: %v", err)
	}

	// E4: draw u5 then decline into cancelled.
	if _, err := store.AdmitToWaitingList(ctx, e4, "u5", nil, now); err != nil {
		t.Fatalf("seed e4 waiting: %v", err)
	}
	if _, err := engine.ExecuteDraw(ctx, e4.ID, 1, now, nil); err != nil {
		t.Fatalf("draw e4: %v", err)
	}
	if err := engine.Decline(ctx, e4.ID, "u5", now); err != nil {
		t.Fatalf("decline e4: %v", err)
	}

	svc := New(store, nil)
	result, err := svc.DeleteProfile(ctx, "u5")
	if err != nil {
		t.Fatalf("delete profile: %v", err)
	}
	if !result.ProfileDeleted {
		t.Fatal("expected profile deleted")
	}

	for _, kind := range []roster.Kind{roster.Waiting, roster.ResponsePending, roster.InEvent, roster.Cancelled} {
		memberships, err := store.ListMembershipsByUser(ctx, "u5", kind)
		if err != nil {
			t.Fatalf("list %s: %v", kind, err)
		}
		if len(memberships) != 0 {
			t.Fatalf("expected no %s memberships for u5, got %d", kind, len(memberships))
		}
	}

	if _, err := store.GetProfile(ctx, "u5"); err == nil {
		t.Fatal("expected profile to be absent")
	}
}

func TestDeleteProfileIsIdempotentWhenAlreadyGone(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	result, err := svc.DeleteProfile(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("delete profile: %v", err)
	}
	if !result.ProfileDeleted || result.MembershipsFound != 0 {
		t.Fatalf("expected trivially-complete result, got %+v", result)
	}
}

func TestDeleteOrganizerReapsEventsBeforeProfile(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := store.CreateProfile(ctx, profile.Profile{UserID: "organizer-1", Role: profile.RoleOrganizer}); err != nil {
		t.Fatalf("create organizer profile: %v", err)
	}
	e, err := store.CreateEvent(ctx, event.Event{
		Name: "Org Event", OrganizerID: "organizer-1", Capacity: 5, WaitingListCap: event.Unlimited,
		RegistrationStart: now, RegistrationEnd: now.Add(time.Hour), Status: event.StatusOpen,
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if _, err := store.AdmitToWaitingList(ctx, e, "entrant-1", nil, now); err != nil {
		t.Fatalf("admit: %v", err)
	}

	svc := New(store, nil)
	result, err := svc.DeleteOrganizer(ctx, "organizer-1")
	if err != nil {
		t.Fatalf("delete organizer: %v", err)
	}
	if result.EventsReaped != 1 || !result.ProfileDeleted {
		t.Fatalf("expected 1 event reaped and profile deleted, got %+v", result)
	}

	if _, err := store.GetEvent(ctx, e.ID); err == nil {
		t.Fatal("expected event to be deleted")
	}
	waiting, err := store.ListRoster(ctx, e.ID, roster.Waiting)
	if err != nil {
		t.Fatalf("list waiting: %v", err)
	}
	if len(waiting) != 0 {
		t.Fatalf("expected event rosters reaped, got %d", len(waiting))
	}
}
