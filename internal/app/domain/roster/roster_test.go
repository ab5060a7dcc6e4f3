package roster

import (
	"testing"
	"time"
)

func TestAddRejectsDuplicate(t *testing.T) {
	now := time.Now()
	s := NewSet(Waiting, "e1")

	if _, added := s.Add("u1", nil, now); !added {
		t.Fatalf("expected first add to succeed")
	}
	if _, added := s.Add("u1", nil, now.Add(time.Second)); added {
		t.Fatalf("expected duplicate add to be rejected")
	}
	if s.Count() != 1 {
		t.Fatalf("expected count 1, got %d", s.Count())
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := NewSet(Waiting, "e1")
	s.Add("u1", nil, time.Now())

	if !s.Remove("u1") {
		t.Fatalf("expected first remove to report removal")
	}
	if s.Remove("u1") {
		t.Fatalf("expected second remove to be a no-op")
	}
	if s.Contains("u1") {
		t.Fatalf("expected u1 to be absent after remove")
	}
}

func TestAvailableSlots(t *testing.T) {
	s := NewSet(InEvent, "e1")
	s.Add("u1", nil, time.Now())
	s.Add("u2", nil, time.Now())

	if got := s.AvailableSlots(5); got != 3 {
		t.Fatalf("expected 3 available slots, got %d", got)
	}
	if got := s.AvailableSlots(2); got != 0 {
		t.Fatalf("expected 0 available slots at capacity, got %d", got)
	}
	if got := s.AvailableSlots(-1); got <= 0 {
		t.Fatalf("expected unlimited cap to report positive availability, got %d", got)
	}
}

func TestDeadlinePassed(t *testing.T) {
	s := NewSet(ResponsePending, "e1")
	s.Put(Membership{UserID: "u1", EventID: "e1", Roster: ResponsePending, Deadline: time.Unix(5000, 0)})

	if s.DeadlinePassed("u1", time.Unix(4999, 0)) {
		t.Fatalf("deadline should not have passed yet")
	}
	if !s.DeadlinePassed("u1", time.Unix(5001, 0)) {
		t.Fatalf("deadline should have passed")
	}
}

func TestCheckIn(t *testing.T) {
	s := NewSet(InEvent, "e1")
	s.Add("u1", nil, time.Now())
	s.Add("u2", nil, time.Now())

	if !s.CheckIn("u1") {
		t.Fatalf("expected check-in to succeed for present user")
	}
	if s.CheckIn("ghost") {
		t.Fatalf("expected check-in to fail for absent user")
	}
	if s.CheckedInCount() != 1 {
		t.Fatalf("expected checked-in count 1, got %d", s.CheckedInCount())
	}
}

func TestMembersOrderedByEnteredAt(t *testing.T) {
	s := NewSet(Waiting, "e1")
	base := time.Now()
	s.Add("later", nil, base.Add(time.Minute))
	s.Add("earlier", nil, base)

	members := s.Members()
	if len(members) != 2 || members[0].UserID != "earlier" || members[1].UserID != "later" {
		t.Fatalf("expected members ordered by EnteredAt, got %#v", members)
	}
}
