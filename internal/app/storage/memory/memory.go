// Package memory provides a thread-safe in-memory Store implementation used
// by tests and local prototyping. It deliberately keeps the implementation
// simple; it is not meant to scale.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/service_layer/internal/app/domain/event"
	"github.com/R3E-Network/service_layer/internal/app/domain/notification"
	"github.com/R3E-Network/service_layer/internal/app/domain/profile"
	"github.com/R3E-Network/service_layer/internal/app/domain/roster"
	rosterrors "github.com/R3E-Network/service_layer/infrastructure/errors"
	"github.com/R3E-Network/service_layer/internal/app/storage"
)

type membershipKey struct {
	eventID string
	kind    roster.Kind
	userID  string
}

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu           sync.Mutex
	events       map[string]event.Event
	drawnEvents  map[string]bool
	profiles     map[string]profile.Profile
	memberships  map[membershipKey]roster.Membership
	logs         []notification.Log
	locks        map[string]time.Time // eventID -> lock expiry
}

var _ storage.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		events:      make(map[string]event.Event),
		drawnEvents: make(map[string]bool),
		profiles:    make(map[string]profile.Profile),
		memberships: make(map[membershipKey]roster.Membership),
		locks:       make(map[string]time.Time),
	}
}

// --- EventStore --------------------------------------------------------------

func (s *Store) CreateEvent(_ context.Context, e event.Event) (event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	} else if _, exists := s.events[e.ID]; exists {
		return event.Event{}, rosterrors.NewConflict("event already exists")
	}
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	s.events[e.ID] = e
	return e, nil
}

func (s *Store) UpdateEvent(_ context.Context, e event.Event) (event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.events[e.ID]
	if !ok {
		return event.Event{}, rosterrors.NewNotFound("event", e.ID)
	}
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = time.Now().UTC()
	s.events[e.ID] = e
	return e, nil
}

func (s *Store) GetEvent(_ context.Context, id string) (event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return event.Event{}, rosterrors.NewNotFound("event", id)
	}
	return e, nil
}

func (s *Store) ListEventsByOrganizer(_ context.Context, organizerID string) ([]event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []event.Event
	for _, e := range s.events {
		if e.OrganizerID == organizerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) ListEvents(_ context.Context) ([]event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]event.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) ListOpenEvents(_ context.Context) ([]event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []event.Event
	for _, e := range s.events {
		if e.Status == event.StatusOpen {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.events, id)
	delete(s.drawnEvents, id)
	return nil
}

func (s *Store) HasEverDrawn(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawnEvents[id], nil
}

// --- ProfileStore ------------------------------------------------------------

func (s *Store) CreateProfile(_ context.Context, p profile.Profile) (profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[p.UserID]; exists {
		return profile.Profile{}, rosterrors.NewConflict("profile already exists")
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	s.profiles[p.UserID] = p
	return p, nil
}

func (s *Store) UpdateProfile(_ context.Context, p profile.Profile) (profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.profiles[p.UserID]
	if !ok {
		return profile.Profile{}, rosterrors.NewNotFound("profile", p.UserID)
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.profiles[p.UserID] = p
	return p, nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return profile.Profile{}, rosterrors.NewNotFound("profile", userID)
	}
	return p, nil
}

func (s *Store) ListProfiles(_ context.Context, userIDs []string) ([]profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]profile.Profile, 0, len(userIDs))
	for _, id := range userIDs {
		if p, ok := s.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) AppendProfileHistory(_ context.Context, userID string, entry profile.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return rosterrors.NewNotFound("profile", userID)
	}
	s.profiles[userID] = p.AppendHistory(entry)
	return nil
}

func (s *Store) DeleteProfile(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.profiles, userID)
	return nil
}

// --- RosterStore -------------------------------------------------------------

func (s *Store) GetMembership(_ context.Context, eventID string, kind roster.Kind, userID string) (roster.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memberships[membershipKey{eventID, kind, userID}]
	if !ok {
		return roster.Membership{}, rosterrors.NewNotFound("membership", userID)
	}
	return m, nil
}

func (s *Store) ListRoster(_ context.Context, eventID string, kind roster.Kind) ([]roster.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []roster.Membership
	for k, m := range s.memberships {
		if k.eventID == eventID && k.kind == kind {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) CountRoster(ctx context.Context, eventID string, kind roster.Kind) (int, error) {
	rows, err := s.ListRoster(ctx, eventID, kind)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s *Store) ListMembershipsByUser(_ context.Context, userID string, kind roster.Kind) ([]roster.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []roster.Membership
	for k, m := range s.memberships {
		if k.userID == userID && k.kind == kind {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) ListExpiredResponsePending(_ context.Context, before time.Time, limit int) ([]roster.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []roster.Membership
	for k, m := range s.memberships {
		if k.kind != roster.ResponsePending {
			continue
		}
		if !m.Deadline.IsZero() && !m.Deadline.After(before) {
			out = append(out, m)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *Store) AdmitToWaitingList(_ context.Context, e event.Event, userID string, location *roster.GeoPoint, now time.Time) (roster.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := membershipKey{e.ID, roster.Waiting, userID}
	if existing, ok := s.memberships[key]; ok {
		return existing, nil // idempotent no-op
	}

	if e.HasWaitingCap() {
		count := 0
		for k := range s.memberships {
			if k.eventID == e.ID && k.kind == roster.Waiting {
				count++
			}
		}
		if count >= e.WaitingListCap {
			return roster.Membership{}, rosterrors.NewPreconditionFailed("waiting list is full")
		}
	}

	m := roster.Membership{UserID: userID, EventID: e.ID, Roster: roster.Waiting, EnteredAt: now, Location: location}
	s.memberships[key] = m
	return m, nil
}

func (s *Store) LeaveWaitingList(_ context.Context, eventID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.memberships, membershipKey{eventID, roster.Waiting, userID})
	return nil
}

func (s *Store) CommitDraw(_ context.Context, batch storage.DrawBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, winner := range batch.Winners {
		delete(s.memberships, membershipKey{batch.EventID, roster.Waiting, winner.UserID})
		delete(s.memberships, membershipKey{batch.EventID, roster.Cancelled, winner.UserID})
		winner.Roster = roster.ResponsePending
		winner.Status = roster.StatusAwaiting
		s.memberships[membershipKey{batch.EventID, roster.ResponsePending, winner.UserID}] = winner
		if p, ok := s.profiles[winner.UserID]; ok {
			s.profiles[winner.UserID] = p.AppendHistory(profile.HistoryEntry{
				EventID: batch.EventID, EventName: batch.EventName, JoinedAt: batch.SelectionTimestamp,
				Status: batch.WinnerHistoryTag,
			})
		}
	}
	for _, loserID := range batch.LoserUserIDs {
		delete(s.memberships, membershipKey{batch.EventID, roster.Waiting, loserID})
		if p, ok := s.profiles[loserID]; ok {
			s.profiles[loserID] = p.AppendHistory(profile.HistoryEntry{
				EventID: batch.EventID, EventName: batch.EventName, JoinedAt: batch.SelectionTimestamp,
				Status: profile.StatusNotSelected,
			})
		}
	}
	if e, ok := s.events[batch.EventID]; ok {
		e.Status = batch.NewEventStatus
		e.DrawLockedAt = batch.SelectionTimestamp
		e.UpdatedAt = batch.SelectionTimestamp
		s.events[batch.EventID] = e
	}
	s.drawnEvents[batch.EventID] = true
	return nil
}

func (s *Store) CommitAcceptance(_ context.Context, eventID, userID string, location *roster.GeoPoint, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pendingKey := membershipKey{eventID, roster.ResponsePending, userID}
	if _, ok := s.memberships[pendingKey]; !ok {
		return rosterrors.NewPreconditionFailed("user does not hold a responsePending record")
	}
	delete(s.memberships, pendingKey)

	s.memberships[membershipKey{eventID, roster.InEvent, userID}] = roster.Membership{
		UserID: userID, EventID: eventID, Roster: roster.InEvent, EnteredAt: now, Location: location, CheckedIn: false,
	}
	if p, ok := s.profiles[userID]; ok {
		s.profiles[userID] = p.AppendHistory(profile.HistoryEntry{EventID: eventID, JoinedAt: now, Status: profile.StatusEnrolled})
	}
	return nil
}

func (s *Store) CommitDecline(_ context.Context, eventID, userID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pendingKey := membershipKey{eventID, roster.ResponsePending, userID}
	if _, ok := s.memberships[pendingKey]; !ok {
		return rosterrors.NewPreconditionFailed("user does not hold a responsePending record")
	}
	delete(s.memberships, pendingKey)
	s.memberships[membershipKey{eventID, roster.Cancelled, userID}] = roster.Membership{
		UserID: userID, EventID: eventID, Roster: roster.Cancelled, EnteredAt: now,
		Reason: roster.ReasonDeclined, CancelledAt: now,
	}
	if p, ok := s.profiles[userID]; ok {
		s.profiles[userID] = p.AppendHistory(profile.HistoryEntry{EventID: eventID, JoinedAt: now, Status: profile.StatusCancelled})
	}
	return nil
}

func (s *Store) CommitOrganizerCancel(_ context.Context, eventID, userID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inEventKey := membershipKey{eventID, roster.InEvent, userID}
	existing, ok := s.memberships[inEventKey]
	if !ok {
		return rosterrors.NewPreconditionFailed("user is not in the event")
	}
	delete(s.memberships, inEventKey)
	s.memberships[membershipKey{eventID, roster.Cancelled, userID}] = roster.Membership{
		UserID: userID, EventID: eventID, Roster: roster.Cancelled, EnteredAt: now, Location: existing.Location,
		Reason: roster.ReasonCancelledByOrganizer, CancelledAt: now,
	}
	if p, ok := s.profiles[userID]; ok {
		s.profiles[userID] = p.AppendHistory(profile.HistoryEntry{EventID: eventID, JoinedAt: now, Status: profile.StatusCancelled})
	}
	return nil
}

func (s *Store) CommitExpiry(_ context.Context, eventID, userID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pendingKey := membershipKey{eventID, roster.ResponsePending, userID}
	if _, ok := s.memberships[pendingKey]; !ok {
		return rosterrors.NewPreconditionFailed("user does not hold a responsePending record")
	}
	delete(s.memberships, pendingKey)
	s.memberships[membershipKey{eventID, roster.Cancelled, userID}] = roster.Membership{
		UserID: userID, EventID: eventID, Roster: roster.Cancelled, EnteredAt: now,
		Reason: roster.ReasonExpired, CancelledAt: now,
	}
	return nil
}

func (s *Store) CheckIn(_ context.Context, eventID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := membershipKey{eventID, roster.InEvent, userID}
	m, ok := s.memberships[key]
	if !ok {
		return rosterrors.NewPreconditionFailed("user is not in the event")
	}
	m.CheckedIn = true
	s.memberships[key] = m
	return nil
}

func (s *Store) DeleteRosterBatch(_ context.Context, ops []storage.RosterDeleteOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ops) > storage.MaxBatchSize {
		return rosterrors.NewInternal("batch exceeds max size", nil)
	}
	for _, op := range ops {
		delete(s.memberships, membershipKey{op.EventID, op.Kind, op.UserID})
	}
	return nil
}

func (s *Store) DeleteEventRosters(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.memberships {
		if k.eventID == eventID {
			delete(s.memberships, k)
		}
	}
	return nil
}

// --- NotificationStore --------------------------------------------------------

func (s *Store) AppendNotificationLog(_ context.Context, log notification.Log) (notification.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	s.logs = append(s.logs, log)
	return log, nil
}

func (s *Store) ListNotificationLogs(_ context.Context, eventID string, limit int) ([]notification.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []notification.Log
	for _, l := range s.logs {
		if l.EventID == eventID {
			out = append(out, l)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// --- DrawLocker ----------------------------------------------------------------

func (s *Store) AcquireDrawLock(_ context.Context, eventID string, now time.Time, ttl time.Duration) (func(context.Context), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expiry, held := s.locks[eventID]; held && now.Before(expiry) {
		return nil, rosterrors.NewConflict("a draw is already in progress for this event")
	}
	s.locks[eventID] = now.Add(ttl)
	return func(context.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.locks, eventID)
	}, nil
}
