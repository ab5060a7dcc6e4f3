// Package registry implements the Event Registry: event CRUD, the
// entrant-facing listing queries, waiting-list admission, and QR payload
// publication.
package registry

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	core "github.com/R3E-Network/service_layer/internal/app/core/service"
	"github.com/R3E-Network/service_layer/internal/app/domain/event"
	"github.com/R3E-Network/service_layer/internal/app/domain/roster"
	"github.com/R3E-Network/service_layer/internal/app/storage"
	rosterrors "github.com/R3E-Network/service_layer/infrastructure/errors"
	"github.com/R3E-Network/service_layer/infrastructure/logging"
	"github.com/R3E-Network/service_layer/infrastructure/metrics"
)

// Service is the Event Registry.
type Service struct {
	store   storage.Store
	qr      *QRCodec
	log     *logging.Logger
	metrics *metrics.Metrics
}

// New constructs an Event Registry. qr may be nil when QR publication is
// not needed by the caller (e.g. a CLI that only manages events).
func New(store storage.Store, qr *QRCodec, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewFromEnv("registry")
	}
	return &Service{store: store, qr: qr, log: log}
}

// SetMetrics attaches a metrics recorder. Optional; a Service with no
// metrics attached records nothing.
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Descriptor advertises the registry's placement in the service topology.
func (s *Service) Descriptor() core.Descriptor {
	return core.Descriptor{
		Name:   "event-registry",
		Domain: "lottery",
		Layer:  core.LayerIngress,
	}.WithCapabilities("events.crud", "waitlist.admission", "qr.publish")
}

// CreateEvent assigns an ID if none was supplied and persists the event
// after validating its creation-time invariants.
func (s *Service) CreateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	e.OrganizerID = strings.TrimSpace(e.OrganizerID)
	e.Name = strings.TrimSpace(e.Name)
	if e.OrganizerID == "" {
		return event.Event{}, rosterrors.NewPreconditionFailed("organizer_id is required")
	}
	if e.Name == "" {
		return event.Event{}, rosterrors.NewPreconditionFailed("name is required")
	}
	if err := e.Validate(); err != nil {
		return event.Event{}, rosterrors.NewPreconditionFailed(err.Error())
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = event.StatusDraft
	}

	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	created, err := s.store.CreateEvent(ctx, e)
	if err != nil {
		return event.Event{}, err
	}
	s.log.WithContext(ctx).WithFields(logrus.Fields{
		"event_id":     created.ID,
		"organizer_id": created.OrganizerID,
		"status":       created.Status,
	}).Info("event created")
	return created, nil
}

// UpdateEvent applies a field-level update to an existing event. Changing
// the organizer ID is always forbidden; changing capacity is forbidden once
// any lottery draw has occurred for the event.
func (s *Service) UpdateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	existing, err := s.store.GetEvent(ctx, e.ID)
	if err != nil {
		return event.Event{}, err
	}
	if e.OrganizerID != existing.OrganizerID {
		return event.Event{}, rosterrors.NewPreconditionFailed("organizer_id cannot be changed")
	}
	if e.Capacity != existing.Capacity {
		drawn, err := s.store.HasEverDrawn(ctx, e.ID)
		if err != nil {
			return event.Event{}, err
		}
		if drawn {
			return event.Event{}, rosterrors.NewPreconditionFailed("capacity cannot change after a draw has occurred")
		}
	}
	if !existing.CanTransitionTo(e.Status) {
		return event.Event{}, rosterrors.NewPreconditionFailed("invalid status transition")
	}
	if err := e.Validate(); err != nil {
		return event.Event{}, rosterrors.NewPreconditionFailed(err.Error())
	}

	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = time.Now().UTC()

	updated, err := s.store.UpdateEvent(ctx, e)
	if err != nil {
		return event.Event{}, err
	}
	s.log.WithContext(ctx).WithFields(logrus.Fields{"event_id": updated.ID}).Info("event updated")
	return updated, nil
}

// DeleteEvent removes the event document. Reaping its roster subcollections
// is the Cascade Manager's responsibility, not this call's.
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	return s.store.DeleteEvent(ctx, id)
}

// GetEvent returns a single event by ID.
func (s *Service) GetEvent(ctx context.Context, id string) (event.Event, error) {
	return s.store.GetEvent(ctx, id)
}

// ListEventsByOrganizer returns every event owned by organizerID.
func (s *Service) ListEventsByOrganizer(ctx context.Context, organizerID string) ([]event.Event, error) {
	return s.store.ListEventsByOrganizer(ctx, organizerID)
}

// ListEvents returns every event in the store.
func (s *Service) ListEvents(ctx context.Context) ([]event.Event, error) {
	return s.store.ListEvents(ctx)
}

// ListForEntrant returns every OPEN event whose registration window
// contains now. The store query filters on status only; the window
// predicate is evaluated here so no composite index is required.
func (s *Service) ListForEntrant(ctx context.Context, now time.Time) ([]event.Event, error) {
	open, err := s.store.ListOpenEvents(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]event.Event, 0, len(open))
	for _, e := range open {
		if e.InRegistrationWindow(now) {
			out = append(out, e)
		}
	}
	return out, nil
}

// JoinWaitingList runs the waiting-list admission protocol for userID
// against eventID.
func (s *Service) JoinWaitingList(ctx context.Context, eventID, userID string, location *roster.GeoPoint, now time.Time) (roster.Membership, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return roster.Membership{}, rosterrors.NewPreconditionFailed("user_id is required")
	}

	e, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return roster.Membership{}, err
	}
	if e.Status != event.StatusOpen {
		s.recordAdmission("closed")
		return roster.Membership{}, rosterrors.NewPreconditionFailed("event is not open for registration")
	}
	if !e.InRegistrationWindow(now) {
		s.recordAdmission("closed")
		return roster.Membership{}, rosterrors.NewPreconditionFailed("registration window is closed")
	}
	if e.Capacity <= 0 {
		s.recordAdmission("closed")
		return roster.Membership{}, rosterrors.NewPreconditionFailed("event has no capacity")
	}

	m, err := s.store.AdmitToWaitingList(ctx, e, userID, location, now)
	if err != nil {
		s.log.LogRosterTransition(ctx, eventID, userID, "none", string(roster.Waiting), err)
		if rosterrors.ClassOf(err) == rosterrors.PreconditionFailed {
			s.recordAdmission("full")
		} else {
			s.recordAdmission("error")
		}
		return roster.Membership{}, err
	}
	s.log.LogRosterTransition(ctx, eventID, userID, "none", string(roster.Waiting), nil)
	s.recordAdmission("admitted")
	return m, nil
}

func (s *Service) recordAdmission(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordAdmission(outcome)
	}
}

// LeaveWaitingList idempotently removes userID's waiting-list record.
func (s *Service) LeaveWaitingList(ctx context.Context, eventID, userID string) error {
	return s.store.LeaveWaitingList(ctx, eventID, userID)
}

// ListRoster returns the populated Roster Model for one event and kind.
func (s *Service) ListRoster(ctx context.Context, eventID string, kind roster.Kind) (*roster.Set, error) {
	members, err := s.store.ListRoster(ctx, eventID, kind)
	if err != nil {
		return nil, err
	}
	return roster.LoadSet(kind, eventID, members), nil
}

// ListMembershipsByUser is the collection-group lookup powering an
// entrant's personal dashboard: every (event, membership) pair across every
// event where userID appears in roster kind.
func (s *Service) ListMembershipsByUser(ctx context.Context, userID string, kind roster.Kind) ([]roster.Membership, error) {
	return s.store.ListMembershipsByUser(ctx, userID, kind)
}

// PublishQRPayload emits the signed QR payload string for eventID, after
// confirming the event exists.
func (s *Service) PublishQRPayload(ctx context.Context, eventID string, now time.Time) (string, error) {
	if s.qr == nil {
		return "", rosterrors.NewInternal("qr codec not configured", nil)
	}
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return "", err
	}
	return s.qr.Encode(eventID, now), nil
}

// DecodeQRPayload extracts and verifies the event ID encoded in payload.
func (s *Service) DecodeQRPayload(payload string) (string, error) {
	if s.qr == nil {
		return DecodePayload(payload)
	}
	eventID, ok := s.qr.Verify(payload)
	if !ok {
		return "", ErrMalformedPayload
	}
	return eventID, nil
}
