// Package cascade implements the Cascade Manager: bounded batch deletion of
// a user's roster memberships across every event, and an organizer's full
// event-and-profile reap.
package cascade

import (
	"context"

	"github.com/sirupsen/logrus"

	core "github.com/R3E-Network/service_layer/internal/app/core/service"
	"github.com/R3E-Network/service_layer/internal/app/domain/roster"
	"github.com/R3E-Network/service_layer/internal/app/storage"
	"github.com/R3E-Network/service_layer/infrastructure/logging"
	"github.com/R3E-Network/service_layer/infrastructure/metrics"
)

// allKinds is every roster kind a profile cascade must scan.
var allKinds = []roster.Kind{roster.Waiting, roster.ResponsePending, roster.InEvent, roster.Cancelled}

// Service is the Cascade Manager.
type Service struct {
	store   storage.Store
	log     *logging.Logger
	metrics *metrics.Metrics
}

// New constructs a Cascade Manager.
func New(store storage.Store, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewFromEnv("cascade")
	}
	return &Service{store: store, log: log}
}

// SetMetrics attaches a metrics recorder. Optional; a Service with no
// metrics attached records nothing.
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Descriptor advertises the cascade manager's placement in the service
// topology.
func (s *Service) Descriptor() core.Descriptor {
	return core.Descriptor{
		Name:   "cascade-manager",
		Domain: "lottery",
		Layer:  core.LayerData,
	}.WithCapabilities("profile.delete", "organizer.delete")
}

// ProfileDeletionResult reports a completed (or partially-completed)
// profile cascade.
type ProfileDeletionResult struct {
	UserID           string
	MembershipsFound int
	BatchesCommitted int
	ProfileDeleted   bool
}

// DeleteProfile removes userID from every roster across every event, then
// deletes the profile document. The roster reap proceeds in batches of at
// most storage.MaxBatchSize; each batch is idempotent, so a cascade
// interrupted between batches (cancelled ctx, process restart) can be
// retried safely — it resumes by recomputing the remaining membership set,
// not by tracking progress explicitly.
func (s *Service) DeleteProfile(ctx context.Context, userID string) (ProfileDeletionResult, error) {
	result := ProfileDeletionResult{UserID: userID}

	var ops []storage.RosterDeleteOp
	for _, kind := range allKinds {
		memberships, err := s.store.ListMembershipsByUser(ctx, userID, kind)
		if err != nil {
			return result, err
		}
		for _, m := range memberships {
			ops = append(ops, storage.RosterDeleteOp{EventID: m.EventID, Kind: kind, UserID: userID})
		}
	}
	result.MembershipsFound = len(ops)

	for len(ops) > 0 {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		batchSize := storage.MaxBatchSize
		if batchSize > len(ops) {
			batchSize = len(ops)
		}
		batch := ops[:batchSize]
		if err := s.store.DeleteRosterBatch(ctx, batch); err != nil {
			return result, err
		}
		result.BatchesCommitted++
		ops = ops[batchSize:]
	}

	if err := s.store.DeleteProfile(ctx, userID); err != nil {
		return result, err
	}
	result.ProfileDeleted = true
	if s.metrics != nil {
		s.metrics.RecordCascadeOp("profile")
	}

	s.log.WithContext(ctx).WithFields(logrus.Fields{
		"user_id":           userID,
		"memberships_found": result.MembershipsFound,
		"batches_committed": result.BatchesCommitted,
	}).Info("profile cascade completed")
	return result, nil
}

// OrganizerDeletionResult reports a completed (or partially-completed)
// organizer cascade.
type OrganizerDeletionResult struct {
	OrganizerID    string
	EventsReaped   int
	ProfileDeleted bool
}

// DeleteOrganizer reaps every event owned by organizerID — its roster
// subcollections, then the event document itself — in organizer-ID order,
// then runs profile deletion on the organizer. An event whose rosters are
// reaped but whose document remains (a failure between steps) is a
// soft-cancelled event and is safely re-deletable on retry.
func (s *Service) DeleteOrganizer(ctx context.Context, organizerID string) (OrganizerDeletionResult, error) {
	result := OrganizerDeletionResult{OrganizerID: organizerID}

	events, err := s.store.ListEventsByOrganizer(ctx, organizerID)
	if err != nil {
		return result, err
	}

	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.store.DeleteEventRosters(ctx, e.ID); err != nil {
			return result, err
		}
		if err := s.store.DeleteEvent(ctx, e.ID); err != nil {
			return result, err
		}
		result.EventsReaped++
	}

	profileResult, err := s.DeleteProfile(ctx, organizerID)
	if err != nil {
		return result, err
	}
	result.ProfileDeleted = profileResult.ProfileDeleted
	if s.metrics != nil {
		s.metrics.RecordCascadeOp("organizer")
	}

	s.log.WithContext(ctx).WithFields(logrus.Fields{
		"organizer_id":  organizerID,
		"events_reaped": result.EventsReaped,
	}).Info("organizer cascade completed")
	return result, nil
}
