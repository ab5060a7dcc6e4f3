// Package lottery implements the Lottery Engine: the random-selection
// contract and every transition between the four roster sets.
package lottery

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	core "github.com/R3E-Network/service_layer/internal/app/core/service"
	"github.com/R3E-Network/service_layer/internal/app/domain/event"
	"github.com/R3E-Network/service_layer/internal/app/domain/profile"
	"github.com/R3E-Network/service_layer/internal/app/domain/roster"
	"github.com/R3E-Network/service_layer/internal/app/storage"
	rosterrors "github.com/R3E-Network/service_layer/infrastructure/errors"
	"github.com/R3E-Network/service_layer/infrastructure/logging"
	"github.com/R3E-Network/service_layer/infrastructure/metrics"
)

// DefaultResponseWindow is the response deadline granted to each selected
// entrant, overridable via configuration.
const DefaultResponseWindow = 7 * 24 * time.Hour

// maxCommitRetries bounds the retry loop for Aborted (retry-safe)
// transaction failures.
const maxCommitRetries = 3

// drawLockTTL is how long the dedicated per-event draw lock is held before
// it is considered abandoned.
const drawLockTTL = 60 * time.Second

// Service is the Lottery Engine.
type Service struct {
	store          storage.Store
	log            *logging.Logger
	responseWindow time.Duration
	metrics        *metrics.Metrics
}

// New constructs a Lottery Engine. A non-positive responseWindow falls back
// to DefaultResponseWindow.
func New(store storage.Store, log *logging.Logger, responseWindow time.Duration) *Service {
	if log == nil {
		log = logging.NewFromEnv("lottery")
	}
	if responseWindow <= 0 {
		responseWindow = DefaultResponseWindow
	}
	return &Service{store: store, log: log, responseWindow: responseWindow}
}

// SetMetrics attaches a metrics recorder. Optional; a Service with no
// metrics attached records nothing.
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Descriptor advertises the engine's placement in the service topology.
func (s *Service) Descriptor() core.Descriptor {
	return core.Descriptor{
		Name:   "lottery-engine",
		Domain: "lottery",
		Layer:  core.LayerEngine,
	}.WithCapabilities("draw.initial", "draw.replacement", "roster.transitions", "sweeper.deadline")
}

// DrawOutcome reports the result of an initial or replacement draw.
type DrawOutcome struct {
	Winners  []string
	Losers   []string
	Deadline time.Time
}

// ExecuteDraw runs the initial draw for eventID, selecting numberOfWinners
// from the waiting roster.
func (s *Service) ExecuteDraw(ctx context.Context, eventID string, numberOfWinners int, now time.Time, seed *int64) (DrawOutcome, error) {
	e, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return DrawOutcome{}, err
	}
	if e.Status != event.StatusOpen && e.Status != event.StatusClosed {
		return DrawOutcome{}, rosterrors.NewPreconditionFailed("event is cancelled or completed")
	}
	if numberOfWinners <= 0 {
		return DrawOutcome{}, nil
	}

	release, err := s.store.AcquireDrawLock(ctx, eventID, now, drawLockTTL)
	if err != nil {
		return DrawOutcome{}, err
	}
	defer release(ctx)

	waiting, err := s.store.ListRoster(ctx, eventID, roster.Waiting)
	if err != nil {
		return DrawOutcome{}, err
	}
	waitingSet := roster.LoadSet(roster.Waiting, eventID, waiting)

	return s.draw(ctx, e, waitingSet, numberOfWinners, profile.StatusSelected, notificationSourceInitial, now, seed)
}

// ExecuteReplacementDraw runs a replacement draw for eventID. Eligibility is
// the union of the waiting roster and the cancelled-by-decline roster; it
// explicitly excludes responsePending, inEvent, and cancelled-by-organizer.
func (s *Service) ExecuteReplacementDraw(ctx context.Context, eventID string, numberOfReplacements int, now time.Time, seed *int64) (DrawOutcome, error) {
	e, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return DrawOutcome{}, err
	}
	if e.Status != event.StatusOpen && e.Status != event.StatusClosed {
		return DrawOutcome{}, rosterrors.NewPreconditionFailed("event is cancelled or completed")
	}
	if numberOfReplacements <= 0 {
		return DrawOutcome{}, nil
	}

	release, err := s.store.AcquireDrawLock(ctx, eventID, now, drawLockTTL)
	if err != nil {
		return DrawOutcome{}, err
	}
	defer release(ctx)

	eligible, err := s.replacementEligibleSet(ctx, eventID)
	if err != nil {
		return DrawOutcome{}, err
	}

	outcome, err := s.draw(ctx, e, eligible, numberOfReplacements, profile.StatusReplacementSelected, notificationSourceReplacement, now, seed)
	return outcome, err
}

// replacementEligibleSet loads the waiting roster and the declined subset of
// the cancelled roster into one Set, keyed by user ID; selection sorts those
// IDs, so the order stays deterministic under a fixed seed.
func (s *Service) replacementEligibleSet(ctx context.Context, eventID string) (*roster.Set, error) {
	waiting, err := s.store.ListRoster(ctx, eventID, roster.Waiting)
	if err != nil {
		return nil, err
	}
	cancelled, err := s.store.ListRoster(ctx, eventID, roster.Cancelled)
	if err != nil {
		return nil, err
	}

	eligible := roster.NewSet(roster.Waiting, eventID)
	for _, m := range waiting {
		eligible.Put(m)
	}
	for _, m := range cancelled {
		if m.Reason == roster.ReasonDeclined {
			eligible.Put(m)
		}
	}
	return eligible, nil
}

// draw is the shared selection-and-commit path for both initial and
// replacement draws.
func (s *Service) draw(ctx context.Context, e event.Event, candidateSet *roster.Set, k int, historyTag profile.ParticipationStatus, source notificationSource, now time.Time, seed *int64) (DrawOutcome, error) {
	candidates := candidateSet.UserIDs()
	winnerIDs, loserIDs := Select(candidates, k, seed)

	deadline := now.Add(s.responseWindow)
	winners := make([]roster.Membership, 0, len(winnerIDs))
	for _, uid := range winnerIDs {
		prior, _ := candidateSet.Get(uid)
		winners = append(winners, roster.Membership{
			UserID:    uid,
			EventID:   e.ID,
			Roster:    roster.ResponsePending,
			EnteredAt: now,
			Location:  prior.Location,
			Status:    roster.StatusAwaiting,
			Deadline:  deadline,
		})
	}

	newStatus := e.Status
	if source == notificationSourceInitial {
		newStatus = event.StatusClosed
	}

	batch := storage.DrawBatch{
		EventID:            e.ID,
		EventName:          e.Name,
		Winners:            winners,
		LoserUserIDs:       loserIDs,
		WinnerHistoryTag:   historyTag,
		NewEventStatus:     newStatus,
		SelectionTimestamp: now,
	}

	kind := "initial"
	if source == notificationSourceReplacement {
		kind = "replacement"
	}
	complete := core.StartObservation(ctx, core.ObservationHooks{
		OnComplete: func(_ context.Context, _ map[string]string, err error, duration time.Duration) {
			if s.metrics == nil {
				return
			}
			status := "success"
			if err != nil {
				status = "failure"
			}
			s.metrics.RecordDraw(kind, status, duration)
		},
	}, map[string]string{"event_id": e.ID, "kind": kind})
	err := s.commitDrawWithRetry(ctx, batch)
	complete(err)
	if err != nil {
		s.log.LogDraw(ctx, e.ID, len(winnerIDs), len(loserIDs), source == notificationSourceReplacement, err)
		return DrawOutcome{}, err
	}
	s.log.LogDraw(ctx, e.ID, len(winnerIDs), len(loserIDs), source == notificationSourceReplacement, nil)

	return DrawOutcome{Winners: winnerIDs, Losers: loserIDs, Deadline: deadline}, nil
}

type notificationSource int

const (
	notificationSourceInitial notificationSource = iota
	notificationSourceReplacement
)

// commitDrawWithRetry retries a transient Aborted failure up to
// maxCommitRetries times before surfacing it.
func (s *Service) commitDrawWithRetry(ctx context.Context, batch storage.DrawBatch) error {
	policy := core.RetryPolicy{Attempts: maxCommitRetries + 1}
	var last error
	_ = core.Retry(ctx, policy, func() error {
		last = s.store.CommitDraw(ctx, batch)
		if last == nil || rosterrors.ClassOf(last) != rosterrors.Aborted {
			// Non-retryable outcome (success or a non-Aborted failure): tell
			// Retry to stop by reporting no error, and surface the real
			// result through last.
			return nil
		}
		return last
	})
	return last
}

// Accept moves userID from responsePending to inEvent.
func (s *Service) Accept(ctx context.Context, eventID, userID string, now time.Time) error {
	m, err := s.store.GetMembership(ctx, eventID, roster.ResponsePending, userID)
	if err != nil {
		s.log.LogRosterTransition(ctx, eventID, userID, string(roster.ResponsePending), string(roster.InEvent), err)
		return err
	}
	if !m.Deadline.IsZero() && now.After(m.Deadline) {
		err := rosterrors.NewPreconditionFailed("response deadline has passed")
		s.log.LogRosterTransition(ctx, eventID, userID, string(roster.ResponsePending), string(roster.InEvent), err)
		return err
	}

	e, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	inEventCount, err := s.store.CountRoster(ctx, eventID, roster.InEvent)
	if err != nil {
		return err
	}
	if inEventCount >= e.Capacity {
		err := rosterrors.NewPreconditionFailed("event is at capacity")
		s.log.LogRosterTransition(ctx, eventID, userID, string(roster.ResponsePending), string(roster.InEvent), err)
		return err
	}

	if err := s.store.CommitAcceptance(ctx, eventID, userID, m.Location, now); err != nil {
		s.log.LogRosterTransition(ctx, eventID, userID, string(roster.ResponsePending), string(roster.InEvent), err)
		return err
	}
	s.log.LogRosterTransition(ctx, eventID, userID, string(roster.ResponsePending), string(roster.InEvent), nil)

	s.maybeCompleteEvent(ctx, e, inEventCount+1, now)
	return nil
}

// maybeCompleteEvent transitions e to COMPLETED when its in-event roster has
// reached capacity and its last occurrence has already passed. Failure here
// is logged, not surfaced: the acceptance itself already committed.
func (s *Service) maybeCompleteEvent(ctx context.Context, e event.Event, inEventCount int, now time.Time) {
	if inEventCount < e.Capacity || !now.After(e.LastOccurrence()) {
		return
	}
	e.Status = event.StatusCompleted
	e.UpdatedAt = now
	if _, err := s.store.UpdateEvent(ctx, e); err != nil {
		s.log.WithContext(ctx).WithFields(logrus.Fields{"event_id": e.ID}).WithError(err).Warn("event completion transition failed")
	}
}

// Decline moves userID from responsePending to cancelled(DECLINED). No
// replacement draw is triggered automatically; organizer policy governs
// that.
func (s *Service) Decline(ctx context.Context, eventID, userID string, now time.Time) error {
	err := s.store.CommitDecline(ctx, eventID, userID, now)
	s.log.LogRosterTransition(ctx, eventID, userID, string(roster.ResponsePending), string(roster.Cancelled), err)
	return err
}

// OrganizerCancel moves userID from inEvent to cancelled(CANCELLED_BY_ORGANIZER).
func (s *Service) OrganizerCancel(ctx context.Context, eventID, userID string, now time.Time) error {
	err := s.store.CommitOrganizerCancel(ctx, eventID, userID, now)
	s.log.LogRosterTransition(ctx, eventID, userID, string(roster.InEvent), string(roster.Cancelled), err)
	return err
}

// CandidatesAvailableForReplacement exposes the replacement-draw eligible
// set for organizer tooling, without running a draw.
func (s *Service) CandidatesAvailableForReplacement(ctx context.Context, eventID string) ([]string, error) {
	eligible, err := s.replacementEligibleSet(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return eligible.UserIDs(), nil
}

// RunDeadlineSweep transitions every responsePending record whose deadline
// has passed as of now into cancelled(EXPIRED), honoring cooperative
// cancellation between records. It returns the number of records swept.
func (s *Service) RunDeadlineSweep(ctx context.Context, now time.Time, batchLimit int) (int, error) {
	if batchLimit <= 0 {
		batchLimit = storage.MaxBatchSize
	}
	expired, err := s.store.ListExpiredResponsePending(ctx, now, batchLimit)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordSweeperRun("failure", 0)
		}
		return 0, err
	}

	swept := 0
	for _, m := range expired {
		if ctx.Err() != nil {
			if s.metrics != nil {
				s.metrics.RecordSweeperRun("failure", swept)
			}
			return swept, ctx.Err()
		}
		if err := s.store.CommitExpiry(ctx, m.EventID, m.UserID, now); err != nil {
			s.log.LogRosterTransition(ctx, m.EventID, m.UserID, string(roster.ResponsePending), string(roster.Cancelled), err)
			continue
		}
		s.log.LogRosterTransition(ctx, m.EventID, m.UserID, string(roster.ResponsePending), string(roster.Cancelled), nil)
		swept++
	}
	if s.metrics != nil {
		s.metrics.RecordSweeperRun("success", swept)
	}
	return swept, nil
}
