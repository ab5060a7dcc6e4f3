// Package storage defines the Store Abstraction: a typed view over event,
// profile, roster, and notification-log documents, the atomic multi-record
// operations the Lottery Engine and Cascade Manager depend on, and a
// collection-group-style query for scanning a roster kind across every
// event. Concrete backends (postgres, memory) satisfy Store.
package storage

import (
	"context"
	"time"

	"github.com/R3E-Network/service_layer/internal/app/domain/event"
	"github.com/R3E-Network/service_layer/internal/app/domain/notification"
	"github.com/R3E-Network/service_layer/internal/app/domain/profile"
	"github.com/R3E-Network/service_layer/internal/app/domain/roster"
)

// DrawBatch describes the atomic multi-document write an initial or
// replacement draw commits: winners move waiting->responsePending, losers
// are dropped from waiting with a history entry, and the event status is
// updated.
type DrawBatch struct {
	EventID            string
	EventName          string
	Winners            []roster.Membership // Roster == ResponsePending, Deadline set
	LoserUserIDs       []string
	WinnerHistoryTag   profile.ParticipationStatus // SELECTED or REPLACEMENT_SELECTED
	NewEventStatus     event.Status
	SelectionTimestamp time.Time
}

// RosterDeleteOp is one entry in a bounded cascade-delete batch.
type RosterDeleteOp struct {
	EventID string
	Kind    roster.Kind
	UserID  string
}

// MaxBatchSize is the store's bounded batch size for cascade deletes,
// matching the ">=500 operations" contract in the external-interfaces
// section.
const MaxBatchSize = 500

// EventStore persists Event documents.
type EventStore interface {
	CreateEvent(ctx context.Context, e event.Event) (event.Event, error)
	UpdateEvent(ctx context.Context, e event.Event) (event.Event, error)
	GetEvent(ctx context.Context, id string) (event.Event, error)
	ListEventsByOrganizer(ctx context.Context, organizerID string) ([]event.Event, error)
	ListEvents(ctx context.Context) ([]event.Event, error)
	// ListOpenEvents returns every event with status OPEN. The registration
	// now-window predicate is applied by the caller (Event Registry), not
	// the store, so no composite index is required.
	ListOpenEvents(ctx context.Context) ([]event.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	// HasEverDrawn reports whether a draw has ever been committed for id,
	// used to forbid capacity changes after a draw.
	HasEverDrawn(ctx context.Context, id string) (bool, error)
}

// ProfileStore persists Profile documents.
type ProfileStore interface {
	CreateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error)
	UpdateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error)
	GetProfile(ctx context.Context, userID string) (profile.Profile, error)
	// ListProfiles returns the profiles matching userIDs, in a single
	// batched query. Missing IDs are simply absent from the result.
	ListProfiles(ctx context.Context, userIDs []string) ([]profile.Profile, error)
	AppendProfileHistory(ctx context.Context, userID string, entry profile.HistoryEntry) error
	DeleteProfile(ctx context.Context, userID string) error
}

// RosterStore persists roster memberships and exposes the collection-group
// queries the engine needs.
type RosterStore interface {
	GetMembership(ctx context.Context, eventID string, kind roster.Kind, userID string) (roster.Membership, error)
	ListRoster(ctx context.Context, eventID string, kind roster.Kind) ([]roster.Membership, error)
	CountRoster(ctx context.Context, eventID string, kind roster.Kind) (int, error)
	// ListMembershipsByUser is the collection-group lookup powering an
	// entrant's personal dashboard: every (event, membership) pair where
	// userID appears in roster kind, across every event.
	ListMembershipsByUser(ctx context.Context, userID string, kind roster.Kind) ([]roster.Membership, error)
	// ListExpiredResponsePending is the collection-group query the deadline
	// sweeper drives: every responsePending record with deadline <= before.
	ListExpiredResponsePending(ctx context.Context, before time.Time, limit int) ([]roster.Membership, error)

	// AdmitToWaitingList performs the waiting-list admission protocol.
	// When the event has a finite waiting-list cap, the size check and the
	// insert happen inside one transaction that re-reads the count.
	AdmitToWaitingList(ctx context.Context, e event.Event, userID string, location *roster.GeoPoint, now time.Time) (roster.Membership, error)
	// LeaveWaitingList idempotently deletes userID's waiting record.
	LeaveWaitingList(ctx context.Context, eventID, userID string) error

	// CommitDraw atomically applies a DrawBatch: winners move into
	// responsePending, losers are dropped from waiting with a profile
	// history entry, and the event status is updated.
	CommitDraw(ctx context.Context, batch DrawBatch) error
	// CommitAcceptance atomically moves userID from responsePending to
	// inEvent and appends an ENROLLED history entry.
	CommitAcceptance(ctx context.Context, eventID, userID string, location *roster.GeoPoint, now time.Time) error
	// CommitDecline atomically moves userID from responsePending to
	// cancelled(DECLINED).
	CommitDecline(ctx context.Context, eventID, userID string, now time.Time) error
	// CommitOrganizerCancel atomically moves userID from inEvent to
	// cancelled(CANCELLED_BY_ORGANIZER).
	CommitOrganizerCancel(ctx context.Context, eventID, userID string, now time.Time) error
	// CommitExpiry atomically moves userID from responsePending to
	// cancelled(EXPIRED), used by the deadline sweeper.
	CommitExpiry(ctx context.Context, eventID, userID string, now time.Time) error
	// CheckIn marks userID's inEvent membership checked in.
	CheckIn(ctx context.Context, eventID, userID string) error

	// DeleteRosterBatch commits a bounded batch of roster-membership
	// deletes atomically, used by the Cascade Manager. len(ops) must not
	// exceed MaxBatchSize.
	DeleteRosterBatch(ctx context.Context, ops []RosterDeleteOp) error
	// DeleteEventRosters removes every membership across all four rosters
	// for one event, used when reaping an organizer's events.
	DeleteEventRosters(ctx context.Context, eventID string) error
}

// NotificationStore persists the immutable notification log.
type NotificationStore interface {
	AppendNotificationLog(ctx context.Context, log notification.Log) (notification.Log, error)
	ListNotificationLogs(ctx context.Context, eventID string, limit int) ([]notification.Log, error)
}

// DrawLocker guards a single event against overlapping concurrent draws via
// a dedicated per-event lock touched transactionally, strengthening the
// status-plus-timestamp detection described for the core.
type DrawLocker interface {
	// AcquireDrawLock takes the lock for eventID, returning a release
	// function to call once the draw's batch has committed (or failed).
	// It returns a Conflict-classified error if the lock is already held.
	AcquireDrawLock(ctx context.Context, eventID string, now time.Time, ttl time.Duration) (release func(context.Context), err error)
}

// Store is the full Store Abstraction consumed by the Event Registry,
// Lottery Engine, Cascade Manager, and Notification Broadcaster.
type Store interface {
	EventStore
	ProfileStore
	RosterStore
	NotificationStore
	DrawLocker
}
