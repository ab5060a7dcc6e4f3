// Package profile defines the Profile aggregate: the device-bound user
// record consumed by every roster membership by opaque ID.
package profile

import "time"

// Role is a profile's authorization role.
type Role string

const (
	RoleEntrant   Role = "ENTRANT"
	RoleOrganizer Role = "ORGANIZER"
	RoleAdmin     Role = "ADMIN"
)

// ParticipationStatus tags a single history entry with how the user's
// participation in that event resolved.
type ParticipationStatus string

const (
	StatusSelected            ParticipationStatus = "SELECTED"
	StatusNotSelected         ParticipationStatus = "NOT_SELECTED"
	StatusReplacementSelected ParticipationStatus = "REPLACEMENT_SELECTED"
	StatusEnrolled            ParticipationStatus = "ENROLLED"
	StatusCancelled           ParticipationStatus = "CANCELLED"
)

// HistoryEntry is one append-only record of a profile's involvement with an
// event.
type HistoryEntry struct {
	EventID   string
	EventName string
	JoinedAt  time.Time
	Status    ParticipationStatus
}

// Profile is the device-bound opaque user record.
type Profile struct {
	UserID              string
	DisplayName         string
	Email               string
	Phone               string
	ImageRef            string
	NotificationEnabled bool
	Role                Role
	PushToken           string
	History             []HistoryEntry
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AppendHistory returns a copy of p with entry appended; History is
// append-only, so callers never mutate prior entries.
func (p Profile) AppendHistory(entry HistoryEntry) Profile {
	history := make([]HistoryEntry, len(p.History), len(p.History)+1)
	copy(history, p.History)
	p.History = append(history, entry)
	return p
}

// HasPushToken reports whether the profile can receive push delivery.
func (p Profile) HasPushToken() bool {
	return p.PushToken != ""
}

// RequireRole reports whether p's role satisfies the minimum required role,
// per the centralized role-check convention: ADMIN satisfies any
// requirement, ORGANIZER satisfies ORGANIZER or ENTRANT, ENTRANT satisfies
// only ENTRANT.
func RequireRole(p Profile, required Role) bool {
	rank := map[Role]int{RoleEntrant: 0, RoleOrganizer: 1, RoleAdmin: 2}
	return rank[p.Role] >= rank[required]
}
