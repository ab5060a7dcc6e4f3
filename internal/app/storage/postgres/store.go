// Package postgres implements the Store Abstraction on top of raw
// database/sql and lib/pq, following the same query idiom used throughout
// the service's other storage backends: explicit CRUD statements, a shared
// rowScanner interface, and toNullString/toNullTime helpers for optional
// columns.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	rosterrors "github.com/R3E-Network/service_layer/infrastructure/errors"
	"github.com/R3E-Network/service_layer/internal/app/domain/event"
	"github.com/R3E-Network/service_layer/internal/app/domain/notification"
	"github.com/R3E-Network/service_layer/internal/app/domain/profile"
	"github.com/R3E-Network/service_layer/internal/app/domain/roster"
	"github.com/R3E-Network/service_layer/internal/app/storage"
)

// Store implements storage.Store backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func toNullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func toNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNullTime(nt sql.NullTime) time.Time {
	if !nt.Valid {
		return time.Time{}
	}
	return nt.Time.UTC()
}

// isUniqueViolation reports whether err is a postgres unique_violation.
func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23505"
}

// --- EventStore --------------------------------------------------------------

func (s *Store) CreateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now

	occJSON, err := json.Marshal(e.Occurrences)
	if err != nil {
		return event.Event{}, rosterrors.NewInternal("failed to marshal occurrences", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (
			id, name, description, organizer_id, occurrences, location,
			registration_start, registration_end, capacity, waiting_list_cap,
			geolocation_required, poster_ref, qr_payload_id, event_type, status,
			draw_locked_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`, e.ID, e.Name, e.Description, e.OrganizerID, occJSON, e.Location,
		e.RegistrationStart, e.RegistrationEnd, e.Capacity, e.WaitingListCap,
		e.GeolocationRequired, toNullString(e.PosterRef), toNullString(e.QRPayloadID), e.EventType, string(e.Status),
		toNullTime(e.DrawLockedAt), e.CreatedAt, e.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return event.Event{}, rosterrors.NewConflict("event already exists")
		}
		return event.Event{}, rosterrors.NewInternal("failed to create event", err)
	}
	return e, nil
}

func (s *Store) UpdateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	existing, err := s.GetEvent(ctx, e.ID)
	if err != nil {
		return event.Event{}, err
	}
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = time.Now().UTC()

	occJSON, err := json.Marshal(e.Occurrences)
	if err != nil {
		return event.Event{}, rosterrors.NewInternal("failed to marshal occurrences", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE events SET
			name = $2, description = $3, occurrences = $4, location = $5,
			registration_start = $6, registration_end = $7, capacity = $8,
			waiting_list_cap = $9, geolocation_required = $10, poster_ref = $11,
			qr_payload_id = $12, event_type = $13, status = $14, draw_locked_at = $15,
			updated_at = $16
		WHERE id = $1
	`, e.ID, e.Name, e.Description, occJSON, e.Location,
		e.RegistrationStart, e.RegistrationEnd, e.Capacity, e.WaitingListCap,
		e.GeolocationRequired, toNullString(e.PosterRef), toNullString(e.QRPayloadID), e.EventType, string(e.Status),
		toNullTime(e.DrawLockedAt), e.UpdatedAt)
	if err != nil {
		return event.Event{}, rosterrors.NewInternal("failed to update event", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return event.Event{}, rosterrors.NewNotFound("event", e.ID)
	}
	return e, nil
}

func scanEvent(scanner rowScanner) (event.Event, error) {
	var (
		e         event.Event
		occRaw    []byte
		poster    sql.NullString
		qrPayload sql.NullString
		status    string
		lockedAt  sql.NullTime
	)
	if err := scanner.Scan(
		&e.ID, &e.Name, &e.Description, &e.OrganizerID, &occRaw, &e.Location,
		&e.RegistrationStart, &e.RegistrationEnd, &e.Capacity, &e.WaitingListCap,
		&e.GeolocationRequired, &poster, &qrPayload, &e.EventType, &status,
		&lockedAt, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return event.Event{}, err
	}
	if len(occRaw) > 0 {
		_ = json.Unmarshal(occRaw, &e.Occurrences)
	}
	e.PosterRef = poster.String
	e.QRPayloadID = qrPayload.String
	e.Status = event.Status(status)
	e.DrawLockedAt = fromNullTime(lockedAt)
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}

const eventColumns = `
	id, name, description, organizer_id, occurrences, location,
	registration_start, registration_end, capacity, waiting_list_cap,
	geolocation_required, poster_ref, qr_payload_id, event_type, status,
	draw_locked_at, created_at, updated_at
`

func (s *Store) GetEvent(ctx context.Context, id string) (event.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return event.Event{}, rosterrors.NewNotFound("event", id)
		}
		return event.Event{}, rosterrors.NewInternal("failed to get event", err)
	}
	return e, nil
}

func (s *Store) ListEventsByOrganizer(ctx context.Context, organizerID string) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events WHERE organizer_id = $1 ORDER BY created_at`, organizerID)
	if err != nil {
		return nil, rosterrors.NewInternal("failed to list events", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) ListEvents(ctx context.Context) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY created_at`)
	if err != nil {
		return nil, rosterrors.NewInternal("failed to list events", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) ListOpenEvents(ctx context.Context) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events WHERE status = $1 ORDER BY registration_start`, string(event.StatusOpen))
	if err != nil {
		return nil, rosterrors.NewInternal("failed to list open events", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]event.Event, error) {
	var result []event.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, rosterrors.NewInternal("failed to scan event", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
		return rosterrors.NewInternal("failed to delete event", err)
	}
	return nil
}

func (s *Store) HasEverDrawn(ctx context.Context, id string) (bool, error) {
	var drawn bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE id = $1 AND draw_locked_at IS NOT NULL)`, id).Scan(&drawn)
	if err != nil {
		return false, rosterrors.NewInternal("failed to check draw history", err)
	}
	return drawn, nil
}

// --- ProfileStore ------------------------------------------------------------

const profileColumns = `
	user_id, display_name, email, phone, image_ref, notification_enabled,
	role, push_token, created_at, updated_at
`

func scanProfile(scanner rowScanner) (profile.Profile, error) {
	var (
		p         profile.Profile
		role      string
		pushToken sql.NullString
	)
	if err := scanner.Scan(
		&p.UserID, &p.DisplayName, &p.Email, &p.Phone, &p.ImageRef, &p.NotificationEnabled,
		&role, &pushToken, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return profile.Profile{}, err
	}
	p.Role = profile.Role(role)
	p.PushToken = pushToken.String
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func (s *Store) CreateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, p.UserID, p.DisplayName, p.Email, p.Phone, p.ImageRef, p.NotificationEnabled,
		string(p.Role), toNullString(p.PushToken), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return profile.Profile{}, rosterrors.NewConflict("profile already exists")
		}
		return profile.Profile{}, rosterrors.NewInternal("failed to create profile", err)
	}
	if err := s.loadHistory(ctx, &p); err != nil {
		return profile.Profile{}, err
	}
	return p, nil
}

func (s *Store) UpdateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	existing, err := s.GetProfile(ctx, p.UserID)
	if err != nil {
		return profile.Profile{}, err
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET
			display_name = $2, email = $3, phone = $4, image_ref = $5,
			notification_enabled = $6, role = $7, push_token = $8, updated_at = $9
		WHERE user_id = $1
	`, p.UserID, p.DisplayName, p.Email, p.Phone, p.ImageRef, p.NotificationEnabled,
		string(p.Role), toNullString(p.PushToken), p.UpdatedAt)
	if err != nil {
		return profile.Profile{}, rosterrors.NewInternal("failed to update profile", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return profile.Profile{}, rosterrors.NewNotFound("profile", p.UserID)
	}
	p.History = existing.History
	return p, nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (profile.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID)
	p, err := scanProfile(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return profile.Profile{}, rosterrors.NewNotFound("profile", userID)
		}
		return profile.Profile{}, rosterrors.NewInternal("failed to get profile", err)
	}
	if err := s.loadHistory(ctx, &p); err != nil {
		return profile.Profile{}, err
	}
	return p, nil
}

func (s *Store) ListProfiles(ctx context.Context, userIDs []string) ([]profile.Profile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = ANY($1)`, pq.Array(userIDs))
	if err != nil {
		return nil, rosterrors.NewInternal("failed to list profiles", err)
	}
	defer rows.Close()

	var result []profile.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, rosterrors.NewInternal("failed to scan profile", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, rosterrors.NewInternal("failed to list profiles", err)
	}
	for i := range result {
		if err := s.loadHistory(ctx, &result[i]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Store) loadHistory(ctx context.Context, p *profile.Profile) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, event_name, joined_at, status
		FROM profile_history WHERE user_id = $1 ORDER BY joined_at
	`, p.UserID)
	if err != nil {
		return rosterrors.NewInternal("failed to load profile history", err)
	}
	defer rows.Close()

	for rows.Next() {
		var h profile.HistoryEntry
		var status string
		if err := rows.Scan(&h.EventID, &h.EventName, &h.JoinedAt, &status); err != nil {
			return rosterrors.NewInternal("failed to scan profile history", err)
		}
		h.Status = profile.ParticipationStatus(status)
		h.JoinedAt = h.JoinedAt.UTC()
		p.History = append(p.History, h)
	}
	return rows.Err()
}

func (s *Store) AppendProfileHistory(ctx context.Context, userID string, entry profile.HistoryEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profile_history (id, user_id, event_id, event_name, joined_at, status)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, uuid.NewString(), userID, entry.EventID, entry.EventName, entry.JoinedAt, string(entry.Status))
	if err != nil {
		return rosterrors.NewInternal("failed to append profile history", err)
	}
	return nil
}

func (s *Store) DeleteProfile(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID); err != nil {
		return rosterrors.NewInternal("failed to delete profile", err)
	}
	return nil
}

// --- RosterStore -------------------------------------------------------------

const membershipColumns = `
	event_id, roster, user_id, entered_at, location_lat, location_lng, location_captured_at,
	status, deadline, checked_in, reason, cancelled_at
`

func scanMembership(scanner rowScanner) (roster.Membership, error) {
	var (
		m        roster.Membership
		rosterS  string
		lat      sql.NullFloat64
		lng      sql.NullFloat64
		capAt    sql.NullTime
		status   sql.NullString
		deadline sql.NullTime
		reason   sql.NullString
		cancelAt sql.NullTime
	)
	if err := scanner.Scan(
		&m.EventID, &rosterS, &m.UserID, &m.EnteredAt, &lat, &lng, &capAt,
		&status, &deadline, &m.CheckedIn, &reason, &cancelAt,
	); err != nil {
		return roster.Membership{}, err
	}
	m.Roster = roster.Kind(rosterS)
	m.EnteredAt = m.EnteredAt.UTC()
	if lat.Valid && lng.Valid {
		m.Location = &roster.GeoPoint{Lat: lat.Float64, Lng: lng.Float64, CapturedAt: fromNullTime(capAt)}
	}
	m.Status = status.String
	m.Deadline = fromNullTime(deadline)
	m.Reason = roster.CancelReason(reason.String)
	m.CancelledAt = fromNullTime(cancelAt)
	return m, nil
}

func membershipArgs(m roster.Membership) []interface{} {
	var lat, lng sql.NullFloat64
	var capAt sql.NullTime
	if m.Location != nil {
		lat = sql.NullFloat64{Float64: m.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: m.Location.Lng, Valid: true}
		capAt = toNullTime(m.Location.CapturedAt)
	}
	return []interface{}{
		m.EventID, string(m.Roster), m.UserID, m.EnteredAt, lat, lng, capAt,
		toNullString(m.Status), toNullTime(m.Deadline), m.CheckedIn, toNullString(string(m.Reason)), toNullTime(m.CancelledAt),
	}
}

func (s *Store) GetMembership(ctx context.Context, eventID string, kind roster.Kind, userID string) (roster.Membership, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+membershipColumns+` FROM roster_memberships
		WHERE event_id = $1 AND roster = $2 AND user_id = $3
	`, eventID, string(kind), userID)
	m, err := scanMembership(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return roster.Membership{}, rosterrors.NewNotFound("membership", userID)
		}
		return roster.Membership{}, rosterrors.NewInternal("failed to get membership", err)
	}
	return m, nil
}

func (s *Store) ListRoster(ctx context.Context, eventID string, kind roster.Kind) ([]roster.Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+membershipColumns+` FROM roster_memberships
		WHERE event_id = $1 AND roster = $2 ORDER BY entered_at
	`, eventID, string(kind))
	if err != nil {
		return nil, rosterrors.NewInternal("failed to list roster", err)
	}
	defer rows.Close()
	return scanMemberships(rows)
}

func (s *Store) CountRoster(ctx context.Context, eventID string, kind roster.Kind) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM roster_memberships WHERE event_id = $1 AND roster = $2
	`, eventID, string(kind)).Scan(&count)
	if err != nil {
		return 0, rosterrors.NewInternal("failed to count roster", err)
	}
	return count, nil
}

func (s *Store) ListMembershipsByUser(ctx context.Context, userID string, kind roster.Kind) ([]roster.Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+membershipColumns+` FROM roster_memberships
		WHERE user_id = $1 AND roster = $2 ORDER BY entered_at DESC
	`, userID, string(kind))
	if err != nil {
		return nil, rosterrors.NewInternal("failed to list memberships", err)
	}
	defer rows.Close()
	return scanMemberships(rows)
}

func (s *Store) ListExpiredResponsePending(ctx context.Context, before time.Time, limit int) ([]roster.Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+membershipColumns+` FROM roster_memberships
		WHERE roster = $1 AND deadline IS NOT NULL AND deadline <= $2
		ORDER BY deadline LIMIT $3
	`, string(roster.ResponsePending), before, limit)
	if err != nil {
		return nil, rosterrors.NewInternal("failed to list expired memberships", err)
	}
	defer rows.Close()
	return scanMemberships(rows)
}

func scanMemberships(rows *sql.Rows) ([]roster.Membership, error) {
	var result []roster.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, rosterrors.NewInternal("failed to scan membership", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (s *Store) AdmitToWaitingList(ctx context.Context, e event.Event, userID string, location *roster.GeoPoint, now time.Time) (roster.Membership, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return roster.Membership{}, rosterrors.NewInternal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var existing roster.Membership
	row := tx.QueryRowContext(ctx, `
		SELECT `+membershipColumns+` FROM roster_memberships
		WHERE event_id = $1 AND roster = $2 AND user_id = $3
	`, e.ID, string(roster.Waiting), userID)
	existing, scanErr := scanMembership(row)
	if scanErr == nil {
		return existing, tx.Commit()
	}
	if scanErr != sql.ErrNoRows {
		return roster.Membership{}, rosterrors.NewInternal("failed to check waiting list membership", scanErr)
	}

	if e.HasWaitingCap() {
		var count int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM roster_memberships WHERE event_id = $1 AND roster = $2 FOR UPDATE
		`, e.ID, string(roster.Waiting)).Scan(&count); err != nil {
			return roster.Membership{}, rosterrors.NewInternal("failed to count waiting list", err)
		}
		if count >= e.WaitingListCap {
			return roster.Membership{}, rosterrors.NewPreconditionFailed("waiting list is full")
		}
	}

	m := roster.Membership{UserID: userID, EventID: e.ID, Roster: roster.Waiting, EnteredAt: now, Location: location}
	args := membershipArgs(m)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO roster_memberships (`+membershipColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, args...); err != nil {
		if isUniqueViolation(err) {
			return roster.Membership{}, rosterrors.NewConflict("already on the waiting list")
		}
		return roster.Membership{}, rosterrors.NewInternal("failed to insert waiting list membership", err)
	}
	if err := tx.Commit(); err != nil {
		return roster.Membership{}, rosterrors.NewInternal("failed to commit waiting list admission", err)
	}
	return m, nil
}

func (s *Store) LeaveWaitingList(ctx context.Context, eventID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM roster_memberships WHERE event_id = $1 AND roster = $2 AND user_id = $3
	`, eventID, string(roster.Waiting), userID)
	if err != nil {
		return rosterrors.NewInternal("failed to leave waiting list", err)
	}
	return nil
}

func (s *Store) CommitDraw(ctx context.Context, batch storage.DrawBatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rosterrors.NewInternal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	for _, winner := range batch.Winners {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM roster_memberships WHERE event_id = $1 AND roster IN ($2, $4) AND user_id = $3
		`, batch.EventID, string(roster.Waiting), winner.UserID, string(roster.Cancelled)); err != nil {
			return rosterrors.NewInternal("failed to drop winner from waiting list", err)
		}
		winner.Roster = roster.ResponsePending
		winner.Status = roster.StatusAwaiting
		args := membershipArgs(winner)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO roster_memberships (`+membershipColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		`, args...); err != nil {
			return rosterrors.NewInternal("failed to insert responsePending membership", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO profile_history (id, user_id, event_id, event_name, joined_at, status)
			SELECT $1,$2,$3,$4,$5,$6 WHERE EXISTS (SELECT 1 FROM profiles WHERE user_id = $2)
		`, uuid.NewString(), winner.UserID, batch.EventID, batch.EventName, batch.SelectionTimestamp, string(batch.WinnerHistoryTag)); err != nil {
			return rosterrors.NewInternal("failed to append winner history", err)
		}
	}
	for _, loserID := range batch.LoserUserIDs {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM roster_memberships WHERE event_id = $1 AND roster = $2 AND user_id = $3
		`, batch.EventID, string(roster.Waiting), loserID); err != nil {
			return rosterrors.NewInternal("failed to drop loser from waiting list", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO profile_history (id, user_id, event_id, event_name, joined_at, status)
			SELECT $1,$2,$3,$4,$5,$6 WHERE EXISTS (SELECT 1 FROM profiles WHERE user_id = $2)
		`, uuid.NewString(), loserID, batch.EventID, batch.EventName, batch.SelectionTimestamp, string(profile.StatusNotSelected)); err != nil {
			return rosterrors.NewInternal("failed to append loser history", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE events SET status = $2, draw_locked_at = $3, updated_at = $3 WHERE id = $1
	`, batch.EventID, string(batch.NewEventStatus), batch.SelectionTimestamp); err != nil {
		return rosterrors.NewInternal("failed to update event after draw", err)
	}
	if err := tx.Commit(); err != nil {
		return rosterrors.NewAborted("failed to commit draw batch", err)
	}
	return nil
}

func (s *Store) CommitAcceptance(ctx context.Context, eventID, userID string, location *roster.GeoPoint, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rosterrors.NewInternal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		DELETE FROM roster_memberships WHERE event_id = $1 AND roster = $2 AND user_id = $3
	`, eventID, string(roster.ResponsePending), userID)
	if err != nil {
		return rosterrors.NewInternal("failed to clear responsePending membership", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return rosterrors.NewPreconditionFailed("user does not hold a responsePending record")
	}

	m := roster.Membership{UserID: userID, EventID: eventID, Roster: roster.InEvent, EnteredAt: now, Location: location}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO roster_memberships (`+membershipColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, membershipArgs(m)...); err != nil {
		return rosterrors.NewInternal("failed to insert inEvent membership", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO profile_history (id, user_id, event_id, event_name, joined_at, status)
		SELECT $1,$2,$3,'',$4,$5 WHERE EXISTS (SELECT 1 FROM profiles WHERE user_id = $2)
	`, uuid.NewString(), userID, eventID, now, string(profile.StatusEnrolled)); err != nil {
		return rosterrors.NewInternal("failed to append acceptance history", err)
	}
	if err := tx.Commit(); err != nil {
		return rosterrors.NewAborted("failed to commit acceptance", err)
	}
	return nil
}

func (s *Store) CommitDecline(ctx context.Context, eventID, userID string, now time.Time) error {
	return s.moveToCancelled(ctx, eventID, userID, roster.ResponsePending, roster.ReasonDeclined, now)
}

func (s *Store) CommitOrganizerCancel(ctx context.Context, eventID, userID string, now time.Time) error {
	return s.moveToCancelled(ctx, eventID, userID, roster.InEvent, roster.ReasonCancelledByOrganizer, now)
}

func (s *Store) CommitExpiry(ctx context.Context, eventID, userID string, now time.Time) error {
	return s.moveToCancelled(ctx, eventID, userID, roster.ResponsePending, roster.ReasonExpired, now)
}

func (s *Store) moveToCancelled(ctx context.Context, eventID, userID string, from roster.Kind, reason roster.CancelReason, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rosterrors.NewInternal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT `+membershipColumns+` FROM roster_memberships
		WHERE event_id = $1 AND roster = $2 AND user_id = $3
	`, eventID, string(from), userID)
	existing, scanErr := scanMembership(row)
	if scanErr == sql.ErrNoRows {
		verb := "does not hold the required record"
		return rosterrors.NewPreconditionFailed("user " + verb)
	}
	if scanErr != nil {
		return rosterrors.NewInternal("failed to load membership", scanErr)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM roster_memberships WHERE event_id = $1 AND roster = $2 AND user_id = $3
	`, eventID, string(from), userID); err != nil {
		return rosterrors.NewInternal("failed to delete membership", err)
	}

	cancelled := roster.Membership{
		UserID: userID, EventID: eventID, Roster: roster.Cancelled, EnteredAt: existing.EnteredAt,
		Location: existing.Location, Reason: reason, CancelledAt: now,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO roster_memberships (`+membershipColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, membershipArgs(cancelled)...); err != nil {
		return rosterrors.NewInternal("failed to insert cancelled membership", err)
	}

	if reason != roster.ReasonExpired {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO profile_history (id, user_id, event_id, event_name, joined_at, status)
			SELECT $1,$2,$3,'',$4,$5 WHERE EXISTS (SELECT 1 FROM profiles WHERE user_id = $2)
		`, uuid.NewString(), userID, eventID, now, string(profile.StatusCancelled)); err != nil {
			return rosterrors.NewInternal("failed to append cancellation history", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return rosterrors.NewAborted("failed to commit cancellation", err)
	}
	return nil
}

func (s *Store) CheckIn(ctx context.Context, eventID, userID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE roster_memberships SET checked_in = true
		WHERE event_id = $1 AND roster = $2 AND user_id = $3
	`, eventID, string(roster.InEvent), userID)
	if err != nil {
		return rosterrors.NewInternal("failed to check in", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return rosterrors.NewPreconditionFailed("user is not in the event")
	}
	return nil
}

func (s *Store) DeleteRosterBatch(ctx context.Context, ops []storage.RosterDeleteOp) error {
	if len(ops) > storage.MaxBatchSize {
		return rosterrors.NewInternal("batch exceeds max size", nil)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rosterrors.NewInternal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	for _, op := range ops {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM roster_memberships WHERE event_id = $1 AND roster = $2 AND user_id = $3
		`, op.EventID, string(op.Kind), op.UserID); err != nil {
			return rosterrors.NewInternal("failed to delete roster membership", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return rosterrors.NewAborted("failed to commit roster batch delete", err)
	}
	return nil
}

func (s *Store) DeleteEventRosters(ctx context.Context, eventID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM roster_memberships WHERE event_id = $1`, eventID); err != nil {
		return rosterrors.NewInternal("failed to delete event rosters", err)
	}
	return nil
}

// --- NotificationStore --------------------------------------------------------

func (s *Store) AppendNotificationLog(ctx context.Context, log notification.Log) (notification.Log, error) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.SentAt.IsZero() {
		log.SentAt = time.Now().UTC()
	}
	recipientsJSON, err := json.Marshal(log.RecipientID)
	if err != nil {
		return notification.Log{}, rosterrors.NewInternal("failed to marshal recipients", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notification_logs (id, sent_at, sender_id, event_id, event_name, recipient_ids, message, type)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, log.ID, log.SentAt, log.SenderID, log.EventID, log.EventName, recipientsJSON, log.Message, string(log.Type))
	if err != nil {
		return notification.Log{}, rosterrors.NewInternal("failed to append notification log", err)
	}
	return log, nil
}

func (s *Store) ListNotificationLogs(ctx context.Context, eventID string, limit int) ([]notification.Log, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sent_at, sender_id, event_id, event_name, recipient_ids, message, type
		FROM notification_logs WHERE event_id = $1 ORDER BY sent_at DESC LIMIT $2
	`, eventID, limit)
	if err != nil {
		return nil, rosterrors.NewInternal("failed to list notification logs", err)
	}
	defer rows.Close()

	var result []notification.Log
	for rows.Next() {
		var (
			l             notification.Log
			recipientsRaw []byte
			typ           string
		)
		if err := rows.Scan(&l.ID, &l.SentAt, &l.SenderID, &l.EventID, &l.EventName, &recipientsRaw, &l.Message, &typ); err != nil {
			return nil, rosterrors.NewInternal("failed to scan notification log", err)
		}
		l.SentAt = l.SentAt.UTC()
		l.Type = notification.Type(typ)
		if len(recipientsRaw) > 0 {
			_ = json.Unmarshal(recipientsRaw, &l.RecipientID)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

// --- DrawLocker ----------------------------------------------------------------

// AcquireDrawLock takes the dedicated per-event lock row via an upsert that
// only succeeds when no unexpired lock is held, keeping acquisition a single
// round trip instead of a session-pinned advisory lock.
func (s *Store) AcquireDrawLock(ctx context.Context, eventID string, now time.Time, ttl time.Duration) (func(context.Context), error) {
	expiresAt := now.Add(ttl)
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO event_draw_locks (event_id, locked_at, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO UPDATE
			SET locked_at = EXCLUDED.locked_at, expires_at = EXCLUDED.expires_at
			WHERE event_draw_locks.expires_at <= $2
	`, eventID, now, expiresAt)
	if err != nil {
		return nil, rosterrors.NewInternal("failed to acquire draw lock", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, rosterrors.NewConflict("a draw is already in progress for this event")
	}
	release := func(releaseCtx context.Context) {
		_, _ = s.db.ExecContext(releaseCtx, `DELETE FROM event_draw_locks WHERE event_id = $1`, eventID)
	}
	return release, nil
}
