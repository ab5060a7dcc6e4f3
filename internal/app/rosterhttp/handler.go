// Package rosterhttp exposes the lottery domain's REST surface: event CRUD,
// waiting-list admission, roster listings, draws, entrant responses,
// cascade deletion, and notification dispatch.
package rosterhttp

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	core "github.com/R3E-Network/service_layer/internal/app/core/service"
	"github.com/R3E-Network/service_layer/internal/app/domain/event"
	"github.com/R3E-Network/service_layer/internal/app/domain/notification"
	"github.com/R3E-Network/service_layer/internal/app/domain/roster"
	"github.com/R3E-Network/service_layer/internal/app/rosterapp"
	"github.com/R3E-Network/service_layer/pkg/version"
)

// listLimit reads ?limit= from the request, clamping it to
// core.DefaultListLimit/core.MaxListLimit. A missing or non-positive value
// yields the default.
func listLimit(r *http.Request) int {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	limit, _ := strconv.Atoi(raw)
	return core.ClampLimit(limit, core.DefaultListLimit, core.MaxListLimit)
}

// handler bundles HTTP endpoints over a rosterapp.Application.
type handler struct {
	app *rosterapp.Application
}

// NewHandler returns a gorilla/mux router exposing the roster service's
// REST API.
func NewHandler(app *rosterapp.Application) http.Handler {
	h := &handler{app: app}
	router := mux.NewRouter()

	router.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	router.HandleFunc("/system/descriptors", h.systemDescriptors).Methods(http.MethodGet)
	router.HandleFunc("/system/version", h.systemVersion).Methods(http.MethodGet)

	router.HandleFunc("/events", h.createEvent).Methods(http.MethodPost)
	router.HandleFunc("/events", h.listEvents).Methods(http.MethodGet)
	router.HandleFunc("/events/entrant", h.eventsForEntrant).Methods(http.MethodGet)
	router.HandleFunc("/events/{id}", h.getEvent).Methods(http.MethodGet)
	router.HandleFunc("/events/{id}", h.updateEvent).Methods(http.MethodPut)
	router.HandleFunc("/events/{id}", h.deleteEvent).Methods(http.MethodDelete)
	router.HandleFunc("/events/{id}/qr", h.publishQR).Methods(http.MethodGet)
	router.HandleFunc("/events/{id}/waitlist", h.joinWaitlist).Methods(http.MethodPost)
	router.HandleFunc("/events/{id}/waitlist/{userId}", h.leaveWaitlist).Methods(http.MethodDelete)
	router.HandleFunc("/events/{id}/roster/{kind}", h.roster).Methods(http.MethodGet)
	router.HandleFunc("/events/{id}/draw", h.draw).Methods(http.MethodPost)
	router.HandleFunc("/events/{id}/replacement-draw", h.replacementDraw).Methods(http.MethodPost)
	router.HandleFunc("/events/{id}/replacement-candidates", h.replacementCandidates).Methods(http.MethodGet)
	router.HandleFunc("/events/{id}/responses/{userId}/{action}", h.respond).Methods(http.MethodPost)

	router.HandleFunc("/users/{id}/memberships", h.membershipsForUser).Methods(http.MethodGet)
	router.HandleFunc("/qr/decode", h.decodeQR).Methods(http.MethodPost)

	router.HandleFunc("/profiles/{id}", h.deleteProfile).Methods(http.MethodDelete)
	router.HandleFunc("/organizers/{id}", h.deleteOrganizer).Methods(http.MethodDelete)

	router.HandleFunc("/notify/broadcast", h.notifyBroadcast).Methods(http.MethodPost)
	router.HandleFunc("/notify/roster", h.notifyRoster).Methods(http.MethodPost)

	return router
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *handler) systemDescriptors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Descriptors())
}

func (h *handler) systemVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": version.FullVersion()})
}

func (h *handler) createEvent(w http.ResponseWriter, r *http.Request) {
	var e event.Event
	if err := decodeJSON(r.Body, &e); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	created, err := h.app.Registry.CreateEvent(r.Context(), e)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// listEvents lists by organizer via ?organizer=, or every event with no
// filter. The response is bounded by ?limit= (default/max per
// core.DefaultListLimit/core.MaxListLimit).
func (h *handler) listEvents(w http.ResponseWriter, r *http.Request) {
	limit := listLimit(r)
	if organizer := strings.TrimSpace(r.URL.Query().Get("organizer")); organizer != "" {
		events, err := h.app.Registry.ListEventsByOrganizer(r.Context(), organizer)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, capEvents(events, limit))
		return
	}
	events, err := h.app.Registry.ListEvents(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, capEvents(events, limit))
}

func capEvents(events []event.Event, limit int) []event.Event {
	if len(events) > limit {
		return events[:limit]
	}
	return events
}

// eventsForEntrant lists every OPEN event currently inside its registration
// window, as of now (or the optional ?now= RFC3339 override used by tests).
func (h *handler) eventsForEntrant(w http.ResponseWriter, r *http.Request) {
	now, err := resolveNow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	events, err := h.app.Registry.ListForEntrant(r.Context(), now)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *handler) getEvent(w http.ResponseWriter, r *http.Request) {
	e, err := h.app.Registry.GetEvent(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *handler) updateEvent(w http.ResponseWriter, r *http.Request) {
	var e event.Event
	if err := decodeJSON(r.Body, &e); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	e.ID = mux.Vars(r)["id"]
	updated, err := h.app.Registry.UpdateEvent(r.Context(), e)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Registry.DeleteEvent(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) publishQR(w http.ResponseWriter, r *http.Request) {
	now, err := resolveNow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	payload, err := h.app.Registry.PublishQRPayload(r.Context(), mux.Vars(r)["id"], now)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"payload": payload})
}

func (h *handler) decodeQR(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Payload string `json:"payload"`
	}
	if err := decodeJSON(r.Body, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	eventID, err := h.app.Registry.DecodeQRPayload(body.Payload)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"eventId": eventID})
}

func (h *handler) joinWaitlist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID   string           `json:"userId"`
		Location *roster.GeoPoint `json:"location"`
	}
	if err := decodeJSON(r.Body, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	now, err := resolveNow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	m, err := h.app.Registry.JoinWaitingList(r.Context(), mux.Vars(r)["id"], body.UserID, body.Location, now)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *handler) leaveWaitlist(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.app.Registry.LeaveWaitingList(r.Context(), vars["id"], vars["userId"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// roster lists a roster's members, bounded by ?limit=.
func (h *handler) roster(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	set, err := h.app.Registry.ListRoster(r.Context(), vars["id"], roster.Kind(vars["kind"]))
	if err != nil {
		writeError(w, err)
		return
	}
	members := set.Members()
	if limit := listLimit(r); len(members) > limit {
		members = members[:limit]
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *handler) membershipsForUser(w http.ResponseWriter, r *http.Request) {
	kind := roster.Kind(strings.TrimSpace(r.URL.Query().Get("kind")))
	if kind == "" {
		kind = roster.InEvent
	}
	memberships, err := h.app.Registry.ListMembershipsByUser(r.Context(), mux.Vars(r)["id"], kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memberships)
}

func (h *handler) draw(w http.ResponseWriter, r *http.Request) {
	var body struct {
		NumberOfWinners int    `json:"numberOfWinners"`
		Seed            *int64 `json:"seed"`
	}
	if err := decodeJSON(r.Body, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	now, err := resolveNow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	outcome, err := h.app.Lottery.ExecuteDraw(r.Context(), mux.Vars(r)["id"], body.NumberOfWinners, now, body.Seed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *handler) replacementDraw(w http.ResponseWriter, r *http.Request) {
	var body struct {
		NumberOfReplacements int    `json:"numberOfReplacements"`
		Seed                 *int64 `json:"seed"`
	}
	if err := decodeJSON(r.Body, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	now, err := resolveNow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	outcome, err := h.app.Lottery.ExecuteReplacementDraw(r.Context(), mux.Vars(r)["id"], body.NumberOfReplacements, now, body.Seed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *handler) replacementCandidates(w http.ResponseWriter, r *http.Request) {
	ids, err := h.app.Lottery.CandidatesAvailableForReplacement(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

// respond handles POST /events/{id}/responses/{userId}/{action} where action
// is accept, decline, or organizer-cancel.
func (h *handler) respond(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	eventID, userID, action := vars["id"], vars["userId"], vars["action"]
	now, err := resolveNow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	switch action {
	case "accept":
		err = h.app.Lottery.Accept(r.Context(), eventID, userID, now)
	case "decline":
		err = h.app.Lottery.Decline(r.Context(), eventID, userID, now)
	case "organizer-cancel":
		err = h.app.Lottery.OrganizerCancel(r.Context(), eventID, userID, now)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) deleteProfile(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.Cascade.DeleteProfile(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) deleteOrganizer(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.Cascade.DeleteOrganizer(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) notifyBroadcast(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EventID      string            `json:"eventId"`
		EventName    string            `json:"eventName"`
		RecipientIDs []string          `json:"recipientIds"`
		Type         notification.Type `json:"type"`
		Message      string            `json:"message"`
		Deadline     *time.Time        `json:"deadline"`
	}
	if err := decodeJSON(r.Body, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	now, err := resolveNow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	var deadline time.Time
	if body.Deadline != nil {
		deadline = *body.Deadline
	}
	outcome, err := h.app.Notify.Broadcast(r.Context(), body.EventID, body.EventName, body.RecipientIDs, body.Type, body.Message, deadline, now)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *handler) notifyRoster(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EventID   string      `json:"eventId"`
		EventName string      `json:"eventName"`
		Kind      roster.Kind `json:"kind"`
		Message   string      `json:"message"`
	}
	if err := decodeJSON(r.Body, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	now, err := resolveNow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	outcome, err := h.app.Notify.BroadcastToRoster(r.Context(), body.EventID, body.EventName, body.Kind, body.Message, now)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// resolveNow returns the ?now= RFC3339 query override if present, otherwise
// the current wall-clock time. The override exists so integration tests and
// scripted demos can drive the roster state machine deterministically.
func resolveNow(r *http.Request) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("now"))
	if raw == "" {
		return time.Now().UTC(), nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid now parameter: %w", err)
	}
	return parsed.UTC(), nil
}
