package rosterhttp

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/R3E-Network/service_layer/internal/app/domain/event"
	"github.com/R3E-Network/service_layer/internal/app/rosterapp"
	"github.com/R3E-Network/service_layer/internal/app/storage/memory"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	app, err := rosterapp.New(rosterapp.Deps{Store: memory.New()})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return NewHandler(app)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreateEventAndJoinWaitingList(t *testing.T) {
	h := newTestHandler(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	created := doJSON(t, h, http.MethodPost, "/events", event.Event{
		OrganizerID:       "org-1",
		Name:              "Launch Party",
		RegistrationStart: now.Add(-time.Hour),
		RegistrationEnd:   now.Add(time.Hour),
		Capacity:          10,
		WaitingListCap:    event.Unlimited,
		Status:            event.StatusOpen,
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", created.Code, created.Body.String())
	}
	var e event.Event
	if err := json.Unmarshal(created.Body.Bytes(), &e); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if e.ID == "" {
		t.Fatal("expected event ID to be assigned")
	}

	nowParam := now.Format(time.RFC3339)
	joinPath := "/events/" + e.ID + "/waitlist?now=" + nowParam
	joined := doJSON(t, h, http.MethodPost, joinPath, map[string]string{"userId": "user-1"})
	if joined.Code != http.StatusCreated {
		t.Fatalf("expected 201 joining waitlist, got %d: %s", joined.Code, joined.Body.String())
	}

	rosterResp := doJSON(t, h, http.MethodGet, "/events/"+e.ID+"/roster/waiting", nil)
	if rosterResp.Code != http.StatusOK {
		t.Fatalf("expected 200 listing roster, got %d: %s", rosterResp.Code, rosterResp.Body.String())
	}
	var members []map[string]interface{}
	if err := json.Unmarshal(rosterResp.Body.Bytes(), &members); err != nil {
		t.Fatalf("unmarshal roster: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected 1 waiting member, got %d", len(members))
	}
}

func TestGetEventNotFoundMapsToHTTP404(t *testing.T) {
	h := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/events/does-not-exist", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}
