package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantnotes/notes-server/internal/config"
	"github.com/tenantnotes/notes-server/internal/events"
	"github.com/tenantnotes/notes-server/internal/metrics"
	"github.com/tenantnotes/notes-server/internal/models"
	"github.com/tenantnotes/notes-server/internal/storage"
)

type testServer struct {
	*RESTServer
	store  *storage.MemoryStore
	events *events.Recorder
}

func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.JWT.Secret = "test-secret"
	cfg.Database.Driver = config.DriverMemory

	store := storage.NewMemoryStore(storage.WithClock(stepClock()))
	require.NoError(t, storage.Seed(context.Background(), store, storage.DefaultSeed, "password"))

	rec := &events.Recorder{}
	s := NewRESTServer(cfg, store, WithPublisher(rec), WithMetrics(metrics.New("notes-test")))
	return &testServer{RESTServer: s, store: store, events: rec}
}

// tokenFor issues a token for a seeded user without going through bcrypt
func (ts *testServer) tokenFor(t *testing.T, email string) string {
	t.Helper()
	u, err := ts.store.GetUserByEmail(context.Background(), email)
	require.NoError(t, err)
	token, err := ts.tokens.Issue(u.ID, u.TenantID)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type noteBody struct {
	Note    models.Note `json:"note"`
	Message string      `json:"message"`
}

type tenantBody struct {
	Tenant struct {
		models.Tenant
		NoteCount int  `json:"note_count"`
		NoteLimit *int `json:"note_limit"`
	} `json:"tenant"`
	Message string `json:"message"`
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	var body errorBody
	decodeBody(t, rec, &body)
	assert.Equal(t, code, body.Code)
	assert.NotEmpty(t, body.Error)
}

func (ts *testServer) createNote(t *testing.T, token, title string) models.Note {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/notes", token, map[string]string{"title": title, "content": "body of " + title})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var body noteBody
	decodeBody(t, rec, &body)
	return body.Note
}

func TestHealthAndRoot(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	rec = ts.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"service":"notes-server"`)

	rec = ts.do(t, http.MethodGet, "/api/nothing-here", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "Admin@Acme.test",
		"password": "password",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Token     string          `json:"token"`
		TokenType string          `json:"token_type"`
		ExpiresIn int             `json:"expires_in"`
		User      models.Identity `json:"user"`
	}
	decodeBody(t, rec, &body)
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, "Bearer", body.TokenType)
	assert.Equal(t, int((24 * time.Hour).Seconds()), body.ExpiresIn)
	assert.Equal(t, "admin@acme.test", body.User.Email)
	assert.Equal(t, models.RoleAdmin, body.User.Role)
	assert.Equal(t, "acme", body.User.TenantSlug)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = ts.do(t, http.MethodGet, "/api/auth/me", body.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		User models.Identity `json:"user"`
	}
	decodeBody(t, rec, &me)
	assert.Equal(t, body.User, me.User)
}

func TestLoginFailures(t *testing.T) {
	ts := newTestServer(t)

	wrongPassword := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "admin@acme.test", "password": "nope",
	})
	assertError(t, wrongPassword, http.StatusUnauthorized, CodeInvalidCredentials)

	unknownEmail := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "nobody@acme.test", "password": "password",
	})
	assertError(t, unknownEmail, http.StatusUnauthorized, CodeInvalidCredentials)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String(), "unknown accounts are indistinguishable")

	rec := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "admin@acme.test"})
	assertError(t, rec, http.StatusBadRequest, CodeValidation)

	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", "{not json")
	assertError(t, rec, http.StatusBadRequest, CodeValidation)
}

func TestAuthenticationRequired(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/auth/me", "/api/notes", "/api/tenants/acme"} {
		rec := ts.do(t, http.MethodGet, path, "", nil)
		assertError(t, rec, http.StatusUnauthorized, CodeUnauthenticated)
	}

	rec := ts.do(t, http.MethodGet, "/api/notes", "not-a-token", nil)
	assertError(t, rec, http.StatusUnauthorized, CodeUnauthenticated)

	u, err := ts.store.GetUserByEmail(context.Background(), "user@acme.test")
	require.NoError(t, err)
	expired, err := ts.tokens.WithClock(func() time.Time {
		return time.Now().Add(-48 * time.Hour)
	}).Issue(u.ID, u.TenantID)
	require.NoError(t, err)

	rec = ts.do(t, http.MethodGet, "/api/notes", expired, nil)
	assertError(t, rec, http.StatusUnauthorized, CodeTokenExpired)
}

func TestDeletedUserTokenIsRejected(t *testing.T) {
	ts := newTestServer(t)
	token := ts.tokenFor(t, "user@acme.test")

	u, err := ts.store.GetUserByEmail(context.Background(), "user@acme.test")
	require.NoError(t, err)
	require.NoError(t, ts.store.DeleteUser(context.Background(), u.ID))

	rec := ts.do(t, http.MethodGet, "/api/notes", token, nil)
	assertError(t, rec, http.StatusUnauthorized, CodeUnauthenticated)
}

func TestNoteRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	token := ts.tokenFor(t, "user@acme.test")

	created := ts.createNote(t, token, "first")
	assert.Equal(t, "first", created.Title)
	require.NotNil(t, created.CreatedBy)
	assert.Equal(t, "user@acme.test", *created.CreatedBy)

	rec := ts.do(t, http.MethodGet, "/api/notes/"+itoa(created.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got noteBody
	decodeBody(t, rec, &got)
	assert.Equal(t, "body of first", got.Note.Content)

	rec = ts.do(t, http.MethodPut, "/api/notes/"+itoa(created.ID), token, map[string]string{
		"title": "renamed", "content": "new body",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated noteBody
	decodeBody(t, rec, &updated)
	assert.Equal(t, "renamed", updated.Note.Title)
	assert.Equal(t, "new body", updated.Note.Content)
	assert.True(t, created.CreatedAt.Equal(updated.Note.CreatedAt))
	assert.True(t, updated.Note.UpdatedAt.After(created.UpdatedAt))

	rec = ts.do(t, http.MethodGet, "/api/notes", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Notes []models.Note `json:"notes"`
		Count int           `json:"count"`
	}
	decodeBody(t, rec, &list)
	require.Len(t, list.Notes, 1)
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "renamed", list.Notes[0].Title)

	rec = ts.do(t, http.MethodDelete, "/api/notes/"+itoa(created.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/notes/"+itoa(created.ID), token, nil)
	assertError(t, rec, http.StatusNotFound, CodeNotFound)

	rec = ts.do(t, http.MethodDelete, "/api/notes/"+itoa(created.ID), token, nil)
	assertError(t, rec, http.StatusNotFound, CodeNotFound)
}

func TestNoteValidation(t *testing.T) {
	ts := newTestServer(t)
	token := ts.tokenFor(t, "user@acme.test")

	rec := ts.do(t, http.MethodPost, "/api/notes", token, map[string]string{"title": "  ", "content": "x"})
	assertError(t, rec, http.StatusBadRequest, CodeValidation)

	rec = ts.do(t, http.MethodPost, "/api/notes", token, map[string]string{"title": "t"})
	assertError(t, rec, http.StatusBadRequest, CodeValidation)

	note := ts.createNote(t, token, "valid")
	rec = ts.do(t, http.MethodPut, "/api/notes/"+itoa(note.ID), token, map[string]string{"content": "x"})
	assertError(t, rec, http.StatusBadRequest, CodeValidation)
}

func TestNonNumericNoteID(t *testing.T) {
	ts := newTestServer(t)
	token := ts.tokenFor(t, "user@acme.test")

	for _, id := range []string{"abc", "0", "-1", "99999999999999999999"} {
		rec := ts.do(t, http.MethodGet, "/api/notes/"+id, token, nil)
		assertError(t, rec, http.StatusNotFound, CodeNotFound)
	}
}

func TestTenantIsolation(t *testing.T) {
	ts := newTestServer(t)
	acme := ts.tokenFor(t, "user@acme.test")
	globex := ts.tokenFor(t, "admin@globex.test")

	note := ts.createNote(t, acme, "acme secret")
	path := "/api/notes/" + itoa(note.ID)

	assertError(t, ts.do(t, http.MethodGet, path, globex, nil), http.StatusNotFound, CodeNotFound)
	assertError(t, ts.do(t, http.MethodPut, path, globex, map[string]string{"title": "x", "content": "y"}), http.StatusNotFound, CodeNotFound)
	assertError(t, ts.do(t, http.MethodDelete, path, globex, nil), http.StatusNotFound, CodeNotFound)

	rec := ts.do(t, http.MethodGet, "/api/notes", globex, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "acme secret")

	rec = ts.do(t, http.MethodGet, path, acme, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body noteBody
	decodeBody(t, rec, &body)
	assert.Equal(t, "acme secret", body.Note.Title)
}

func TestNotesIgnoreHostSubdomain(t *testing.T) {
	ts := newTestServer(t)
	token := ts.tokenFor(t, "user@acme.test")
	ts.createNote(t, token, "acme note")

	req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
	req.Host = "globex.notes.test"
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "acme note")
}

func TestGetTenant(t *testing.T) {
	ts := newTestServer(t)
	member := ts.tokenFor(t, "user@acme.test")
	ts.createNote(t, member, "one")
	ts.createNote(t, member, "two")

	rec := ts.do(t, http.MethodGet, "/api/tenants/acme", member, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body tenantBody
	decodeBody(t, rec, &body)
	assert.Equal(t, "acme", body.Tenant.Slug)
	assert.Equal(t, models.PlanFree, body.Tenant.Plan)
	assert.Equal(t, 2, body.Tenant.NoteCount)
	require.NotNil(t, body.Tenant.NoteLimit)
	assert.Equal(t, 3, *body.Tenant.NoteLimit)

	assertError(t, ts.do(t, http.MethodGet, "/api/tenants/globex", member, nil), http.StatusForbidden, CodeTenantAccessDenied)
	assertError(t, ts.do(t, http.MethodGet, "/api/tenants/initech", member, nil), http.StatusNotFound, CodeTenantNotFound)
}

func TestPlanLimitAndUpgrade(t *testing.T) {
	ts := newTestServer(t)
	member := ts.tokenFor(t, "user@acme.test")
	admin := ts.tokenFor(t, "admin@acme.test")

	for _, title := range []string{"one", "two", "three"} {
		ts.createNote(t, member, title)
	}

	rec := ts.do(t, http.MethodPost, "/api/notes", admin, map[string]string{"title": "four", "content": "x"})
	assertError(t, rec, http.StatusForbidden, CodePlanLimitReached)

	// members cannot upgrade
	rec = ts.do(t, http.MethodPost, "/api/tenants/acme/upgrade", member, nil)
	assertError(t, rec, http.StatusForbidden, CodeInsufficientRole)

	rec = ts.do(t, http.MethodPost, "/api/tenants/acme/upgrade", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var upgraded tenantBody
	decodeBody(t, rec, &upgraded)
	assert.Equal(t, models.PlanPro, upgraded.Tenant.Plan)

	// the member's existing token sees the new plan at once
	ts.createNote(t, member, "four")
	ts.createNote(t, member, "five")

	rec = ts.do(t, http.MethodGet, "/api/tenants/acme", member, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary tenantBody
	decodeBody(t, rec, &summary)
	assert.Equal(t, 5, summary.Tenant.NoteCount)
	assert.Nil(t, summary.Tenant.NoteLimit)
	assert.Contains(t, rec.Body.String(), `"note_limit":null`)

	// upgrading again succeeds without a second event
	rec = ts.do(t, http.MethodPost, "/api/tenants/acme/upgrade", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var upgrades, limitHits int
	for _, e := range ts.events.Events() {
		switch e.Type {
		case models.EventTypeTenantUpgraded:
			upgrades++
			assert.Equal(t, models.PlanPro, e.Plan)
		case models.EventTypePlanLimitHit:
			limitHits++
		}
	}
	assert.Equal(t, 1, upgrades)
	assert.Equal(t, 1, limitHits)
}

func TestUpgradeOtherTenant(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.tokenFor(t, "admin@acme.test")

	assertError(t, ts.do(t, http.MethodPost, "/api/tenants/globex/upgrade", admin, nil), http.StatusForbidden, CodeTenantAccessDenied)
	assertError(t, ts.do(t, http.MethodPost, "/api/tenants/initech/upgrade", admin, nil), http.StatusNotFound, CodeTenantNotFound)

	globex, err := ts.store.GetTenantBySlug(context.Background(), "globex")
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, globex.Plan)
}

func TestNoteEvents(t *testing.T) {
	ts := newTestServer(t)
	token := ts.tokenFor(t, "user@acme.test")

	note := ts.createNote(t, token, "evented")
	ts.do(t, http.MethodPut, "/api/notes/"+itoa(note.ID), token, map[string]string{"title": "x", "content": "y"})
	ts.do(t, http.MethodDelete, "/api/notes/"+itoa(note.ID), token, nil)

	recorded := ts.events.Events()
	require.Len(t, recorded, 3)
	wantTypes := []models.EventType{models.EventTypeNoteCreated, models.EventTypeNoteUpdated, models.EventTypeNoteDeleted}
	for i, e := range recorded {
		assert.Equal(t, wantTypes[i], e.Type)
		assert.Equal(t, "acme", e.TenantSlug)
		require.NotNil(t, e.NoteID)
		assert.Equal(t, note.ID, *e.NoteID)
	}
	assert.Equal(t, "notes.acme.note.created", events.Subject(ts.config.NATS.SubjectPrefix, recorded[0]))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodGet, "/api/notes", "", nil)

	rec := ts.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `authorization_failures_total{reason="UNAUTHENTICATED",service="notes-test"} 1`)
	assert.Contains(t, body, `status="401"`)
}
