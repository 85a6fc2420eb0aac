package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	sqliteadapter "github.com/AREA-equipe/app/internal/adapters/db/sqlite"
	"github.com/AREA-equipe/app/internal/application"
	"github.com/AREA-equipe/app/internal/domain"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "triggermenot_test.db")

	db, err := sqliteadapter.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	service := application.NewPlaygroundService(sqliteadapter.NewPlaygroundRepository(db), nil)
	if err := service.BootstrapAdmin(ctx, "admin@example.com", "admin"); err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}

	srv := httptest.NewServer(NewRouter(service))
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, method, url, token string, in any, out any) int {
	t.Helper()
	var body io.Reader
	if in != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			t.Fatalf("encode body: %v", err)
		}
		body = buf
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if out != nil && resp.StatusCode < 400 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestRouterPlaygroundFlow(t *testing.T) {
	srv := newTestServer(t)

	if status := doRequest(t, http.MethodGet, srv.URL+"/api/playgrounds", "", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}

	var login struct {
		Token string `json:"token"`
		Email string `json:"email"`
	}
	status := doRequest(t, http.MethodPost, srv.URL+"/api/auth/login", "", map[string]any{
		"email":    "admin@example.com",
		"password": "admin",
		"mode":     "token",
	}, &login)
	if status != http.StatusOK || login.Token == "" {
		t.Fatalf("login failed: status %d, token %q", status, login.Token)
	}

	var playground domain.Playground
	if status := doRequest(t, http.MethodPost, srv.URL+"/api/playgrounds", login.Token, map[string]any{}, &playground); status != http.StatusCreated {
		t.Fatalf("create playground: status %d", status)
	}
	if playground.Name != "New Playground" {
		t.Fatalf("expected default name, got %q", playground.Name)
	}
	playgroundID := uintToPath(playground.ID)

	var actionKinds []domain.ActionKind
	if status := doRequest(t, http.MethodGet, srv.URL+"/api/catalog/actions", login.Token, nil, &actionKinds); status != http.StatusOK {
		t.Fatalf("catalog actions: status %d", status)
	}
	var reactionKinds []domain.ReactionKind
	if status := doRequest(t, http.MethodGet, srv.URL+"/api/catalog/reactions", login.Token, nil, &reactionKinds); status != http.StatusOK {
		t.Fatalf("catalog reactions: status %d", status)
	}
	if len(actionKinds) == 0 || len(reactionKinds) == 0 {
		t.Fatalf("expected seeded kinds, got %d actions, %d reactions", len(actionKinds), len(reactionKinds))
	}

	var trigger domain.ActionInstance
	status = doRequest(t, http.MethodPost, srv.URL+"/api/playgrounds/"+playgroundID+"/actions/"+uintToPath(actionKinds[0].ID), login.Token, map[string]any{"x": 10, "y": 20}, &trigger)
	if status != http.StatusCreated {
		t.Fatalf("add action: status %d", status)
	}
	var sink domain.ReactionInstance
	status = doRequest(t, http.MethodPost, srv.URL+"/api/playgrounds/"+playgroundID+"/reactions/"+uintToPath(reactionKinds[0].ID), login.Token, map[string]any{"settings": map[string]any{"msg": "hi"}}, &sink)
	if status != http.StatusCreated {
		t.Fatalf("add reaction: status %d", status)
	}
	if sink.Settings["msg"] != "hi" {
		t.Fatalf("expected settings echoed back, got %+v", sink.Settings)
	}

	var link domain.ActionLink
	status = doRequest(t, http.MethodPost, srv.URL+"/api/links/action/"+uintToPath(trigger.ID)+"/"+uintToPath(sink.ID), login.Token, nil, &link)
	if status != http.StatusCreated {
		t.Fatalf("link: status %d", status)
	}

	if status := doRequest(t, http.MethodPost, srv.URL+"/api/links/action/9999/"+uintToPath(sink.ID), login.Token, nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 for missing trigger, got %d", status)
	}
	if status := doRequest(t, http.MethodGet, srv.URL+"/api/playgrounds/abc", login.Token, nil, nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", status)
	}

	var graph domain.PlaygroundGraph
	if status := doRequest(t, http.MethodGet, srv.URL+"/api/playgrounds/"+playgroundID, login.Token, nil, &graph); status != http.StatusOK {
		t.Fatalf("get playground: status %d", status)
	}
	if len(graph.Actions) != 1 || len(graph.Reactions) != 1 || len(graph.ActionLinks) != 1 || len(graph.ReactionLinks) != 0 {
		t.Fatalf("unexpected graph shape: %d actions, %d reactions, %d action links, %d reaction links",
			len(graph.Actions), len(graph.Reactions), len(graph.ActionLinks), len(graph.ReactionLinks))
	}

	if status := doRequest(t, http.MethodDelete, srv.URL+"/api/playgrounds/"+playgroundID, login.Token, nil, nil); status != http.StatusOK {
		t.Fatalf("delete playground: status %d", status)
	}
	if status := doRequest(t, http.MethodGet, srv.URL+"/api/playgrounds/"+playgroundID, login.Token, nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", status)
	}
}

func TestRouterSessionAuth(t *testing.T) {
	srv := newTestServer(t)

	var registered struct {
		ID    uint   `json:"id"`
		Email string `json:"email"`
	}
	status := doRequest(t, http.MethodPost, srv.URL+"/api/auth/register", "", map[string]any{
		"email":    "user@example.com",
		"password": "secret",
	}, &registered)
	if status != http.StatusCreated {
		t.Fatalf("register: status %d", status)
	}

	body, _ := json.Marshal(map[string]any{"email": "user@example.com", "password": "secret", "mode": "session"})
	resp, err := http.Post(srv.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status %d", resp.StatusCode)
	}

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatalf("expected session cookie on login")
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/auth/whoami", nil)
	req.AddCookie(sessionCookie)
	whoResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	defer func() { _ = whoResp.Body.Close() }()
	if whoResp.StatusCode != http.StatusOK {
		t.Fatalf("whoami with session cookie: status %d", whoResp.StatusCode)
	}
	var who struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(whoResp.Body).Decode(&who); err != nil {
		t.Fatalf("decode whoami: %v", err)
	}
	if who.Email != "user@example.com" {
		t.Fatalf("expected session user, got %q", who.Email)
	}
}

func uintToPath(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
