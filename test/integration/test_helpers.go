//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"equipment-portal/internal/config"
	"equipment-portal/internal/handler"
	"equipment-portal/internal/identity"
	"equipment-portal/internal/router"
	"equipment-portal/internal/session"
	"equipment-portal/internal/submitter"
	"equipment-portal/internal/tokenstore"
	"equipment-portal/internal/web"
)

// identityService fakes the backend: it knows one account and can be told
// to reject the next access token once.
type identityService struct {
	approval     string
	rejectAccess atomic.Bool
	refreshCalls atomic.Int32
	issued       atomic.Int32
}

func (s *identityService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/jwt/create/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "ana@myunitec.ac.nz" || body["password"] != "Password123!" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		s.issued.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"access": "access-1", "refresh": "refresh-1"})
	})
	mux.HandleFunc("POST /api/auth/jwt/refresh/", func(w http.ResponseWriter, r *http.Request) {
		s.refreshCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"access": "access-2"})
	})
	mux.HandleFunc("GET /api/me/", func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "Bearer access-1" && s.rejectAccess.Swap(false) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if auth != "Bearer access-1" && auth != "Bearer access-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": 7, "email": "ana@myunitec.ac.nz", "approval_status": s.approval, "is_unitec_email": true,
		})
	})
	mux.HandleFunc("POST /api/auth/users/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	})
	return mux
}

type portal struct {
	server   *httptest.Server
	identity *identityService
	client   *http.Client
}

func newPortal(t *testing.T, approval string) *portal {
	t.Helper()

	idp := &identityService{approval: approval}
	idpServer := httptest.NewServer(idp.handler())
	t.Cleanup(idpServer.Close)

	client := identity.NewClient(idpServer.URL, identity.DefaultEndpoints(), 5*time.Second)
	tokens := tokenstore.NewMemory()
	manager := session.NewManager(client, tokens, session.FailOpen)

	pages, err := web.Load()
	require.NoError(t, err)
	dashboard := handler.NewDashboardHandler()

	cfg := &config.Config{
		RequestTimeout:   10 * time.Second,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     1000,
		AuthRateLimitRPM: 1000,
	}

	server := httptest.NewServer(router.New(cfg, router.Handlers{
		Session:   handler.NewSessionHandler(manager, tokens, client, submitter.Options{}),
		Dashboard: dashboard,
		Pages:     handler.NewPagesHandler(pages, dashboard),
	}))
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &portal{server: server, identity: idp, client: &http.Client{Jar: jar}}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type attemptResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Redirect *struct {
		To      string `json:"to"`
		AfterMS int64  `json:"after_ms"`
	} `json:"redirect"`
}

func (p *portal) post(t *testing.T, path string, payload any) (int, envelope) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := p.client.Post(p.server.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (p *portal) get(t *testing.T, path string) (int, envelope) {
	t.Helper()

	resp, err := p.client.Get(p.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decodeAttempt(t *testing.T, env envelope) attemptResult {
	t.Helper()

	var result attemptResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	return result
}
