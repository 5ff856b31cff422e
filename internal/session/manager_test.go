package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"equipment-portal/internal/identity"
	"equipment-portal/internal/model"
	"equipment-portal/internal/tokenstore"
)

// fakeBackend is a scripted identity service. meStatuses is consumed one
// entry per GET /api/me/; the last entry repeats.
type fakeBackend struct {
	createStatus  int
	refreshStatus int
	meStatuses    []int
	approval      string

	createCalls  atomic.Int32
	refreshCalls atomic.Int32
	meCalls      atomic.Int32
	lastBearer   atomic.Value
}

func (f *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/jwt/create/", func(w http.ResponseWriter, r *http.Request) {
		f.createCalls.Add(1)
		if f.createStatus != 0 && f.createStatus != http.StatusOK {
			w.WriteHeader(f.createStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access": "access-1", "refresh": "refresh-1"})
	})
	mux.HandleFunc("/api/auth/jwt/refresh/", func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "refresh-1", body["refresh"])
		if f.refreshStatus != 0 && f.refreshStatus != http.StatusOK {
			w.WriteHeader(f.refreshStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access": "access-2"})
	})
	mux.HandleFunc("/api/me/", func(w http.ResponseWriter, r *http.Request) {
		n := int(f.meCalls.Add(1)) - 1
		f.lastBearer.Store(r.Header.Get("Authorization"))

		status := http.StatusOK
		if len(f.meStatuses) > 0 {
			status = f.meStatuses[min(n, len(f.meStatuses)-1)]
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}

		approval := f.approval
		if approval == "" {
			approval = "approved"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 1, "email": "a@b.c", "approval_status": approval})
	})
	return mux
}

func newManager(t *testing.T, backend *fakeBackend, store tokenstore.Store, policy ApprovalCheckPolicy) *Manager {
	t.Helper()

	server := httptest.NewServer(backend.handler(t))
	t.Cleanup(server.Close)

	client := identity.NewClient(server.URL, identity.DefaultEndpoints(), 5*time.Second)
	return NewManager(client, store, policy)
}

var creds = model.Credentials{Email: "a@b.c", Password: "pw"}

func tokenValue(t *testing.T, store tokenstore.Store, key string) (string, bool) {
	t.Helper()
	value, ok, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	return value, ok
}

func TestLogin_Approved(t *testing.T) {
	backend := &fakeBackend{approval: "approved"}
	store := tokenstore.NewMemory()
	mgr := newManager(t, backend, store, FailOpen)

	outcome := mgr.Login(context.Background(), creds)

	require.Equal(t, StateApproved, outcome.State)
	require.NotNil(t, outcome.User)
	assert.Equal(t, model.ApprovalApproved, outcome.User.ApprovalStatus)
	assert.Equal(t, "Bearer access-1", backend.lastBearer.Load())

	access, ok := tokenValue(t, store, tokenstore.AccessKey)
	assert.True(t, ok)
	assert.Equal(t, "access-1", access)
	refresh, ok := tokenValue(t, store, tokenstore.RefreshKey)
	assert.True(t, ok)
	assert.Equal(t, "refresh-1", refresh)
}

func TestLogin_Pending(t *testing.T) {
	backend := &fakeBackend{approval: "pending"}
	store := tokenstore.NewMemory()
	mgr := newManager(t, backend, store, FailOpen)

	outcome := mgr.Login(context.Background(), creds)

	require.Equal(t, StateRejected, outcome.State)
	assert.Equal(t, ReasonPendingApproval, outcome.Reason)
	assert.Equal(t, 0, store.Len())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	backend := &fakeBackend{createStatus: http.StatusUnauthorized}
	store := tokenstore.NewMemory()
	mgr := newManager(t, backend, store, FailOpen)

	outcome := mgr.Login(context.Background(), creds)

	require.Equal(t, StateFailed, outcome.State)
	assert.Equal(t, ReasonInvalidCredentials, outcome.Reason)
	assert.Equal(t, int32(0), backend.meCalls.Load())
	assert.Equal(t, 0, store.Len())
}

func TestLogin_RefreshThenApproved(t *testing.T) {
	backend := &fakeBackend{meStatuses: []int{http.StatusUnauthorized, http.StatusOK}}
	store := tokenstore.NewMemory()
	mgr := newManager(t, backend, store, FailOpen)

	outcome := mgr.Login(context.Background(), creds)

	require.Equal(t, StateApproved, outcome.State)
	assert.Equal(t, int32(1), backend.refreshCalls.Load())
	assert.Equal(t, int32(2), backend.meCalls.Load())
	assert.Equal(t, "Bearer access-2", backend.lastBearer.Load())

	access, _ := tokenValue(t, store, tokenstore.AccessKey)
	assert.Equal(t, "access-2", access)
	refresh, _ := tokenValue(t, store, tokenstore.RefreshKey)
	assert.Equal(t, "refresh-1", refresh)
}

func TestLogin_RefreshThenPending(t *testing.T) {
	backend := &fakeBackend{meStatuses: []int{http.StatusUnauthorized, http.StatusOK}, approval: "pending"}
	store := tokenstore.NewMemory()
	mgr := newManager(t, backend, store, FailOpen)

	outcome := mgr.Login(context.Background(), creds)

	require.Equal(t, StateRejected, outcome.State)
	assert.Equal(t, 0, store.Len())
}

func TestLogin_RefreshFails(t *testing.T) {
	backend := &fakeBackend{meStatuses: []int{http.StatusUnauthorized}, refreshStatus: http.StatusUnauthorized}
	store := tokenstore.NewMemory()
	mgr := newManager(t, backend, store, FailOpen)

	outcome := mgr.Login(context.Background(), creds)

	require.Equal(t, StateFailed, outcome.State)
	assert.Equal(t, ReasonSessionExpired, outcome.Reason)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, int32(1), backend.meCalls.Load())
}

func TestLogin_RetryFailsOnlyOnce(t *testing.T) {
	backend := &fakeBackend{meStatuses: []int{http.StatusUnauthorized, http.StatusUnauthorized}}
	store := tokenstore.NewMemory()
	mgr := newManager(t, backend, store, FailOpen)

	outcome := mgr.Login(context.Background(), creds)

	require.Equal(t, StateFailed, outcome.State)
	assert.Equal(t, ReasonSessionExpired, outcome.Reason)
	assert.Equal(t, int32(1), backend.refreshCalls.Load())
	assert.Equal(t, int32(2), backend.meCalls.Load())
	assert.Equal(t, 0, store.Len())
}

func TestLogin_MissingRefreshToken(t *testing.T) {
	backend := &fakeBackend{meStatuses: []int{http.StatusUnauthorized}}
	server := httptest.NewServer(backend.handler(t))
	t.Cleanup(server.Close)
	client := identity.NewClient(server.URL, identity.DefaultEndpoints(), 5*time.Second)

	store := new(tokenstore.MockStore)
	store.On("Set", mock.Anything, tokenstore.AccessKey, "access-1").Return(nil)
	store.On("Set", mock.Anything, tokenstore.RefreshKey, "refresh-1").Return(nil)
	store.On("Get", mock.Anything, tokenstore.RefreshKey).Return("", false, nil)

	outcome := NewManager(client, store, FailOpen).Login(context.Background(), creds)

	require.Equal(t, StateFailed, outcome.State)
	assert.Equal(t, ReasonInvalidCredentials, outcome.Reason)
	assert.Equal(t, int32(0), backend.refreshCalls.Load())
	store.AssertExpectations(t)
}

func TestLogin_StatusCheckErrorFailOpen(t *testing.T) {
	backend := &fakeBackend{meStatuses: []int{http.StatusInternalServerError}}
	store := tokenstore.NewMemory()
	mgr := newManager(t, backend, store, FailOpen)

	outcome := mgr.Login(context.Background(), creds)

	require.Equal(t, StateApproved, outcome.State)
	assert.Nil(t, outcome.User)
	assert.Equal(t, int32(0), backend.refreshCalls.Load())
	assert.Equal(t, 2, store.Len())
}

func TestLogin_StatusCheckErrorFailClosed(t *testing.T) {
	backend := &fakeBackend{meStatuses: []int{http.StatusBadGateway}}
	store := tokenstore.NewMemory()
	mgr := newManager(t, backend, store, FailClosed)

	outcome := mgr.Login(context.Background(), creds)

	require.Equal(t, StateFailed, outcome.State)
	assert.Equal(t, ReasonUnverified, outcome.Reason)
	assert.Equal(t, 0, store.Len())
}

func TestLogin_StoreFailure(t *testing.T) {
	backend := &fakeBackend{}
	server := httptest.NewServer(backend.handler(t))
	t.Cleanup(server.Close)
	client := identity.NewClient(server.URL, identity.DefaultEndpoints(), 5*time.Second)

	store := new(tokenstore.MockStore)
	store.On("Set", mock.Anything, tokenstore.AccessKey, "access-1").Return(errors.New("disk full"))
	store.On("Delete", mock.Anything, mock.Anything).Return(nil)

	outcome := NewManager(client, store, FailOpen).Login(context.Background(), creds)

	require.Equal(t, StateFailed, outcome.State)
	assert.Equal(t, ReasonStoreUnavailable, outcome.Reason)
	assert.Equal(t, int32(0), backend.meCalls.Load())
	store.AssertNumberOfCalls(t, "Delete", 2)
}

func TestCurrentUser(t *testing.T) {
	t.Run("not authenticated", func(t *testing.T) {
		mgr := newManager(t, &fakeBackend{}, tokenstore.NewMemory(), FailOpen)
		_, err := mgr.CurrentUser(context.Background())
		assert.ErrorIs(t, err, model.ErrNotAuthenticated)
	})

	t.Run("refreshes once on 401", func(t *testing.T) {
		backend := &fakeBackend{meStatuses: []int{http.StatusUnauthorized, http.StatusOK}}
		store := tokenstore.NewMemory()
		require.NoError(t, store.Set(context.Background(), tokenstore.AccessKey, "stale"))
		require.NoError(t, store.Set(context.Background(), tokenstore.RefreshKey, "refresh-1"))
		mgr := newManager(t, backend, store, FailOpen)

		user, err := mgr.CurrentUser(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "a@b.c", user.Email)
		access, _ := tokenValue(t, store, tokenstore.AccessKey)
		assert.Equal(t, "access-2", access)
	})

	t.Run("expired session is cleared", func(t *testing.T) {
		backend := &fakeBackend{meStatuses: []int{http.StatusUnauthorized}, refreshStatus: http.StatusUnauthorized}
		store := tokenstore.NewMemory()
		require.NoError(t, store.Set(context.Background(), tokenstore.AccessKey, "stale"))
		require.NoError(t, store.Set(context.Background(), tokenstore.RefreshKey, "refresh-1"))
		mgr := newManager(t, backend, store, FailOpen)

		_, err := mgr.CurrentUser(context.Background())
		assert.ErrorIs(t, err, model.ErrSessionExpired)
		assert.Equal(t, 0, store.Len())
	})
	t.Run("store read failure", func(t *testing.T) {
		backend := &fakeBackend{}
		store := new(tokenstore.MockStore)
		store.On("Get", mock.Anything, tokenstore.AccessKey).Return("", false, errors.New("connection reset"))
		mgr := newManager(t, backend, store, FailOpen)

		_, err := mgr.CurrentUser(context.Background())
		assert.ErrorIs(t, err, model.ErrTokenStore)
		assert.NotErrorIs(t, err, model.ErrNotAuthenticated)
		assert.Equal(t, int32(0), backend.meCalls.Load())
	})
}

func TestLogout(t *testing.T) {
	store := tokenstore.NewMemory()
	require.NoError(t, store.Set(context.Background(), tokenstore.AccessKey, "a"))
	require.NoError(t, store.Set(context.Background(), tokenstore.RefreshKey, "r"))

	mgr := newManager(t, &fakeBackend{}, store, FailOpen)
	require.NoError(t, mgr.Logout(context.Background()))
	assert.Equal(t, 0, store.Len())
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, FailOpen, p)

	p, err = ParsePolicy(" FAIL_CLOSED ")
	require.NoError(t, err)
	assert.Equal(t, FailClosed, p)

	_, err = ParsePolicy("maybe")
	assert.Error(t, err)
}

// cancelingIdentity issues tokens, then cancels the caller's context during
// the approval check, as a handler timeout would.
type cancelingIdentity struct {
	cancel context.CancelFunc
}

func (c *cancelingIdentity) CreateToken(context.Context, model.Credentials) (model.TokenPair, error) {
	return model.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}, nil
}

func (c *cancelingIdentity) RefreshToken(context.Context, string) (string, error) {
	return "", errors.New("unexpected refresh")
}

func (c *cancelingIdentity) Me(ctx context.Context, _ string) (model.UserStatus, error) {
	c.cancel()
	return model.UserStatus{}, ctx.Err()
}

func TestLogin_CanceledApprovalCheckNeverFailsOpen(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := tokenstore.NewMemory()
	mgr := NewManager(&cancelingIdentity{cancel: cancel}, store, FailOpen)

	outcome := mgr.Login(ctx, creds)

	require.Equal(t, StateFailed, outcome.State)
	assert.Equal(t, ReasonUnverified, outcome.Reason)
	assert.Equal(t, 0, store.Len())
}
