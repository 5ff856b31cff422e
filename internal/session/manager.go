package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"equipment-portal/internal/claims"
	"equipment-portal/internal/identity"
	"equipment-portal/internal/model"
	"equipment-portal/internal/tokenstore"
)

type identityClient interface {
	CreateToken(ctx context.Context, creds model.Credentials) (model.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
	Me(ctx context.Context, accessToken string) (model.UserStatus, error)
}

// Manager exchanges credentials for a token pair, gates the login on the
// account's approval status and refreshes the access token at most once per
// call.
type Manager struct {
	identity identityClient
	store    tokenstore.Store
	policy   ApprovalCheckPolicy
}

func NewManager(identity identityClient, store tokenstore.Store, policy ApprovalCheckPolicy) *Manager {
	return &Manager{identity: identity, store: store, policy: policy}
}

// WithStore returns a manager sharing identity and policy but bound to
// another token store, e.g. one browser session.
func (m *Manager) WithStore(store tokenstore.Store) *Manager {
	return &Manager{identity: m.identity, store: store, policy: m.policy}
}

func (m *Manager) Login(ctx context.Context, creds model.Credentials) Outcome {
	m.trace(StateAuthenticating)
	pair, err := m.identity.CreateToken(ctx, creds)
	if err != nil {
		slog.Warn("token issuance failed", "error", err)
		return m.finish(failed(ReasonInvalidCredentials))
	}

	m.trace(StateTokenIssued, "access", claims.LogValue(pair.AccessToken))
	if err := m.storePair(ctx, pair); err != nil {
		slog.Error("failed to persist token pair", "error", err)
		m.clear(ctx)
		return m.finish(failed(ReasonStoreUnavailable))
	}

	m.trace(StateCheckingApproval)
	user, err := m.identity.Me(ctx, pair.AccessToken)
	switch {
	case err == nil:
		return m.finish(m.resolve(ctx, user))
	case identity.IsUnauthorized(err):
		return m.finish(m.refreshAndRetry(ctx))
	default:
		return m.finish(m.onApprovalCheckError(ctx, err))
	}
}

func (m *Manager) Logout(ctx context.Context) error {
	var errs []error
	for _, key := range []string{tokenstore.AccessKey, tokenstore.RefreshKey} {
		if err := m.store.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s token: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

// AccessToken returns the stored access token, if any.
func (m *Manager) AccessToken(ctx context.Context) (string, bool, error) {
	return m.store.Get(ctx, tokenstore.AccessKey)
}

// CurrentUser fetches the user behind the stored session. A 401 triggers one
// refresh and one retry, as during login.
func (m *Manager) CurrentUser(ctx context.Context) (model.UserStatus, error) {
	access, ok, err := m.store.Get(ctx, tokenstore.AccessKey)
	if err != nil {
		return model.UserStatus{}, fmt.Errorf("read access token: %w: %w", model.ErrTokenStore, err)
	}
	if !ok || access == "" {
		return model.UserStatus{}, model.ErrNotAuthenticated
	}

	user, err := m.identity.Me(ctx, access)
	if err == nil {
		return user, nil
	}
	if !identity.IsUnauthorized(err) {
		return model.UserStatus{}, err
	}

	refreshed, err := m.refreshAccess(ctx)
	if err != nil {
		return model.UserStatus{}, err
	}

	user, err = m.identity.Me(ctx, refreshed)
	if err != nil {
		slog.Warn("current user retry failed", "error", err)
		m.clear(ctx)
		return model.UserStatus{}, model.ErrSessionExpired
	}

	return user, nil
}

func (m *Manager) refreshAndRetry(ctx context.Context) Outcome {
	m.trace(StateRefreshing)
	access, err := m.refreshAccess(ctx)
	switch {
	case errors.Is(err, model.ErrNotAuthenticated):
		return failed(ReasonInvalidCredentials)
	case err != nil:
		return failed(ReasonSessionExpired)
	}

	m.trace(StateRetryingApproval, "access", claims.LogValue(access))
	user, err := m.identity.Me(ctx, access)
	if err != nil {
		slog.Warn("approval check retry failed", "error", err)
		m.clear(ctx)
		return failed(ReasonSessionExpired)
	}

	return m.resolve(ctx, user)
}

// refreshAccess trades the stored refresh token for a new access token.
// Without a refresh token it returns ErrNotAuthenticated and touches nothing;
// any other failure clears the session and returns ErrSessionExpired.
func (m *Manager) refreshAccess(ctx context.Context) (string, error) {
	refresh, ok, err := m.store.Get(ctx, tokenstore.RefreshKey)
	if err != nil {
		slog.Error("failed to read refresh token", "error", err)
		return "", model.ErrNotAuthenticated
	}
	if !ok || refresh == "" {
		return "", model.ErrNotAuthenticated
	}

	access, err := m.identity.RefreshToken(ctx, refresh)
	if err != nil {
		slog.Warn("token refresh failed", "error", err)
		m.clear(ctx)
		return "", model.ErrSessionExpired
	}

	if err := m.store.Set(ctx, tokenstore.AccessKey, access); err != nil {
		slog.Error("failed to persist refreshed access token", "error", err)
		m.clear(ctx)
		return "", model.ErrSessionExpired
	}

	return access, nil
}

func (m *Manager) resolve(ctx context.Context, user model.UserStatus) Outcome {
	if user.Pending() {
		m.clear(ctx)
		return rejected(&user)
	}

	return approved(&user)
}

func (m *Manager) onApprovalCheckError(ctx context.Context, err error) Outcome {
	if ctxErr := ctx.Err(); ctxErr != nil {
		slog.Warn("approval check abandoned; rejecting login", "error", ctxErr)
		m.clear(context.WithoutCancel(ctx))
		return failed(ReasonUnverified)
	}

	if m.policy.allowUnverified() {
		slog.Warn("approval status unavailable; allowing login", "policy", m.policy.String(), "error", err)
		return approved(nil)
	}

	slog.Warn("approval status unavailable; rejecting login", "policy", m.policy.String(), "error", err)
	m.clear(ctx)
	return failed(ReasonUnverified)
}

func (m *Manager) storePair(ctx context.Context, pair model.TokenPair) error {
	if err := m.store.Set(ctx, tokenstore.AccessKey, pair.AccessToken); err != nil {
		return err
	}
	return m.store.Set(ctx, tokenstore.RefreshKey, pair.RefreshToken)
}

func (m *Manager) clear(ctx context.Context) {
	if err := m.Logout(ctx); err != nil {
		slog.Error("failed to clear session tokens", "error", err)
	}
}

func (m *Manager) trace(state State, attrs ...any) {
	slog.Debug("login attempt", append([]any{"state", state.String()}, attrs...)...)
}

func (m *Manager) finish(outcome Outcome) Outcome {
	attrs := []any{"state", outcome.State.String()}
	if outcome.Reason != "" {
		attrs = append(attrs, "reason", outcome.Reason)
	}
	if outcome.User != nil {
		attrs = append(attrs, "approval_status", string(outcome.User.ApprovalStatus))
	}
	slog.Info("login attempt finished", attrs...)
	return outcome
}
