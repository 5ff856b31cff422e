package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"equipment-portal/internal/claims"
	"equipment-portal/internal/middleware"
	"equipment-portal/internal/model"
	"equipment-portal/internal/session"
	"equipment-portal/internal/submitter"
	"equipment-portal/internal/tokenstore"
	"equipment-portal/pkg/apierror"
)

type registrar interface {
	RegisterUser(ctx context.Context, reg model.Registration) error
}

// SessionHandler runs the login and signup flows on behalf of the browser.
// Tokens stay on the server, namespaced by the portal_session cookie.
type SessionHandler struct {
	manager   *session.Manager
	tokens    tokenstore.Store
	registrar registrar
	opts      submitter.Options
}

func NewSessionHandler(manager *session.Manager, tokens tokenstore.Store, registrar registrar, opts submitter.Options) *SessionHandler {
	// The browser runs the redirect timer; never schedule on the server.
	opts.Scheduler = nil
	opts.Navigate = nil

	return &SessionHandler{manager: manager, tokens: tokens, registrar: registrar, opts: opts}
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	mgr, err := h.sessionManager(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := submitter.New(mgr, h.registrar, h.opts).SubmitLogin(r.Context(), submitter.LoginForm{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

func (h *SessionHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var payload model.SignupRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	mgr, err := h.sessionManager(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := submitter.New(mgr, h.registrar, h.opts).SubmitSignup(r.Context(), submitter.SignupForm{
		FirstName:            payload.FirstName,
		LastName:             payload.LastName,
		Email:                payload.Email,
		StudentID:            payload.UnitecID,
		YearGroup:            payload.YearGroup,
		Password:             payload.Password,
		PasswordConfirmation: payload.RePassword,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	mgr, err := h.sessionManager(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	if err := mgr.Logout(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"logged_out": true})
}

func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	mgr, err := h.sessionManager(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := mgr.CurrentUser(r.Context())
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNotAuthenticated), errors.Is(err, model.ErrSessionExpired):
		writeError(w, err)
		return
	case errors.Is(err, model.ErrTokenStore):
		slog.Error("failed to read session tokens", "error", err)
		writeError(w, apierror.New("INTERNAL_ERROR", "Unexpected server error", "", http.StatusInternalServerError))
		return
	default:
		slog.Warn("current user lookup failed", "error", err)
		writeError(w, apierror.New("IDENTITY_UNAVAILABLE", "Unable to reach the identity service", "", http.StatusBadGateway))
		return
	}

	info := model.SessionInfo{User: user}
	if access, ok, _ := mgr.AccessToken(r.Context()); ok {
		if c, inspectErr := claims.Inspect(access); inspectErr == nil {
			info.Claims = &c
		}
	}

	writeSuccess(w, http.StatusOK, info)
}

func (h *SessionHandler) sessionManager(ctx context.Context) (*session.Manager, error) {
	id, ok := middleware.SessionIDFromContext(ctx)
	if !ok {
		return nil, apierror.Unauthorized("missing browser session")
	}

	return h.manager.WithStore(tokenstore.NewScoped(h.tokens, id)), nil
}
