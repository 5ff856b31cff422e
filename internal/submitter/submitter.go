package submitter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"equipment-portal/internal/identity"
	"equipment-portal/internal/model"
	"equipment-portal/internal/schedule"
	"equipment-portal/internal/session"
)

const (
	MessageLoginSuccess    = "Login successful!"
	MessagePasswordsDiffer = "Signup failed: Passwords do not match"
	MessageSignupApproved  = "Signup successful! You can now log in."
	MessageSignupPending   = "Signup successful! Your account is pending approval. You will be notified once approved."
	MessageSignupGeneric   = "Signup failed: Please try again"

	loginFailedPrefix  = "Login failed: "
	signupFailedPrefix = "Signup failed: "
)

const (
	LoginRedirectDelay          = 1000 * time.Millisecond
	SignupApprovedRedirectDelay = 2000 * time.Millisecond
	SignupPendingRedirectDelay  = 3000 * time.Millisecond
)

// ErrBusy is returned while an earlier submission is still in flight.
var ErrBusy = errors.New("a submission is already in progress")

type loginFlow interface {
	Login(ctx context.Context, creds model.Credentials) session.Outcome
}

type registrar interface {
	RegisterUser(ctx context.Context, reg model.Registration) error
}

type Scheduler interface {
	After(delay time.Duration, fn func()) schedule.Canceler
}

type Options struct {
	HomePath           string
	LoginPath          string
	InstitutionDomains []string
	Scheduler          Scheduler
	// Navigate is called when a scheduled redirect fires. Without it no
	// redirect is scheduled and callers read AttemptResult.Redirect instead.
	Navigate func(target string)
}

// Submitter owns one login/signup form: its single status message, its
// loading flag and at most one pending redirect.
type Submitter struct {
	flow      loginFlow
	registrar registrar
	opts      Options

	mu      sync.Mutex
	message string
	loading bool
	pending schedule.Canceler
}

func New(flow loginFlow, registrar registrar, opts Options) *Submitter {
	if opts.HomePath == "" {
		opts.HomePath = "/"
	}
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}
	if len(opts.InstitutionDomains) == 0 {
		opts.InstitutionDomains = DefaultInstitutionDomains
	}

	return &Submitter{flow: flow, registrar: registrar, opts: opts}
}

func (s *Submitter) SubmitLogin(ctx context.Context, form LoginForm) (model.AttemptResult, error) {
	if !s.begin() {
		return model.AttemptResult{}, ErrBusy
	}

	if strings.TrimSpace(form.Email) == "" || form.Password == "" {
		return s.end(model.AttemptResult{Message: loginFailedPrefix + "Email and password are required"}), nil
	}

	outcome := s.flow.Login(ctx, model.Credentials{Email: strings.TrimSpace(form.Email), Password: form.Password})

	var result model.AttemptResult
	switch outcome.State {
	case session.StateApproved:
		result = model.AttemptResult{
			Success:  true,
			Message:  MessageLoginSuccess,
			Redirect: model.NewRedirect(s.opts.HomePath, LoginRedirectDelay),
		}
	case session.StateRejected:
		result = model.AttemptResult{Message: outcome.Reason}
	default:
		reason := outcome.Reason
		if reason == "" {
			reason = session.ReasonInvalidCredentials
		}
		result = model.AttemptResult{Message: loginFailedPrefix + reason}
	}

	return s.end(result), nil
}

func (s *Submitter) SubmitSignup(ctx context.Context, form SignupForm) (model.AttemptResult, error) {
	if !s.begin() {
		return model.AttemptResult{}, ErrBusy
	}

	if form.Password != form.PasswordConfirmation {
		return s.end(model.AttemptResult{Message: MessagePasswordsDiffer}), nil
	}

	reg := form.registration()
	if err := s.registrar.RegisterUser(ctx, reg); err != nil {
		slog.Warn("signup rejected", "error", err)
		if msg, ok := firstFieldError(identity.FieldErrorsOf(err)); ok {
			return s.end(model.AttemptResult{Message: signupFailedPrefix + msg}), nil
		}
		return s.end(model.AttemptResult{Message: MessageSignupGeneric}), nil
	}

	if IsInstitutionEmail(reg.Email, s.opts.InstitutionDomains) {
		return s.end(model.AttemptResult{
			Success:  true,
			Message:  MessageSignupApproved,
			Redirect: model.NewRedirect(s.opts.LoginPath, SignupApprovedRedirectDelay),
		}), nil
	}

	return s.end(model.AttemptResult{
		Success:  true,
		Message:  MessageSignupPending,
		Redirect: model.NewRedirect(s.opts.LoginPath, SignupPendingRedirectDelay),
	}), nil
}

// Message is the single live status message.
func (s *Submitter) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

func (s *Submitter) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Close cancels a pending redirect. It reports whether one was canceled.
func (s *Submitter) Close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelPendingLocked()
}

func (s *Submitter) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loading {
		return false
	}

	s.loading = true
	s.message = ""
	s.cancelPendingLocked()
	return true
}

func (s *Submitter) end(result model.AttemptResult) model.AttemptResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading = false
	s.message = result.Message

	if result.Redirect != nil && s.opts.Scheduler != nil && s.opts.Navigate != nil {
		target := result.Redirect.To
		navigate := s.opts.Navigate
		s.pending = s.opts.Scheduler.After(result.Redirect.After, func() { navigate(target) })
	}

	return result
}

func (s *Submitter) cancelPendingLocked() bool {
	if s.pending == nil {
		return false
	}

	canceled := s.pending.Cancel()
	s.pending = nil
	return canceled
}
