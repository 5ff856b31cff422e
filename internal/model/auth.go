package model

import "time"

// Credentials is the sign-in payload sent to the token endpoint.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the payload the identity backend expects on signup.
type Registration struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RePassword string `json:"re_password"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	UnitecID   string `json:"unitec_id"`
	YearGroup  string `json:"year_group"`
}

type TokenPair struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalDenied   ApprovalStatus = "denied"
)

// UserStatus mirrors the current-user resource of the identity backend.
type UserStatus struct {
	ID             int64          `json:"id"`
	Email          string         `json:"email"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	Role           string         `json:"role"`
	UnitecID       *string        `json:"unitec_id"`
	YearGroup      *string        `json:"year_group"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	IsUnitecEmail  bool           `json:"is_unitec_email"`
}

func (u UserStatus) Pending() bool {
	return u.ApprovalStatus == ApprovalPending
}

type Redirect struct {
	To      string        `json:"to"`
	After   time.Duration `json:"-"`
	AfterMS int64         `json:"after_ms"`
}

func NewRedirect(to string, after time.Duration) *Redirect {
	return &Redirect{To: to, After: after, AfterMS: after.Milliseconds()}
}

// AttemptResult is what one login or signup attempt surfaces to the user.
type AttemptResult struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	Redirect *Redirect `json:"redirect,omitempty"`
}

type TokenClaims struct {
	Subject   string     `json:"sub,omitempty"`
	Type      string     `json:"token_type,omitempty"`
	TokenID   string     `json:"jti,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
