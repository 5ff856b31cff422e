package model

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	UnitecID   string `json:"unitec_id"`
	YearGroup  string `json:"year_group"`
	Password   string `json:"password"`
	RePassword string `json:"re_password"`
}

type SessionInfo struct {
	User   UserStatus   `json:"user"`
	Claims *TokenClaims `json:"claims,omitempty"`
}
