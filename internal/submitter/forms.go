package submitter

import (
	"strings"

	"equipment-portal/internal/model"
)

type LoginForm struct {
	Email    string
	Password string
}

type SignupForm struct {
	FirstName            string
	LastName             string
	Email                string
	StudentID            string
	YearGroup            string
	Password             string
	PasswordConfirmation string
}

func (f SignupForm) registration() model.Registration {
	return model.Registration{
		Email:      strings.TrimSpace(f.Email),
		Password:   f.Password,
		RePassword: f.PasswordConfirmation,
		FirstName:  strings.TrimSpace(f.FirstName),
		LastName:   strings.TrimSpace(f.LastName),
		UnitecID:   strings.TrimSpace(f.StudentID),
		YearGroup:  strings.TrimSpace(f.YearGroup),
	}
}

// Registration field names in the order their errors are reported.
var signupErrorFields = []string{"email", "first_name", "last_name", "unitec_id", "password", "re_password"}

// firstFieldError walks signupErrorFields and returns the first message found.
func firstFieldError(fields map[string][]string) (string, bool) {
	for _, field := range signupErrorFields {
		if msgs := fields[field]; len(msgs) > 0 {
			return msgs[0], true
		}
	}
	return "", false
}

// DefaultInstitutionDomains are the email domains whose accounts the
// identity backend approves on signup.
var DefaultInstitutionDomains = []string{
	"unitec.ac.nz",
	"myunitec.ac.nz",
	"student.unitec.ac.nz",
	"staff.unitec.ac.nz",
	"faculty.unitec.ac.nz",
}

// IsInstitutionEmail reports whether the domain after the last '@' is one of
// domains, ignoring case.
func IsInstitutionEmail(email string, domains []string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false
	}

	domain := strings.ToLower(strings.TrimSpace(email[at+1:]))
	for _, candidate := range domains {
		if domain == strings.ToLower(strings.TrimSpace(candidate)) {
			return true
		}
	}
	return false
}
