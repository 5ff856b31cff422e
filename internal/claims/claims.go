package claims

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"equipment-portal/internal/model"
)

// Inspect reads the claims of a JWT without checking its signature. The
// identity backend is the only party that validates tokens; the result is
// for display and logging.
func Inspect(token string) (model.TokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.TokenClaims{}, fmt.Errorf("inspect token: %w", model.ErrInvalidInput)
	}

	mapClaims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mapClaims); err != nil {
		return model.TokenClaims{}, fmt.Errorf("inspect token: %w", err)
	}

	out := model.TokenClaims{}
	out.Subject, _ = mapClaims.GetSubject()
	out.Type, _ = mapClaims["token_type"].(string)
	if out.Type == "" {
		out.Type, _ = mapClaims["typ"].(string)
	}
	out.TokenID, _ = mapClaims["jti"].(string)

	// simplejwt puts the user id under user_id rather than sub.
	if out.Subject == "" {
		switch v := mapClaims["user_id"].(type) {
		case string:
			out.Subject = v
		case float64:
			out.Subject = fmt.Sprintf("%.0f", v)
		}
	}

	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time.UTC()
		out.ExpiresAt = &t
	}

	return out, nil
}

// LogValue is a safe summary for slog attributes; it never includes the token.
func LogValue(token string) string {
	c, err := Inspect(token)
	if err != nil {
		return "unparsed"
	}

	if c.ExpiresAt == nil {
		return "sub=" + c.Subject
	}

	return "sub=" + c.Subject + " exp=" + c.ExpiresAt.Format("2006-01-02T15:04:05Z")
}
