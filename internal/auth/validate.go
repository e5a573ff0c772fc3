package auth

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// ValidationError reports a malformed input field on registration.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FieldRules describes the accepted format for one registration field.
type FieldRules struct {
	MinLength    int      `json:"min_length,omitempty"`
	MaxLength    int      `json:"max_length,omitempty"`
	Pattern      string   `json:"pattern,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
}

// Rules returns the registration field rules, keyed by field name. Served
// verbatim so clients can mirror the checks before submitting.
func Rules() map[string]FieldRules {
	return map[string]FieldRules{
		"username": {
			MinLength: 3,
			MaxLength: 50,
			Pattern:   usernameRe.String(),
			Requirements: []string{
				"letters, digits, and underscores only",
				"must not start or end with an underscore",
			},
		},
		"email": {
			Pattern: emailRe.String(),
		},
		"mobile_number": {
			Pattern: mobileRe.String(),
			Requirements: []string{
				"spaces, hyphens, and parentheses are stripped before validation",
			},
		},
		"password": {
			MinLength: 8,
			Requirements: []string{
				"at least one uppercase letter",
				"at least one lowercase letter",
				"at least one digit",
				"at least one special character: " + passwordSpecials,
				"ASCII characters only",
			},
		},
	}
}

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	mobileRe   = regexp.MustCompile(`^\+?[1-9][0-9]{9,14}$`)
	// Characters stripped from mobile numbers before validation.
	mobileSepRe = regexp.MustCompile(`[\s\-()]`)
)

func validateUsername(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", &ValidationError{Field: "username", Message: "username cannot be empty"}
	}
	if len(v) < 3 {
		return "", &ValidationError{Field: "username", Message: "username must be at least 3 characters long"}
	}
	if len(v) > 50 {
		return "", &ValidationError{Field: "username", Message: "username cannot be longer than 50 characters"}
	}
	if !usernameRe.MatchString(v) {
		return "", &ValidationError{Field: "username", Message: "username can only contain letters, numbers, and underscores"}
	}
	if strings.HasPrefix(v, "_") || strings.HasSuffix(v, "_") {
		return "", &ValidationError{Field: "username", Message: "username cannot start or end with underscore"}
	}
	return v, nil
}

func validateEmail(v string) (string, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "", &ValidationError{Field: "email", Message: "email cannot be empty"}
	}
	if !emailRe.MatchString(v) {
		return "", &ValidationError{Field: "email", Message: "please enter a valid email address"}
	}
	return v, nil
}

// normalizeMobile strips spaces, dashes, and parentheses, then validates the
// remaining digits. Returns the normalized form that is stored and matched on.
func normalizeMobile(v string) (string, error) {
	v = mobileSepRe.ReplaceAllString(v, "")
	if v == "" {
		return "", &ValidationError{Field: "mobile_number", Message: "mobile number cannot be empty"}
	}
	if !mobileRe.MatchString(v) {
		return "", &ValidationError{Field: "mobile_number", Message: "mobile number must contain 10-15 digits, e.g. 1234567890 or +1234567890"}
	}
	return v, nil
}

const passwordSpecials = `!@#$%^&*(),.?":{}|<>`

func validatePassword(v string) error {
	if strings.TrimSpace(v) == "" {
		return &ValidationError{Field: "password", Message: "password cannot be empty"}
	}
	if len(v) < 8 {
		return &ValidationError{Field: "password", Message: "password must be at least 8 characters long"}
	}
	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, r := range v {
		if r > unicode.MaxASCII {
			return &ValidationError{Field: "password", Message: "password can only contain English letters, numbers, and special characters"}
		}
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasNumber = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		}
	}
	if !hasUpper {
		return &ValidationError{Field: "password", Message: "password must contain at least one uppercase letter"}
	}
	if !hasLower {
		return &ValidationError{Field: "password", Message: "password must contain at least one lowercase letter"}
	}
	if !hasNumber {
		return &ValidationError{Field: "password", Message: "password must contain at least one number"}
	}
	if !hasSpecial {
		return &ValidationError{Field: "password", Message: `password must contain at least one special character (!@#$%^&*(),.?":{}|<>)`}
	}
	return nil
}
