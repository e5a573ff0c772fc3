package auth

import "testing"

func TestValidateUsername(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"alice", "alice", false},
		{"  alice  ", "alice", false},
		{"al_ice42", "al_ice42", false},
		{"", "", true},
		{"ab", "", true},
		{"_alice", "", true},
		{"alice_", "", true},
		{"al ice", "", true},
		{"alice!", "", true},
	}
	for _, tc := range cases {
		got, err := validateUsername(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("validateUsername(%q): want error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("validateUsername(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("validateUsername(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	got, err := validateEmail("  Alice@Example.COM  ")
	if err != nil {
		t.Fatalf("validateEmail: %v", err)
	}
	if got != "alice@example.com" {
		t.Errorf("got %q, want trimmed lowercase", got)
	}
	for _, bad := range []string{"", "plain", "a@b", "a@b.", "@example.com"} {
		if _, err := validateEmail(bad); err == nil {
			t.Errorf("validateEmail(%q): want error", bad)
		}
	}
}

func TestNormalizeMobile(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+14155550100", "+14155550100", false},
		{"+1 (415) 555-0100", "+14155550100", false},
		{"9876543210", "9876543210", false},
		{"", "", true},
		{"   ", "", true},
		{"12345", "", true},
		{"0123456789", "", true}, // leading zero
		{"+1234567890123456", "", true}, // too long
	}
	for _, tc := range cases {
		got, err := normalizeMobile(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("normalizeMobile(%q): want error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("normalizeMobile(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("normalizeMobile(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := validatePassword("Valid1!pass"); err != nil {
		t.Errorf("valid password rejected: %v", err)
	}
	bad := []string{
		"",
		"V1!a",         // too short
		"valid1!pass",  // no uppercase
		"VALID1!PASS",  // no lowercase
		"Valid!passs",  // no digit
		"Valid1passs",  // no special
		"Valid1!päss",  // non-ascii
	}
	for _, pw := range bad {
		if err := validatePassword(pw); err == nil {
			t.Errorf("validatePassword(%q): want error", pw)
		}
	}
}
