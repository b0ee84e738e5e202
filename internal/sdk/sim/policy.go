package sim

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

const minPasswordLen = 8

// checkPolicy validates a candidate password. refs are values the
// candidate must not resemble: the username always, plus the credential
// being replaced on an expired update. Returns an empty string when the
// candidate passes, or the reason it does not.
func (e *Engine) checkPolicy(value string, refs []string) string {
	if len(value) < minPasswordLen {
		return fmt.Sprintf("password must be at least %d characters", minPasswordLen)
	}
	var upper, lower, digit bool
	for _, r := range value {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return "password needs upper case, lower case and a digit"
	}
	if e.cfg.MinPasswordDistance <= 0 {
		return ""
	}
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		d := levenshtein.ComputeDistance(strings.ToLower(value), strings.ToLower(ref))
		if d < e.cfg.MinPasswordDistance {
			return "password is too close to your name or previous password"
		}
	}
	return ""
}
