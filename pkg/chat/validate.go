package chat

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxMessageLen is the cap on outbound message length, in runes.
const MaxMessageLen = 5000

// unsafePatterns is a small denylist of script-injection shapes. This
// is defense in depth on the client side, not a substitute for
// server-side sanitization.
var unsafePatterns = []struct {
	re   *regexp.Regexp
	desc string
}{
	{regexp.MustCompile(`(?i)<\s*script\b`), "embedded script tag"},
	{regexp.MustCompile(`(?i)\bon[a-z]+\s*=`), "inline event handler"},
	{regexp.MustCompile(`(?i)javascript\s*:`), "javascript URI"},
	{regexp.MustCompile(`(?i)<\s*iframe\b`), "embedded iframe"},
}

// validateText checks the user's text before any network activity.
// The checks run in order: empty, length, denylist.
func validateText(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return &ValidationError{Reason: ReasonEmpty, Detail: "message is empty"}
	}
	if n := utf8.RuneCountInString(text); n > MaxMessageLen {
		return &ValidationError{
			Reason: ReasonTooLong,
			Detail: fmt.Sprintf("message is %d characters, limit is %d", n, MaxMessageLen),
		}
	}
	for _, p := range unsafePatterns {
		if p.re.MatchString(text) {
			return &ValidationError{Reason: ReasonUnsafe, Detail: p.desc}
		}
	}
	return nil
}
