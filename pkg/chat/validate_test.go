package chat

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateText(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		reason ValidationReason // empty means valid
	}{
		{"plain question", "what is a pointer?", ""},
		{"unicode at the limit", strings.Repeat("ü", MaxMessageLen), ""},
		{"whitespace only", " \t\n ", ReasonEmpty},
		{"one over the limit", strings.Repeat("ü", MaxMessageLen+1), ReasonTooLong},
		{"script tag", "try <script>alert(1)</script>", ReasonUnsafe},
		{"script tag with spaces", "< script>x", ReasonUnsafe},
		{"inline handler", `<img onerror="steal()">`, ReasonUnsafe},
		{"unquoted inline handler", "<img onload=alert(1)>", ReasonUnsafe},
		{"javascript uri", "click javascript:void(0)", ReasonUnsafe},
		{"iframe", "<iframe src=x>", ReasonUnsafe},
		{"mentions onload in prose", "the onload event fires after parsing", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateText(tt.text)
			if tt.reason == "" {
				if err != nil {
					t.Errorf("validateText() = %v, want nil", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Reason != tt.reason {
				t.Errorf("validateText() = %v, want ValidationError(%s)", err, tt.reason)
			}
		})
	}
}

func TestValidateText_LengthCountsRunesNotBytes(t *testing.T) {
	// Multibyte runes at the limit are fine even though the byte
	// count is well past it.
	text := strings.Repeat("日", MaxMessageLen)
	if err := validateText(text); err != nil {
		t.Errorf("validateText() = %v, want nil for %d runes", err, MaxMessageLen)
	}
}
