package prompt

import (
	"strings"
	"testing"
)

func TestLoadReplySet(t *testing.T) {
	t.Parallel()

	set := LoadReplySet()
	for name, text := range map[string]string{
		"greeting":  set.Greeting,
		"thanks":    set.Thanks,
		"complaint": set.Complaint,
		"fallback":  set.Fallback,
	} {
		if text == "" || strings.HasSuffix(text, "\n") {
			t.Fatalf("%s reply is not trimmed: %q", name, text)
		}
	}
	if !strings.Contains(set.Fallback, "outlets in Klang") {
		t.Fatalf("fallback should suggest an outlet query: %q", set.Fallback)
	}
}

func TestUnavailable(t *testing.T) {
	t.Parallel()

	got := LoadReplySet().Unavailable("outlet_search")
	if got != "Sorry, outlet search is unavailable right now. Please try again in a moment." {
		t.Fatalf("Unavailable() = %q", got)
	}
}
