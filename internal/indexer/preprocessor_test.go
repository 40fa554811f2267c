package indexer

import (
	"strings"
	"testing"
)

func TestCleanScraped(t *testing.T) {
	raw := `## Webex meeting audio issue
![logo](https://community.cisco.com/logo.png)
[Alice Smith](/t5/user/avatar/123)

Audio drops after 10 minutes. See https://help.webex.com/article/1 for details.
[Back](javascript:void(0))
[Level 3]
Bob Level 2 posted 3 days ago

Restart the Webex client and clear the cache.
Discover and save your favorite ideas
Come back to expert answers, step-by-step guides.`

	got := CleanScraped(raw)
	for _, gone := range []string{"![", "https://", "##", "avatar", "Alice Smith", "[Level 3]", "posted 3 days ago", "javascript", "Discover and save", "expert answers"} {
		if strings.Contains(got, gone) {
			t.Errorf("cleaned text still contains %q:\n%s", gone, got)
		}
	}
	for _, kept := range []string{"Webex meeting audio issue", "Audio drops after 10 minutes.", "Restart the Webex client and clear the cache."} {
		if !strings.Contains(got, kept) {
			t.Errorf("cleaned text lost %q:\n%s", kept, got)
		}
	}
	for _, line := range strings.Split(got, "\n") {
		if strings.TrimSpace(line) == "" || line != strings.TrimSpace(line) {
			t.Errorf("line not trimmed or blank: %q", line)
		}
	}
}

func TestCleanScraped_userAgentWarning(t *testing.T) {
	got := CleanScraped("USER_AGENT environment variable not set, consider setting it.\nReal content here")
	if got != "Real content here" {
		t.Errorf("got %q", got)
	}
}

func TestCleanScraped_empty(t *testing.T) {
	if got := CleanScraped("  \n\n  "); got != "" {
		t.Errorf("got %q", got)
	}
}
