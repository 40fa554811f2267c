package assembler

import "testing"

func TestAuthority_IsAuthoritative(t *testing.T) {
	a := NewAuthority([]string{"help.webex.com", " Cisco.com ", ""})
	tests := []struct {
		name       string
		candidates []string
		want       bool
	}{
		{"exact host", []string{"https://help.webex.com/en-us/article/123"}, true},
		{"subdomain", []string{"https://www.cisco.com/c/en/us/support"}, true},
		{"bare host path", []string{"help.webex.com/article/9"}, true},
		{"lookalike", []string{"https://notcisco.com/page"}, false},
		{"other host", []string{"https://community.example.org/t/1"}, false},
		{"plain thread id then url source", []string{"thread-42", "https://help.webex.com/x"}, true},
		{"no url", []string{"thread-42", "forum"}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.IsAuthoritative(tt.candidates...); got != tt.want {
				t.Errorf("IsAuthoritative(%v) = %v, want %v", tt.candidates, got, tt.want)
			}
		})
	}
	if len(a.Domains()) != 2 {
		t.Errorf("domains = %v", a.Domains())
	}
}
