package assembler

import (
	"net/url"
	"strings"
)

// Authority decides whether a thread comes from a trusted documentation domain.
type Authority struct {
	domains []string
}

// NewAuthority normalises the allowlist to lowercase hosts.
func NewAuthority(domains []string) *Authority {
	a := &Authority{}
	for _, d := range domains {
		d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), ".")
		if d != "" {
			a.domains = append(a.domains, d)
		}
	}
	return a
}

// Domains returns the allowlist.
func (a *Authority) Domains() []string {
	return append([]string(nil), a.domains...)
}

// IsAuthoritative checks the host of each URL-looking candidate (thread id first, then source)
// against the allowlist. A host matches a domain when it equals it or is a subdomain of it.
func (a *Authority) IsAuthoritative(candidates ...string) bool {
	for _, c := range candidates {
		host := hostOf(c)
		if host == "" {
			continue
		}
		for _, d := range a.domains {
			if host == d || strings.HasSuffix(host, "."+d) {
				return true
			}
		}
	}
	return false
}

func hostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		// Bare "host/path" sources are common in scraped data.
		if !strings.Contains(strings.SplitN(raw, "/", 2)[0], ".") {
			return ""
		}
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
}
