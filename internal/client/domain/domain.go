// Package domain turns free-form user input into the canonical host name of
// an instance.
package domain

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/fediauth/internal/common"
	"golang.org/x/net/idna"
)

// Domain is a validated, lower-cased host with at least two non-empty
// dot-separated labels. The zero value is the invalid marker.
type Domain string

func (d Domain) String() string { return string(d) }

// Valid reports whether d is a normalized domain.
func (d Domain) Valid() bool { return d != "" }

// BaseURL is the https origin of the instance.
func (d Domain) BaseURL() string { return "https://" + string(d) }

// Normalize trims and lower-cases raw, parses it as an https URL and returns
// its host. ok is false when there is no host, a label is empty or there are
// fewer than two labels. Normalize never panics and has no side effects.
func Normalize(raw string) (d Domain, ok bool) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return "", false
	}

	urlString := trimmed
	if !strings.HasPrefix(urlString, "https://") {
		urlString = "https://" + urlString
	}

	u, err := url.Parse(urlString)
	if err != nil {
		return "", false
	}
	host := u.Hostname()
	if host == "" {
		return "", false
	}

	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return "", false
	}
	for i, l := range labels {
		if l == "" {
			return "", false
		}
		labels[i] = toASCII(l)
	}

	return Domain(strings.Join(labels, ".")), true
}

// toASCII punycode-encodes a label with non-ASCII runes. ASCII labels are
// kept as typed, hyphens and underscores included.
func toASCII(label string) string {
	if isASCII(label) {
		return label
	}
	ascii, err := idna.Punycode.ToASCII(label)
	if err != nil {
		return label
	}
	return ascii
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// Validate is Normalize returning common.ErrInvalidDomain on failure.
func Validate(raw string) (Domain, error) {
	d, ok := Normalize(raw)
	if !ok {
		return "", common.ErrInvalidDomain
	}
	return d, nil
}
