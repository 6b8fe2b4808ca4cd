package domain

import (
	"testing"

	"github.com/dmitrijs2005/fediauth/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   Domain
		wantOK bool
	}{
		{name: "bare host", raw: "example.social", want: "example.social", wantOK: true},
		{name: "https scheme", raw: "https://example.social", want: "example.social", wantOK: true},
		{name: "whitespace and case", raw: "  Mastodon.Example \n", want: "mastodon.example", wantOK: true},
		{name: "path dropped", raw: "https://example.social/@alice", want: "example.social", wantOK: true},
		{name: "port dropped", raw: "example.social:8443", want: "example.social", wantOK: true},
		{name: "subdomain", raw: "social.example.co.uk", want: "social.example.co.uk", wantOK: true},
		{name: "idn to punycode", raw: "münchen.social", want: "xn--mnchen-3ya.social", wantOK: true},
		{name: "underscore", raw: "my_server.example", want: "my_server.example", wantOK: true},
		{name: "leading hyphen", raw: "-foo.example", want: "-foo.example", wantOK: true},
		{name: "trailing hyphen", raw: "foo-.social", want: "foo-.social", wantOK: true},
		{name: "double hyphen", raw: "ab--cd.example", want: "ab--cd.example", wantOK: true},
		{name: "ace prefix kept", raw: "xn--zz.example", want: "xn--zz.example", wantOK: true},
		{name: "mixed idn labels", raw: "Social.Bücher.Example", want: "social.xn--bcher-kva.example", wantOK: true},
		{name: "single label", raw: "localhost", wantOK: false},
		{name: "empty", raw: "", wantOK: false},
		{name: "only spaces", raw: "   ", wantOK: false},
		{name: "empty label", raw: "a..b.com", wantOK: false},
		{name: "trailing dot", raw: "example.social.", wantOK: false},
		{name: "leading dot", raw: ".example.social", wantOK: false},
		{name: "scheme only", raw: "https://", wantOK: false},
		{name: "http scheme becomes garbage host", raw: "http://example.social", wantOK: false},
		{name: "space inside", raw: "exa mple.social", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
				assert.True(t, got.Valid())
			} else {
				assert.Equal(t, Domain(""), got)
				assert.False(t, got.Valid())
			}
		})
	}
}

func TestNormalize_DeterministicAndIdempotent(t *testing.T) {
	inputs := []string{
		"example.social", "https://example.social", "  EXAMPLE.social  ",
		"localhost", "", "a..b.com", "münchen.social", "social.example.co.uk:443",
		"https://host.example/path?q=1", "::::", "https://[::1]:80",
	}
	for _, raw := range inputs {
		first, ok1 := Normalize(raw)
		second, ok2 := Normalize(raw)
		require.Equal(t, first, second, "deterministic for %q", raw)
		require.Equal(t, ok1, ok2)

		again, okAgain := Normalize(first.String())
		if ok1 {
			require.True(t, okAgain, "normalized %q must stay valid", first)
			require.Equal(t, first, again, "idempotent for %q", raw)
		} else {
			require.False(t, okAgain)
		}
	}
}

func TestValidate(t *testing.T) {
	d, err := Validate("Mastodon.Example")
	require.NoError(t, err)
	assert.Equal(t, Domain("mastodon.example"), d)
	assert.Equal(t, "https://mastodon.example", d.BaseURL())

	_, err = Validate("localhost")
	require.ErrorIs(t, err, common.ErrInvalidDomain)
}
