package article

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeIDStable(t *testing.T) {
	a := MakeID("https://example.com/story")
	b := MakeID("https://example.com/story")
	c := MakeID("https://example.com/other")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
	assert.Equal(t, a, MakeID("  https://example.com/story  "), "surrounding whitespace ignored")
}

func TestNormalize(t *testing.T) {
	a := Article{Title: "  Title  ", CanonicalURL: " https://news.example.com/a "}
	assert.True(t, a.Normalize())
	assert.Equal(t, "Title", a.Title)
	assert.Equal(t, "https://news.example.com/a", a.CanonicalURL)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "news.example.com", a.SourceDomain)

	noTitle := Article{CanonicalURL: "https://x.com/a"}
	assert.False(t, noTitle.Normalize())

	noURL := Article{Title: "t"}
	assert.False(t, noURL.Normalize())
}

func TestNormalizeKeepsExistingIdentity(t *testing.T) {
	a := Article{ID: "fixed", Title: "t", CanonicalURL: "https://x.com/a", SourceDomain: "custom.example"}
	assert.True(t, a.Normalize())
	assert.Equal(t, "fixed", a.ID)
	assert.Equal(t, "custom.example", a.SourceDomain)
}

func TestDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.reuters.com/markets/1", "reuters.com"},
		{"http://example.com", "example.com"},
		{"https://sub.example.co.kr/path?x=1", "sub.example.co.kr"},
		{"https://Example.COM/#frag", "example.com"},
		{"", "unknown"},
		{"https://", "unknown"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, Domain(tc.in), "input %q", tc.in)
	}
}
