package utils

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToAbsoluteURL(t *testing.T) {
	base, err := url.Parse("https://www.kds.tw/tv/china-tv-channels-online/")
	require.NoError(t, err)

	got, err := ToAbsoluteURL(base, "cctv-1.html")
	require.NoError(t, err)
	assert.Equal(t, "https://www.kds.tw/tv/china-tv-channels-online/cctv-1.html", got)

	got, err = ToAbsoluteURL(base, "https://example.com/x")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/x", got)
}

func TestIsHTTPURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://example.com/a", true},
		{"http://example.com", true},
		{"ftp://example.com", false},
		{"/relative/path", false},
		{"https://", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsHTTPURL(tt.in), tt.in)
	}
}

func TestRedact(t *testing.T) {
	got := Redact("https://cdn.example.com/live.m3u8?t=1234567890abc&token=abcdefghijklmnop", "t", "token")
	assert.Contains(t, got, "t=12345678...")
	assert.Contains(t, got, "token=abcdefgh...")
	assert.NotContains(t, got, "ijklmnop")
}

func TestHashURL(t *testing.T) {
	assert.Equal(t, HashURL("a"), HashURL("a"))
	assert.NotEqual(t, HashURL("a"), HashURL("b"))
	assert.Len(t, HashURL("a"), 64)
}
