package samlvalidate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPortNormalizingURIComparator(t *testing.T) {
	cmp := PortNormalizingURIComparator{}

	// spec.md §8 scenario 6: explicit default port must equal implicit.
	require.True(t, cmp.Equal("https://sp.example:443/acs", "https://sp.example/acs"))
	require.True(t, cmp.Equal("http://sp.example:80/acs", "http://sp.example/acs"))
	require.False(t, cmp.Equal("https://sp.example:8443/acs", "https://sp.example/acs"))
	require.False(t, cmp.Equal("https://sp.example/acs", "https://other.example/acs"))
	require.True(t, cmp.Equal("https://sp.example/acs?x=1", "https://sp.example/acs?x=1"))
	require.False(t, cmp.Equal("https://sp.example/acs?x=1", "https://sp.example/acs?x=2"))
}

func TestParseURIOK(t *testing.T) {
	require.True(t, parseURIOK("https://sp.example/acs"))
	require.False(t, parseURIOK("not a uri"))
	require.False(t, parseURIOK("/relative/path"))
}
