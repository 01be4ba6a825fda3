package beacon

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTXTRoundTrip(t *testing.T) {
	txt := EncodeTXT(42)
	assert.Contains(t, txt, "pvs=42")
	assert.Contains(t, txt, "ver=1")

	n, v, err := DecodeTXT(append(txt, "extra=x", "novalue"))
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.Equal(t, 1, v)
}

func TestDecodeTXTInvalid(t *testing.T) {
	_, _, err := DecodeTXT([]string{"pvs=many"})
	assert.Error(t, err)
}

func TestNewMDNSAnnouncerInstanceName(t *testing.T) {
	a := NewMDNSAnnouncer(MDNSConfig{})
	assert.Equal(t, DefaultInstance, a.config.Instance)

	long := NewMDNSAnnouncer(MDNSConfig{Instance: strings.Repeat("x", 100)})
	assert.Len(t, long.config.Instance, MaxInstanceNameLen)
}

func TestMDNSAnnouncerStopWithoutStart(t *testing.T) {
	a := NewMDNSAnnouncer(MDNSConfig{Port: 5064})
	a.Stop()
}
