package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeSet(t *testing.T) {
	set := CodeSet([]string{" Geo_Mismatch ", "", "VPN", "vpn"})
	assert.Len(t, set, 2)
	assert.Contains(t, set, "geo_mismatch")
	assert.Contains(t, set, "vpn")
	assert.Equal(t, "x", NormalizeCode("  X "))
}
