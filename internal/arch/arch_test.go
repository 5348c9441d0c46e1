package arch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTarget(t *testing.T) {
	d := Default()
	assert.Equal(t, "sm90", d.Name)
	assert.Equal(t, 3, d.MaxBulkRank)
	assert.Equal(t, 128, d.BankRowBytes())
}

func TestLookup(t *testing.T) {
	tgt, ok := Lookup("sm80")
	require.True(t, ok)
	assert.Equal(t, 1, tgt.ClusterSize)
	assert.Equal(t, 2, tgt.MaxBulkRank)

	_, ok = Lookup("sm999")
	assert.False(t, ok)
}

func TestNamesCoverTable(t *testing.T) {
	names := Names()
	assert.Len(t, names, 3)
	assert.Contains(t, names, "generic")
}
