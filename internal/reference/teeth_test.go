package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeethCatalog(t *testing.T) {
	all := Teeth()
	require.Len(t, all, 32)

	seen := map[string]bool{}
	for _, tooth := range all {
		assert.False(t, seen[tooth.Code])
		seen[tooth.Code] = true
		assert.GreaterOrEqual(t, tooth.Quadrant, 1)
		assert.LessOrEqual(t, tooth.Quadrant, 4)
		assert.GreaterOrEqual(t, tooth.Position, 1)
		assert.LessOrEqual(t, tooth.Position, 8)
	}
}

func TestLookupTooth(t *testing.T) {
	tooth, ok := LookupTooth("11")
	require.True(t, ok)
	assert.Equal(t, "upper right central incisor", tooth.Name)

	tooth, ok = LookupTooth("48")
	require.True(t, ok)
	assert.Equal(t, "lower right third molar", tooth.Name)

	_, ok = LookupTooth("99")
	assert.False(t, ok)
}

func TestValidToothCode(t *testing.T) {
	assert.True(t, ValidToothCode("21"))
	assert.False(t, ValidToothCode("09"))
	assert.False(t, ValidToothCode(""))
	assert.False(t, ValidToothCode("1"))
}
