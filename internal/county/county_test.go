// SPDX-License-Identifier: MIT

package county

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	for _, name := range []string{"Duval", "duval", "  DUVAL ", "Duval County"} {
		c, err := r.Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, "Duval", c.Name)
		assert.Equal(t, 1200.0, c.Density)
	}

	c, err := r.Lookup("palm   beach")
	require.NoError(t, err)
	assert.Equal(t, "12099", c.FIPS)
}

func TestLookup_Unknown(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	_, err = r.Lookup("gotham")
	assert.ErrorIs(t, err, ErrUnknownCounty)
	assert.Contains(t, err.Error(), "Gotham")
}

func TestParse_Rejects(t *testing.T) {
	_, err := Parse([]byte("counties:\n  - {name: A, density: 1}\n  - {name: a, density: 2}\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("counties:\n  - {name: '', density: 1}\n"))
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)
	names := r.Names()
	assert.Equal(t, "Alachua", names[0])
	assert.Contains(t, names, "Miami-Dade")
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "Miami-Dade", Normalize("miami-dade"))
	assert.Equal(t, "Palm Beach", Normalize("palm   beach"))
}
