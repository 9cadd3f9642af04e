package identity_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afisha/internal/identity"
)

func TestNormalizeExplicit(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"66", "66", true},
		{"66.0", "66", true},
		{"66.00", "66", true},
		{" 66.0 ", "66", true},
		{"0", "0", true},
		{"", "", false},
		{"66.5", "", false},
		{"abc", "", false},
		{"66a", "", false},
	}
	for _, tc := range cases {
		got, ok := identity.NormalizeExplicit(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestDerive_Deterministic(t *testing.T) {
	a := identity.Derive("15.01", "Jazz Night", "ул. Мира, 5")
	b := identity.Derive("15.01", "Jazz Night", "ул. Мира, 5")
	assert.Equal(t, a, b)
}

func TestDerive_Format(t *testing.T) {
	id := identity.Derive("15.01", "Jazz Night", "ул. Мира, 5")
	require.Regexp(t, regexp.MustCompile(`^e[0-9a-f]{8}$`), id)
}

func TestDerive_DistinguishesFields(t *testing.T) {
	// Order-sensitive hash: swapping field contents must change the result.
	a := identity.Derive("15.01", "A", "B")
	b := identity.Derive("15.01", "B", "A")
	assert.NotEqual(t, a, b)
}

func TestForDate(t *testing.T) {
	assert.Equal(t, "66", identity.ForDate("66", 1, 1))
	assert.Equal(t, "66.1", identity.ForDate("66", 1, 3))
	assert.Equal(t, "66.3", identity.ForDate("66", 3, 3))
}
