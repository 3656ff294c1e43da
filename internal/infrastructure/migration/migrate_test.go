package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionOf(t *testing.T) {
	v, err := versionOf("000003_create_ledgers")
	require.NoError(t, err)
	assert.Equal(t, uint(3), v)

	_, err = versionOf("create_ledgers")
	assert.Error(t, err)
}

func TestStatus_UpToDate(t *testing.T) {
	tests := []struct {
		name string
		st   Status
		want bool
	}{
		{"blank database", Status{Current: 0, Latest: 4}, false},
		{"all applied", Status{Current: 4, Latest: 4}, true},
		{"ahead of this binary", Status{Current: 5, Latest: 4}, true},
		{"dirty", Status{Current: 4, Latest: 4, Dirty: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.st.UpToDate())
		})
	}
}

func TestEmbeddedMigrations_Versions(t *testing.T) {
	names, err := EmbeddedMigrations()
	require.NoError(t, err)

	for i, name := range names {
		v, err := versionOf(name)
		require.NoError(t, err)
		assert.Equal(t, uint(i+1), v, "migrations must be numbered without gaps")
	}
}
