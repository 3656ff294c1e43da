package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCustomerName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"kone", "KONE"},
		{"  Kone  ", "KONE"},
		{"awa\tdiallo", "AWA DIALLO"},
		{"boutique éclair", "BOUTIQUE ÉCLAIR"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCustomerName(tt.in), tt.in)
	}
}

func TestResolveCustomerName(t *testing.T) {
	assert.Equal(t, WalkInCustomerName, ResolveCustomerName("  "))
	assert.Equal(t, "KONE", ResolveCustomerName("kone"))
}
