package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaymentConcepts(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
		wantErr  bool
	}{
		{name: "blank_uses_defaults", raw: "", expected: []string{"b2b", "c2p", "tdd"}},
		{name: "empty_array_uses_defaults", raw: "[]", expected: []string{"b2b", "c2p", "tdd"}},
		{name: "order_preserved", raw: `["tdd","b2b"]`, expected: []string{"tdd", "b2b"}},
		{name: "case_and_space_normalized", raw: `[" C2P "]`, expected: []string{"c2p"}},
		{name: "duplicates_dropped", raw: `["b2b","b2b","c2p"]`, expected: []string{"b2b", "c2p"}},
		{name: "unknown_concept_rejected", raw: `["b2b","crypto"]`, wantErr: true},
		{name: "python_literal_rejected", raw: `['b2b', 'c2p']`, wantErr: true},
		{name: "expression_rejected", raw: `__import__('os').system('id')`, wantErr: true},
		{name: "object_rejected", raw: `{"b2b":true}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePaymentConcepts(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.Strings())
		})
	}
}

func TestPaymentConcepts_OrDefault(t *testing.T) {
	var empty PaymentConcepts
	assert.Equal(t, DefaultPaymentConcepts(), empty.OrDefault())
	custom := PaymentConcepts{PaymentConceptC2P}
	assert.Equal(t, custom, custom.OrDefault())
}
