package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexFloat64AcceptsNumberAndString(t *testing.T) {
	var payload struct {
		Amount FlexFloat64 `json:"amount"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"amount": 4200.5}`), &payload))
	assert.Equal(t, 4200.5, payload.Amount.Float64())

	require.NoError(t, json.Unmarshal([]byte(`{"amount": "1250.75"}`), &payload))
	assert.Equal(t, 1250.75, payload.Amount.Float64())

	err := json.Unmarshal([]byte(`{"amount": "not-a-number"}`), &payload)
	require.Error(t, err)
}

func TestFlexListAcceptsSingleValueOrArray(t *testing.T) {
	var payload struct {
		IDs FlexList[string] `json:"ids"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"ids": ["a", "b"]}`), &payload))
	assert.Equal(t, []string{"a", "b"}, payload.IDs.Slice())

	require.NoError(t, json.Unmarshal([]byte(`{"ids": "solo"}`), &payload))
	assert.Equal(t, []string{"solo"}, payload.IDs.Slice())
}
