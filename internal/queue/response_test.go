package queue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		records int
		firstID string
	}{
		{"empty", "", 0, ""},
		{"scalar true", "true", 0, ""},
		{"single object", `{"id":"10","name":"x"}`, 1, "10"},
		{"graph list", `{"data":[{"id":"1"},{"id":"2"}]}`, 2, "1"},
		{"rest array", `[{"uid":1},{"uid":2},"ignored"]`, 2, ""},
		{"large id keeps precision", `{"id":100001234567890123}`, 1, "100001234567890123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, _, err := decodeBody(200, []byte(tt.body))
			require.NoError(t, err)
			assert.Len(t, records, tt.records)
			if tt.firstID != "" {
				assert.Equal(t, tt.firstID, records[0].String("id"))
			}
		})
	}
}

func TestDecodeBody_ErrorEnvelope(t *testing.T) {
	_, _, err := decodeBody(200, []byte(`{"error":{"message":"bad","type":"GraphMethodException"}}`))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "GraphMethodException", apiErr.Type)
	assert.False(t, IsAuthError(err))
}

func TestDecodeBody_Malformed(t *testing.T) {
	_, _, err := decodeBody(200, []byte(`{"data":`))
	assert.Error(t, err)
}

func TestAPIErrorFromBody_NoEnvelope(t *testing.T) {
	apiErr := apiErrorFromBody(503, []byte("Service Unavailable"))
	assert.Equal(t, 503, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "Service Unavailable")
}
