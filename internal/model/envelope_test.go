package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  bool
		wantType string
		wantData string
	}{
		{
			name:     "full envelope",
			input:    `{"type":"alert_update","data":{"action":"created"},"timestamp":"2024-01-15T12:00:00Z"}`,
			wantType: "alert_update",
			wantData: `{"action":"created"}`,
		},
		{
			name:     "missing data",
			input:    `{"type":"system_event","timestamp":"2024-01-15T12:00:00Z"}`,
			wantType: "system_event",
			wantData: `{}`,
		},
		{
			name:     "null data",
			input:    `{"type":"system_event","data":null,"timestamp":"2024-01-15T12:00:00Z"}`,
			wantType: "system_event",
			wantData: `{}`,
		},
		{
			name:    "missing type",
			input:   `{"data":{},"timestamp":"2024-01-15T12:00:00Z"}`,
			wantErr: true,
		},
		{
			name:    "missing timestamp",
			input:   `{"type":"client_update","data":{}}`,
			wantErr: true,
		},
		{
			name:    "not json",
			input:   `not json at all`,
			wantErr: true,
		},
		{
			name:    "array",
			input:   `[1,2,3]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tt.input))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedEnvelope)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, env.Topic())
			assert.JSONEq(t, tt.wantData, string(env.Data))
		})
	}
}

func TestEncodeEnvelope(t *testing.T) {
	env, err := NewEnvelope(TopicTransactionUpdate, TransactionUpdate{
		Action:      "flagged",
		Transaction: TransactionInfo{Amount: 150000},
	}, "2024-01-15T12:00:00Z")
	require.NoError(t, err)

	data, err := EncodeEnvelope(env)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "transaction_update", decoded["type"])
	assert.Equal(t, "2024-01-15T12:00:00Z", decoded["timestamp"])

	_, err = EncodeEnvelope(Envelope{})
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestSystemEventKind(t *testing.T) {
	assert.Equal(t, "maintenance", SystemEvent{Action: "maintenance", EventType: "other"}.Kind())
	assert.Equal(t, "security_breach", SystemEvent{EventType: "security_breach"}.Kind())
	assert.Equal(t, "", SystemEvent{}.Kind())
}

func TestAmount_Unmarshal(t *testing.T) {
	tests := []struct {
		input string
		want  Amount
	}{
		{`150000`, 150000},
		{`12.5`, 12.5},
		{`"150000.00"`, 150000},
		{`" 42 "`, 42},
		{`"n/a"`, 0},
		{`"NaN"`, 0},
		{`null`, 0},
		{`{"value":1}`, 0},
		{`true`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var info TransactionInfo
			require.NoError(t, json.Unmarshal([]byte(`{"amount":`+tt.input+`,"currency":"usd"}`), &info))
			assert.Equal(t, tt.want, info.Amount)
			assert.Equal(t, "usd", info.Currency, "other fields still decode")
		})
	}
}
