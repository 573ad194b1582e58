package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSinkTopic(t *testing.T) {
	tests := []struct {
		payload   map[string]any
		name      string
		wantTopic string
		wantOK    bool
	}{
		{
			name: "kafka destination",
			payload: map[string]any{
				"name":        "orders-sink",
				"destination": map[string]any{"type": "kafka", "topic": "orders", "hosts": "localhost:9092"},
			},
			wantTopic: "orders",
			wantOK:    true,
		},
		{
			name:      "type is case insensitive",
			payload:   map[string]any{"destination": map[string]any{"type": "Kafka", "topic": "orders"}},
			wantTopic: "orders",
			wantOK:    true,
		},
		{
			name:    "other destination",
			payload: map[string]any{"destination": map[string]any{"type": "sqs", "topic": "orders"}},
		},
		{
			name:    "missing topic",
			payload: map[string]any{"destination": map[string]any{"type": "kafka"}},
		},
		{
			name:    "no destination",
			payload: map[string]any{"name": "x"},
		},
		{
			name:    "malformed destination",
			payload: map[string]any{"destination": "kafka"},
		},
		{
			name: "nil payload",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topic, ok := SinkTopic(tt.payload)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantTopic, topic)
		})
	}
}
