package kafka

import (
	"strings"

	"github.com/mitchellh/mapstructure"
)

type sinkDestination struct {
	Destination struct {
		Type  string `mapstructure:"type"`
		Topic string `mapstructure:"topic"`
	} `mapstructure:"destination"`
}

// SinkTopic returns the topic of a sink payload whose destination type is kafka.
func SinkTopic(payload map[string]any) (string, bool) {
	var sink sinkDestination
	if err := mapstructure.Decode(payload, &sink); err != nil {
		return "", false
	}
	if !strings.EqualFold(sink.Destination.Type, "kafka") {
		return "", false
	}
	topic := strings.TrimSpace(sink.Destination.Topic)
	return topic, topic != ""
}
