// Package kafka checks broker connectivity and provisions topics for Kafka sinks.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/edgeflare/etlm/pkg/metrics"
	"go.uber.org/zap"
)

// ErrNoBrokers is returned when the broker address is empty.
var ErrNoBrokers = errors.New("no kafka brokers configured")

// Client opens short-lived sarama connections per call; the broker address is supplied by
// the caller so that settings changes apply immediately.
type Client struct {
	config Config
	logger *zap.Logger
}

func NewClient(config Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config: config,
		logger: logger,
	}
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.config
}

// Ping reports whether a metadata request against addr succeeds. Errors are logged, not returned.
func (c *Client) Ping(ctx context.Context, addr string) bool {
	err := run(ctx, func() error {
		brokers := Brokers(addr)
		if len(brokers) == 0 {
			return ErrNoBrokers
		}
		conf, err := c.config.ToSaramaConfig()
		if err != nil {
			return err
		}
		client, err := sarama.NewClient(brokers, conf)
		if err != nil {
			return err
		}
		defer client.Close()
		if len(client.Brokers()) == 0 {
			return sarama.ErrOutOfBrokers
		}
		return nil
	})

	ok := err == nil
	if !ok {
		c.logger.Warn("kafka connection check failed", zap.String("brokers", addr), zap.Error(err))
	}
	metrics.SetReachable(metrics.TargetKafka, ok)
	return ok
}

// EnsureTopic creates topic on addr unless it already exists.
func (c *Client) EnsureTopic(ctx context.Context, addr, topic string) error {
	return run(ctx, func() error {
		brokers := Brokers(addr)
		if len(brokers) == 0 {
			return ErrNoBrokers
		}
		conf, err := c.config.ToSaramaConfig()
		if err != nil {
			return err
		}

		admin, err := sarama.NewClusterAdmin(brokers, conf)
		if err != nil {
			return fmt.Errorf("failed to create cluster admin: %w", err)
		}
		defer admin.Close()

		topics, err := admin.ListTopics()
		if err != nil {
			return fmt.Errorf("failed to list topics: %w", err)
		}
		if _, exists := topics[topic]; exists {
			c.logger.Debug("kafka topic exists", zap.String("topic", topic))
			return nil
		}

		detail := &sarama.TopicDetail{
			NumPartitions:     max(c.config.Partitions, 1),
			ReplicationFactor: max(c.config.Replicas, 1),
		}
		if c.config.RetentionMS > 0 {
			retention := strconv.FormatInt(c.config.RetentionMS, 10)
			detail.ConfigEntries = map[string]*string{"retention.ms": &retention}
		}

		err = admin.CreateTopic(topic, detail, false)
		if errors.Is(err, sarama.ErrTopicAlreadyExists) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to create topic %s: %w", topic, err)
		}

		metrics.TopicsCreated.Inc()
		c.logger.Info("kafka topic created",
			zap.String("topic", topic),
			zap.Int32("partitions", detail.NumPartitions),
			zap.Int16("replicas", detail.ReplicationFactor))
		return nil
	})
}

// run executes fn, returning early with ctx.Err() if ctx ends first. sarama calls are not
// context-aware, so fn keeps running in the background until its own timeouts fire.
func run(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
