package kafka

import (
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// ProducerConfig describes the shared writer. Zero fields take the defaults
// applied by normalize.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int    // -1 all replicas, 0 none, 1 leader
	Compression  string // none, gzip, snappy, lz4 or zstd; default snappy
	MaxAttempts  int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	BatchSize    int
	BatchBytes   int
	Linger       time.Duration
	Async        bool
	// KeyOrdered hashes keys to partitions so every event for one signal
	// lands on the same partition. Unkeyed writes are spread round robin.
	KeyOrdered bool
}

func (c ProducerConfig) normalize() (ProducerConfig, error) {
	if len(c.Brokers) == 0 {
		return c, fmt.Errorf("kafka producer: no brokers")
	}
	switch c.RequiredAcks {
	case -1, 0, 1:
	default:
		return c, fmt.Errorf("kafka producer: required acks %d not in -1, 0, 1", c.RequiredAcks)
	}
	if c.Compression == "" {
		c.Compression = "snappy"
	}
	if _, err := compressionCodec(c.Compression); err != nil {
		return c, err
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.BatchBytes <= 0 {
		c.BatchBytes = 1 << 20
	}
	if c.Linger <= 0 {
		c.Linger = 50 * time.Millisecond
	}
	return c, nil
}

// compressionCodec maps a config name onto the writer codec. "none" is the
// zero codec.
func compressionCodec(name string) (kafka.Compression, error) {
	switch name {
	case "none":
		return 0, nil
	case "gzip":
		return kafka.Gzip, nil
	case "snappy":
		return kafka.Snappy, nil
	case "lz4":
		return kafka.Lz4, nil
	case "zstd":
		return kafka.Zstd, nil
	}
	return 0, fmt.Errorf("kafka producer: unknown compression %q", name)
}

func (c ProducerConfig) balancer() kafka.Balancer {
	if c.KeyOrdered {
		return &kafka.Hash{}
	}
	return &kafka.LeastBytes{}
}
