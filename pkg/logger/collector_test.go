package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func TestCollectorDedupsRepeats(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 10, Topic: "logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		c.AddLog("error", "bar store failed", map[string]interface{}{"ticker": "AAPL"}, "scanner.go:10")
	}
	c.AddLog("error", "bar store failed", map[string]interface{}{"ticker": "MSFT"}, "scanner.go:10")
	c.Close()

	if pub.topic != "logs" || len(pub.batches) != 1 {
		t.Fatalf("got topic %q with %d batches", pub.topic, len(pub.batches))
	}
	counts := map[string]int{}
	for _, e := range pub.batches[0] {
		counts[e.Fields["ticker"].(string)] = e.Count
	}
	if counts["AAPL"] != 3 || counts["MSFT"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Topic: "logs", Publisher: pub})
	c.AddLog("warn", "a", nil, "x")
	c.AddLog("warn", "b", nil, "x")
	c.AddLog("warn", "c", nil, "x")
	c.Close()

	total := 0
	for _, b := range pub.batches {
		total += len(b)
	}
	if len(pub.batches) != 2 || total != 3 {
		t.Fatalf("got %d batches with %d entries", len(pub.batches), total)
	}
}

func TestLoggerForwardsErrorsToCollector(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "logs", Publisher: pub})
	l.Info("ignored")
	l.With(String("component", "scanner")).Error("boom", Error(errors.New("x")))
	l.RemoveCollector()

	if len(pub.batches) != 1 || len(pub.batches[0]) != 1 {
		t.Fatalf("unexpected batches %v", pub.batches)
	}
	e := pub.batches[0][0]
	if e.Level != "error" || e.Message != "boom" || e.Fields["error"] != "x" {
		t.Fatalf("unexpected entry %+v", e)
	}
}
