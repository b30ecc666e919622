package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"ChartScan/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisQueue is a list-backed job queue. Failed messages wait in a sorted
// set until their retry time; permanent failures and exhausted retries land
// on a dead-letter list.
type RedisQueue struct {
	log    *logger.Logger
	cfg    QueueConfig
	client *redis.Client
	now    func() time.Time

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewRedisQueue(log *logger.Logger, client *redis.Client, cfg QueueConfig) *RedisQueue {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 10 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "chartscan:queue"
	}
	return &RedisQueue{
		log:    log.With(logger.String("component", "queue"), logger.String("queue", cfg.KeyPrefix)),
		cfg:    cfg,
		client: client,
		now:    time.Now,
		jobs:   make(map[string]Job),
	}
}

// RegisterJob routes messages of job.Type() to job. A second job for the
// same type is ignored.
func (r *RedisQueue) RegisterJob(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.Type()]; ok {
		r.log.Warn("job already registered", logger.String("job", job.Name()))
		return
	}
	r.jobs[job.Type()] = job
	r.log.Info("job registered", logger.String("job", job.Name()), logger.String("type", job.Type()))
}

// Start checks the connection and launches the workers and the retry mover.
func (r *RedisQueue) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("queue already running")
	}

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := r.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.running = true
	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker(ctx, i)
	}
	r.wg.Add(1)
	go r.retryLoop(ctx)

	r.log.Info("queue started", logger.Int("workers", r.cfg.Workers), logger.String("addr", r.client.Options().Addr))
	return nil
}

// Stop cancels in-flight jobs and waits for the workers until ctx expires.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("queue stop: %w", ctx.Err())
	case <-done:
		r.log.Info("queue stopped")
		return nil
	}
}

// PublishMessage enqueues payload for the job registered under msgType.
func (r *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	r.mu.RLock()
	_, ok := r.jobs[msgType]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no job registered for type %q", msgType)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	data, err := json.Marshal(Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   raw,
		Timestamp: r.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := r.client.LPush(ctx, r.key("messages"), data).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", msgType, err)
	}
	return nil
}

// Depth reports how many messages are waiting, not counting retries.
func (r *RedisQueue) Depth(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, r.key("messages")).Result()
}

// DeadLetters returns up to n dead messages, newest first.
func (r *RedisQueue) DeadLetters(ctx context.Context, n int64) ([]Message, error) {
	raw, err := r.client.LRange(ctx, r.key("dlq"), 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(raw))
	for _, s := range raw {
		var m Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *RedisQueue) worker(ctx context.Context, id int) {
	defer r.wg.Done()
	for ctx.Err() == nil {
		if _, err := r.processNext(ctx, time.Second); err != nil && ctx.Err() == nil {
			r.log.Error("queue read", logger.Int("worker_id", id), logger.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// processNext waits up to wait for one message and handles it. It reports
// whether a message was taken.
func (r *RedisQueue) processNext(ctx context.Context, wait time.Duration) (bool, error) {
	res, err := r.client.BRPop(ctx, wait, r.key("messages")).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		if ctx.Err() != nil {
			return false, nil
		}
		return false, err
	case len(res) < 2:
		return false, nil
	}

	var msg Message
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		r.log.Error("drop undecodable message", logger.Error(err))
		return true, nil
	}
	r.handle(ctx, msg)
	return true, nil
}

func (r *RedisQueue) handle(ctx context.Context, msg Message) {
	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !ok {
		msg.LastError = "no job registered"
		r.deadLetter(ctx, msg)
		return
	}

	start := r.now()
	err := job.Handle(ctx, msg.Payload)
	fields := []logger.Field{
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts+1),
		logger.Duration("elapsed", r.now().Sub(start)),
	}
	switch {
	case err == nil:
		r.log.Info("job done", fields...)
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		// shutting down; put it back for the next process
		r.log.Warn("job interrupted", fields...)
		r.retry(context.Background(), msg, r.now())
	case errors.Is(err, ErrPermanent):
		r.log.Error("job rejected", append(fields, logger.Error(err))...)
		msg.LastError = err.Error()
		r.deadLetter(ctx, msg)
	case msg.Attempts >= r.cfg.RetryLimit:
		r.log.Error("job failed, retries exhausted", append(fields, logger.Error(err))...)
		msg.LastError = err.Error()
		r.deadLetter(ctx, msg)
	default:
		msg.Attempts++
		msg.LastError = err.Error()
		at := r.now().Add(r.backoff(msg.Attempts))
		r.log.Warn("job failed, retrying", append(fields, logger.Error(err), logger.String("retry_at", at.Format(time.RFC3339)))...)
		r.retry(ctx, msg, at)
	}
}

// backoff doubles RetryDelay per attempt.
func (r *RedisQueue) backoff(attempt int) time.Duration {
	d := r.cfg.RetryDelay
	for i := 1; i < attempt && d < time.Hour; i++ {
		d *= 2
	}
	return d
}

func (r *RedisQueue) retry(ctx context.Context, msg Message, at time.Time) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("encode retry", logger.Error(err))
		return
	}
	if err := r.client.ZAdd(ctx, r.key("retry"), redis.Z{Score: float64(at.Unix()), Member: data}).Err(); err != nil {
		r.log.Error("schedule retry", logger.String("id", msg.ID), logger.Error(err))
	}
}

func (r *RedisQueue) deadLetter(ctx context.Context, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("encode dead letter", logger.Error(err))
		return
	}
	if err := r.client.LPush(ctx, r.key("dlq"), data).Err(); err != nil {
		r.log.Error("dead letter", logger.String("id", msg.ID), logger.Error(err))
	}
}

func (r *RedisQueue) retryLoop(ctx context.Context) {
	defer r.wg.Done()
	t := time.NewTicker(r.cfg.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := r.promoteDue(ctx); err != nil && ctx.Err() == nil {
				r.log.Error("promote retries", logger.Error(err))
			}
		}
	}
}

// promoteDue moves retries whose time has come back onto the list. A member
// is pushed only by the instance whose ZREM removed it.
func (r *RedisQueue) promoteDue(ctx context.Context) (int, error) {
	due, err := r.client.ZRangeByScore(ctx, r.key("retry"), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(r.now().Unix(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, member := range due {
		n, err := r.client.ZRem(ctx, r.key("retry"), member).Result()
		if err != nil {
			return moved, err
		}
		if n == 0 {
			continue
		}
		if err := r.client.LPush(ctx, r.key("messages"), member).Err(); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

func (r *RedisQueue) key(name string) string { return r.cfg.KeyPrefix + ":" + name }
