package scheduler

import (
	"context"
	"testing"
	"time"

	"drivecash_backend/internal/events"
	"drivecash_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type stubSchedulerConfig struct {
	redisURL string
}

func (c stubSchedulerConfig) GetRedisURL() string              { return c.redisURL }
func (c stubSchedulerConfig) GetRedisTLSInsecure() bool        { return false }
func (c stubSchedulerConfig) GetAsynqQueueName() string        { return "default" }
func (c stubSchedulerConfig) GetAsynqConcurrency() int         { return 1 }
func (c stubSchedulerConfig) GetDraftRetention() time.Duration { return 30 * 24 * time.Hour }
func (c stubSchedulerConfig) IsSchedulerEnabled() bool         { return c.redisURL != "" }

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Subscribe(string, events.Handler) {}
func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.published = append(b.published, e)
}
func (b *recordingBus) PublishSync(_ context.Context, e events.Event) error {
	b.published = append(b.published, e)
	return nil
}

func TestWorkerHandleNotificationOutboxDue(t *testing.T) {
	srv := miniredis.RunT(t)

	bus := &recordingBus{}
	worker, err := NewWorker(stubSchedulerConfig{redisURL: "redis://" + srv.Addr()}, bus, logger.New("development"))
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}

	outboxID := uuid.New()
	task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{OutboxID: outboxID.String()})
	if err != nil {
		t.Fatalf("NewNotificationOutboxDueTask: %v", err)
	}

	if err := worker.handleNotificationOutboxDue(context.Background(), task); err != nil {
		t.Fatalf("handleNotificationOutboxDue: %v", err)
	}

	if len(bus.published) != 1 {
		t.Fatalf("published events = %d, want 1", len(bus.published))
	}
	due, ok := bus.published[0].(events.NotificationOutboxDue)
	if !ok {
		t.Fatalf("published event type = %T, want NotificationOutboxDue", bus.published[0])
	}
	if due.OutboxID != outboxID {
		t.Errorf("outbox id = %s, want %s", due.OutboxID, outboxID)
	}
}

func TestWorkerRejectsMalformedOutboxID(t *testing.T) {
	srv := miniredis.RunT(t)

	bus := &recordingBus{}
	worker, err := NewWorker(stubSchedulerConfig{redisURL: "redis://" + srv.Addr()}, bus, logger.New("development"))
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}

	task := asynq.NewTask(TaskNotificationOutboxDue, []byte(`{"outboxId":"not-a-uuid"}`))
	if err := worker.handleNotificationOutboxDue(context.Background(), task); err == nil {
		t.Fatal("expected error for malformed outbox id")
	}
	if len(bus.published) != 0 {
		t.Errorf("published events = %d, want 0", len(bus.published))
	}
}

func TestNewWorkerRequiresRedisURL(t *testing.T) {
	if _, err := NewWorker(stubSchedulerConfig{}, &recordingBus{}, logger.New("development")); err == nil {
		t.Fatal("expected error without redis url")
	}
}

func TestNotificationOutboxDuePayloadRoundTrip(t *testing.T) {
	id := uuid.New().String()
	task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{OutboxID: id})
	if err != nil {
		t.Fatalf("NewNotificationOutboxDueTask: %v", err)
	}
	if task.Type() != TaskNotificationOutboxDue {
		t.Errorf("task type = %s, want %s", task.Type(), TaskNotificationOutboxDue)
	}

	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		t.Fatalf("ParseNotificationOutboxDuePayload: %v", err)
	}
	if payload.OutboxID != id {
		t.Errorf("outbox id = %s, want %s", payload.OutboxID, id)
	}
}

func TestRedisClientOpt(t *testing.T) {
	opt, err := redisClientOpt("redis://:secret@localhost:6380/2", false)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if opt.Addr != "localhost:6380" {
		t.Errorf("addr = %s, want localhost:6380", opt.Addr)
	}
	if opt.Password != "secret" {
		t.Errorf("password = %s, want secret", opt.Password)
	}
	if opt.DB != 2 {
		t.Errorf("db = %d, want 2", opt.DB)
	}
	if opt.TLSConfig != nil {
		t.Error("tls config should be nil for redis scheme")
	}

	opt, err = redisClientOpt("rediss://localhost:6380", true)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Error("expected insecure tls config for rediss with tlsInsecure")
	}

	if _, err := redisClientOpt("://bad", false); err == nil {
		t.Fatal("expected error for malformed url")
	}
}
