package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
)

const monitorBuffer = 256

// MonitorEventType names what happened to a session.
type MonitorEventType string

const (
	MonitorJoined     MonitorEventType = "joined"
	MonitorViolation  MonitorEventType = "violation"
	MonitorWarning    MonitorEventType = "warning"
	MonitorLoadFailed MonitorEventType = "load_failed"
	MonitorEnded      MonitorEventType = "ended"
)

// MonitorEvent is published on the test's monitor channel for supervisors.
type MonitorEvent struct {
	Type           MonitorEventType `json:"type"`
	SessionID      string           `json:"session_id"`
	TestID         string           `json:"test_id"`
	StudentEmail   string           `json:"student_email"`
	StudentName    string           `json:"student_name"`
	ViolationKind  string           `json:"violation_kind,omitempty"`
	ViolationCount int              `json:"violation_count"`
	Message        string           `json:"message,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
}

// MonitorService fans session activity out to supervisors over Redis pub/sub.
// Emit never blocks; a background loop publishes.
type MonitorService struct {
	rdb   *redis.Client
	queue chan MonitorEvent
	log   zerolog.Logger
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(rdb *redis.Client, log zerolog.Logger) *MonitorService {
	return &MonitorService{
		rdb:   rdb,
		queue: make(chan MonitorEvent, monitorBuffer),
		log:   log.With().Str("component", "monitor").Logger(),
	}
}

// Emit queues an event. Events are dropped when the buffer is full.
func (s *MonitorService) Emit(ev MonitorEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	select {
	case s.queue <- ev:
	default:
		s.log.Warn().Str("type", string(ev.Type)).Str("session_id", ev.SessionID).Msg("Monitor buffer full, event dropped")
	}
}

// Run publishes queued events until ctx is cancelled.
func (s *MonitorService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.queue:
			if err := s.publish(ctx, ev); err != nil && ctx.Err() == nil {
				s.log.Warn().Err(err).Str("type", string(ev.Type)).Msg("Monitor publish failed")
			}
		}
	}
}

func (s *MonitorService) publish(ctx context.Context, ev MonitorEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, config.CacheKey.TestMonitorChannel(ev.TestID), raw).Err()
}

// Subscribe streams events of one test until ctx is cancelled. The returned
// channel is closed when the subscription ends.
func (s *MonitorService) Subscribe(ctx context.Context, testID string) (<-chan MonitorEvent, error) {
	sub := s.rdb.Subscribe(ctx, config.CacheKey.TestMonitorChannel(testID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan MonitorEvent, 16)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev MonitorEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					s.log.Warn().Err(err).Msg("Invalid monitor payload")
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
