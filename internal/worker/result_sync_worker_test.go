package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stretchr/testify/require"
)

type flakySyncer struct {
	mu       sync.Mutex
	failures int
	calls    int
	synced   []service.QueuedResult
}

func (s *flakySyncer) Sync(_ context.Context, q service.QueuedResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return errors.New("platform down")
	}
	s.synced = append(s.synced, q)
	return nil
}

func (s *flakySyncer) syncedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.synced)
}

func newWorkerRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	rdb := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return server, rdb
}

func pushQueued(t *testing.T, rdb *redis.Client, q service.QueuedResult) {
	t.Helper()
	raw, err := json.Marshal(q)
	require.NoError(t, err)
	require.NoError(t, rdb.RPush(context.Background(), config.WorkerKey.PersistResultsQueue, raw).Err())
}

func TestResultSyncWorkerRetriesUntilSynced(t *testing.T) {
	_, rdb := newWorkerRedis(t)
	syncer := &flakySyncer{failures: 2}
	w := NewResultSyncWorker(syncer, rdb, zerolog.Nop())
	w.backoff = 10 * time.Millisecond

	pushQueued(t, rdb, service.QueuedResult{Record: model.TestResultRecord{TestID: "t1", SessionID: "s1"}, Attempts: 1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return syncer.syncedCount() == 1 }, 5*time.Second, 20*time.Millisecond)
	cancel()
	<-done

	require.Equal(t, 3, syncer.synced[0].Attempts)
}

func TestResultSyncWorkerDeadQueue(t *testing.T) {
	server, rdb := newWorkerRedis(t)
	w := NewResultSyncWorker(&flakySyncer{failures: 1}, rdb, zerolog.Nop())

	left := w.process(context.Background(), service.QueuedResult{
		Record:   model.TestResultRecord{TestID: "t1"},
		Attempts: MaxResultAttempts - 1,
	})
	require.True(t, left)

	dead, err := server.List(config.WorkerKey.DeadResultsQueue)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	require.False(t, server.Exists(config.WorkerKey.PersistResultsQueue))
}

// blpopCounter counts BLPOP commands issued by the client.
type blpopCounter struct{ n atomic.Int32 }

func (h *blpopCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *blpopCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "blpop" {
			h.n.Add(1)
		}
		return next(ctx, cmd)
	}
}

func (h *blpopCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestResultSyncWorkerBacksOffWhenRedisDown(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	addr := server.Addr()
	server.Close()

	rdb := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	counter := &blpopCounter{}
	rdb.AddHook(counter)

	w := NewResultSyncWorker(&flakySyncer{}, rdb, zerolog.Nop())
	w.backoff = 200 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	time.Sleep(500 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	calls := counter.n.Load()
	require.GreaterOrEqual(t, calls, int32(1))
	require.LessOrEqual(t, calls, int32(4))
}
