package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/observability"
	"github.com/stemsi/exstem-proctor/internal/service"
)

const (
	ResultPollTimeout  = 1 * time.Second
	ResultRetryBackoff = 3 * time.Second
	MaxResultAttempts  = 20
)

// ResultSyncer retries one queued result.
type ResultSyncer interface {
	Sync(ctx context.Context, q service.QueuedResult) error
}

// ResultSyncWorker drains the result retry queue into the results collaborator.
// Failed items are requeued; items past MaxResultAttempts move to the dead queue.
type ResultSyncWorker struct {
	syncer  ResultSyncer
	rdb     *redis.Client
	log     zerolog.Logger
	backoff time.Duration
}

func NewResultSyncWorker(syncer ResultSyncer, rdb *redis.Client, log zerolog.Logger) *ResultSyncWorker {
	return &ResultSyncWorker{
		syncer:  syncer,
		rdb:     rdb,
		log:     log.With().Str("component", "result_sync_worker").Logger(),
		backoff: ResultRetryBackoff,
	}
}

// ─── Worker loop ───────────────────────────────────────────────────

func (w *ResultSyncWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultSyncWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ResultSyncWorker stopped")
			return
		default:
		}

		item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("BLPop error")
				w.sleep(ctx)
			}
			continue
		}
		if len(item) < 2 {
			continue
		}

		var q service.QueuedResult
		if err := json.Unmarshal([]byte(item[1]), &q); err != nil {
			w.log.Error().Err(err).Msg("Invalid JSON payload")
			continue
		}

		if !w.process(ctx, q) {
			w.sleep(ctx)
		}
	}
}

// process syncs one item and reports whether it left the retry queue for good.
func (w *ResultSyncWorker) process(ctx context.Context, q service.QueuedResult) bool {
	log := w.log.With().
		Str("session_id", q.Record.SessionID).
		Str("test_id", q.Record.TestID).
		Int("attempts", q.Attempts).
		Logger()

	err := w.syncer.Sync(ctx, q)
	if err == nil {
		log.Info().Msg("Queued result synced")
		return true
	}

	q.Attempts++
	raw, _ := json.Marshal(q)

	// Requeue with a fresh context so shutdown never loses an item.
	pushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if q.Attempts >= MaxResultAttempts {
		log.Error().Err(err).Msg("Result sync gave up, moving to dead queue")
		observability.ResultPersistTotal.WithLabelValues("dead").Inc()
		if pErr := w.rdb.RPush(pushCtx, config.WorkerKey.DeadResultsQueue, raw).Err(); pErr != nil {
			log.Error().Err(pErr).Msg("Dead queue push failed")
		}
		return true
	}

	log.Warn().Err(err).Msg("Result sync failed, requeueing")
	if pErr := w.rdb.RPush(pushCtx, config.WorkerKey.PersistResultsQueue, raw).Err(); pErr != nil {
		log.Error().Err(pErr).Msg("Requeue failed")
	}
	return false
}

func (w *ResultSyncWorker) sleep(ctx context.Context) {
	t := time.NewTimer(w.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
