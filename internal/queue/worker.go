package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"supplylink/internal/metrics"

	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	readCount  = 16
	readBlock  = 2 * time.Second
	retryDelay = 300 * time.Millisecond
)

// HandlerFunc processes one job.
type HandlerFunc func(ctx context.Context, job Job) error

// Worker consumes jobs from a Redis Stream consumer group.
// Jobs are acknowledged whether or not their handler succeeds; failures are logged only.
type Worker struct {
	rdb      *rd.Client
	stream   string
	group    string
	consumer string
	handlers map[string]HandlerFunc
	logger   *zap.Logger
}

func NewWorker(rdb *rd.Client, stream, group, consumer string, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		rdb:      rdb,
		stream:   stream,
		group:    group,
		consumer: consumer,
		handlers: make(map[string]HandlerFunc),
		logger:   logger.Named("worker"),
	}
}

// Handle registers h for jobType, replacing any previous handler.
func (w *Worker) Handle(jobType string, h HandlerFunc) {
	w.handlers[jobType] = h
}

// Run consumes until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.EnsureGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}
	w.logger.Info("worker started", zap.String("stream", w.stream), zap.String("group", w.group))

	for {
		if ctx.Err() != nil {
			w.logger.Info("worker stopped")
			return nil
		}

		if _, err := w.ProcessBatch(ctx, readBlock); err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				w.logger.Info("worker stopped")
				return nil
			}
			w.logger.Warn("read jobs", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(retryDelay):
			}
		}
	}
}

func (w *Worker) EnsureGroup(ctx context.Context) error {
	err := w.rdb.XGroupCreateMkStream(ctx, w.stream, w.group, "0").Err()
	if err == nil || strings.Contains(err.Error(), "BUSYGROUP") {
		return nil
	}
	return err
}

// ProcessBatch handles entries left pending by this consumer first, then new
// ones, waiting up to block for them. A negative block does not wait.
func (w *Worker) ProcessBatch(ctx context.Context, block time.Duration) (int, error) {
	msgs, err := w.readGroup(ctx, "0", -1)
	if err != nil {
		return 0, fmt.Errorf("read pending: %w", err)
	}
	if len(msgs) == 0 {
		msgs, err = w.readGroup(ctx, ">", block)
		if err != nil {
			return 0, fmt.Errorf("read new: %w", err)
		}
	}

	for _, xm := range msgs {
		w.processOne(ctx, xm)
	}
	return len(msgs), nil
}

func (w *Worker) readGroup(ctx context.Context, streamID string, block time.Duration) ([]rd.XMessage, error) {
	streams, err := w.rdb.XReadGroup(ctx, &rd.XReadGroupArgs{
		Group:    w.group,
		Consumer: w.consumer,
		Streams:  []string{w.stream, streamID},
		Count:    readCount,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]rd.XMessage, 0, readCount)
	for _, s := range streams {
		out = append(out, s.Messages...)
	}
	return out, nil
}

func (w *Worker) processOne(ctx context.Context, xm rd.XMessage) {
	log := w.logger.With(zap.String("entry_id", xm.ID))

	job, err := decode(xm.ID, xm.Values)
	if err != nil {
		log.Warn("dropping malformed job", zap.Error(err))
		metrics.JobsProcessed.WithLabelValues("unknown", "malformed").Inc()
		w.ack(ctx, xm.ID, log)
		return
	}
	log = log.With(zap.String("type", job.Type))

	result := "ok"
	if h, ok := w.handlers[job.Type]; !ok {
		log.Warn("no handler registered")
		result = "unhandled"
	} else if err := h(ctx, job); err != nil {
		log.Error("job failed", zap.Error(err))
		result = "failed"
	}
	metrics.JobsProcessed.WithLabelValues(job.Type, result).Inc()

	w.ack(ctx, xm.ID, log)
}

func (w *Worker) ack(ctx context.Context, id string, log *zap.Logger) {
	pipe := w.rdb.TxPipeline()
	pipe.XAck(ctx, w.stream, w.group, id)
	pipe.XDel(ctx, w.stream, id)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error("ack job", zap.Error(err))
	}
}
