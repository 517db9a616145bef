package queue

import (
	"context"
	"fmt"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// maxStreamLen caps the stream so acknowledged history does not grow forever.
const maxStreamLen = 10000

// StreamQueue appends jobs to a Redis Stream.
type StreamQueue struct {
	rdb    *rd.Client
	stream string
}

func NewStreamQueue(rdb *rd.Client, stream string) *StreamQueue {
	return &StreamQueue{rdb: rdb, stream: stream}
}

// Enqueue appends a job. It does not wait for the job to be processed.
func (q *StreamQueue) Enqueue(ctx context.Context, job Job) error {
	if err := job.validate(); err != nil {
		return err
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	values, err := encode(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	if err := q.rdb.XAdd(ctx, &rd.XAddArgs{
		Stream: q.stream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue %s job: %w", job.Type, err)
	}
	return nil
}
