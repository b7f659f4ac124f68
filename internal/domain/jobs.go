package domain

import (
	"context"
	"time"
)

// SubmissionJob содержит черновик сделки, поставленный источником в очередь.
type SubmissionJob struct {
	ID         string    `json:"job_id,omitempty"`
	Draft      DealDraft `json:"draft"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// SubmissionQueue описывает очередь черновиков на обработку конвейером.
type SubmissionQueue interface {
	Enqueue(ctx context.Context, job SubmissionJob) error
	Pop(ctx context.Context) (SubmissionJob, error)
}
