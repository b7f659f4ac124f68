package seed

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"deal-hub/internal/domain"
)

type countingPipeline struct {
	calls int
}

func (c *countingPipeline) Submit(_ context.Context, _ domain.DealDraft) domain.SubmissionResult {
	c.calls++
	return domain.SubmissionResult{Success: true}
}

type onceCache struct {
	keys map[string]bool
}

func (c *onceCache) Once(key string, _ time.Duration, fn func() error) error {
	if c.keys == nil {
		c.keys = map[string]bool{}
	}
	if c.keys[key] {
		return nil
	}
	c.keys[key] = true
	return fn()
}

func (c *onceCache) Set(string, []byte, time.Duration) error { return nil }
func (c *onceCache) Get(string) ([]byte, error)              { return nil, nil }

func TestRunSubmitsAllDrafts(t *testing.T) {
	pipeline := &countingPipeline{}
	seeder := New(pipeline, nil, zerolog.Nop())

	if err := seeder.Run(context.Background()); err != nil {
		t.Fatalf("наполнение упало: %v", err)
	}
	if pipeline.calls != len(sampleDrafts) {
		t.Fatalf("ожидали %d черновиков, конвейер получил %d", len(sampleDrafts), pipeline.calls)
	}
}

func TestRunIsIdempotentWithCache(t *testing.T) {
	pipeline := &countingPipeline{}
	seeder := New(pipeline, &onceCache{}, zerolog.Nop())

	if err := seeder.Run(context.Background()); err != nil {
		t.Fatalf("первое наполнение упало: %v", err)
	}
	if err := seeder.Run(context.Background()); err != nil {
		t.Fatalf("повторное наполнение упало: %v", err)
	}
	if pipeline.calls != len(sampleDrafts) {
		t.Fatalf("повторный запуск не должен дублировать сделки, конвейер получил %d", pipeline.calls)
	}
}

func TestSampleDraftsAreComplete(t *testing.T) {
	for _, draft := range sampleDrafts {
		if draft.Title == "" || draft.Store == "" || draft.AffiliateURL == "" {
			t.Fatalf("демо-черновик без обязательных полей: %+v", draft)
		}
	}
}
