package assessor

import (
	"context"
	"errors"
	"testing"
	"time"

	"deal-hub/internal/domain"
	openai "deal-hub/internal/infra/openai"
)

type fakeChatClient struct {
	content string
	err     error
}

func (f *fakeChatClient) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatMessage{Content: f.content}}},
	}, nil
}

func TestAssessParsesJudgment(t *testing.T) {
	client := &fakeChatClient{content: `{"isValid": true, "score": 8.7, "category": "electronics", "dealType": "top", "reasons": ["big discount", " "], "suggestedTitle": "Echo Dot — 67% Off"}`}
	a := NewLLM(client, "gpt-4o", time.Second)
	j := a.Assess(context.Background(), domain.DealDraft{Title: "Echo Dot", DiscountPercentage: 67})
	if !j.IsValid {
		t.Fatalf("ожидали валидный вердикт")
	}
	if j.Score != 8.7 {
		t.Fatalf("ожидали score 8.7, получили %v", j.Score)
	}
	if j.Tier != domain.TierTop {
		t.Fatalf("ожидали витрину top, получили %s", j.Tier)
	}
	if len(j.Reasons) != 1 {
		t.Fatalf("ожидали отбрасывание пустых причин, получили %v", j.Reasons)
	}
	if j.SuggestedTitle != "Echo Dot — 67% Off" {
		t.Fatalf("ожидали улучшенный заголовок, получили %q", j.SuggestedTitle)
	}
}

func TestAssessClampsScore(t *testing.T) {
	client := &fakeChatClient{content: `{"isValid": true, "score": 14, "category": "home", "dealType": "hot", "reasons": []}`}
	a := NewLLM(client, "gpt-4o", time.Second)
	j := a.Assess(context.Background(), domain.DealDraft{})
	if j.Score != 10 {
		t.Fatalf("ожидали ограничение score до 10, получили %v", j.Score)
	}
}

func TestAssessFallsBackOnError(t *testing.T) {
	client := &fakeChatClient{err: errors.New("timeout")}
	a := NewLLM(client, "gpt-4o", time.Second)
	j := a.Assess(context.Background(), domain.DealDraft{DiscountPercentage: 75})
	if j.Score != 9 || j.Tier != domain.TierTop || !j.IsValid {
		t.Fatalf("ожидали вердикт запасного правила для скидки 75%%, получили %+v", j)
	}
	if len(j.Reasons) != 1 || j.Reasons[0] != fallbackReason {
		t.Fatalf("ожидали причину о запасном правиле, получили %v", j.Reasons)
	}
}

func TestAssessFallsBackOnMalformedTier(t *testing.T) {
	client := &fakeChatClient{content: `{"isValid": true, "score": 9, "category": "home", "dealType": "mega", "reasons": []}`}
	a := NewLLM(client, "gpt-4o", time.Second)
	j := a.Assess(context.Background(), domain.DealDraft{DiscountPercentage: 5})
	if j.IsValid {
		t.Fatalf("ожидали невалидный вердикт запасного правила для скидки 5%%")
	}
	if j.Tier != domain.TierLatest {
		t.Fatalf("ожидали витрину latest, получили %s", j.Tier)
	}
}

func TestAssessFallsBackOnMissingFields(t *testing.T) {
	client := &fakeChatClient{content: `{"category": "home"}`}
	a := NewLLM(client, "gpt-4o", time.Second)
	j := a.Assess(context.Background(), domain.DealDraft{DiscountPercentage: 50})
	if j.Score != 7 || j.Tier != domain.TierHot {
		t.Fatalf("ожидали вердикт запасного правила для скидки 50%%, получили %+v", j)
	}
}
