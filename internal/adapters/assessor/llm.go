package assessor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"deal-hub/internal/domain"
	"deal-hub/internal/infra/metrics"
	openai "deal-hub/internal/infra/openai"
)

type chatCompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMAssessor выносит вердикт по сделке через Chat Completions.
// Любая ошибка внешнего вызова или невалидный ответ приводят к запасному
// правилу: наружу всегда уходит готовый Judgment.
type LLMAssessor struct {
	client  chatCompletionClient
	model   string
	timeout time.Duration
}

// NewLLM создаёт оценщик на базе OpenAI Chat Completions.
func NewLLM(client chatCompletionClient, model string, timeout time.Duration) *LLMAssessor {
	if model == "" {
		model = "gpt-4o"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LLMAssessor{client: client, model: model, timeout: timeout}
}

type llmJudgmentResponse struct {
	IsValid        *bool    `json:"isValid"`
	Score          *float64 `json:"score"`
	Category       string   `json:"category"`
	Tier           string   `json:"dealType"`
	Reasons        []string `json:"reasons"`
	SuggestedTitle string   `json:"suggestedTitle"`
}

// Assess реализует domain.Assessor.
func (a *LLMAssessor) Assess(ctx context.Context, draft domain.DealDraft) domain.Judgment {
	judgment, err := a.assess(ctx, draft)
	if err != nil {
		log.Warn().Err(err).Str("title", draft.Title).Msg("assessor: переход на запасное правило")
		metrics.AssessorFallbackTotal.Inc()
		return fallbackJudgment(draft)
	}
	return judgment
}

func (a *LLMAssessor) assess(ctx context.Context, draft domain.DealDraft) (domain.Judgment, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	description := draft.Description
	if description == "" {
		description = "No description"
	}
	userPrompt := fmt.Sprintf(`
Analyze this deal and provide a validation assessment in JSON format.

Deal details:
- Title: %s
- Original Price: $%s
- Sale Price: $%s
- Discount: %d%%
- Store: %s
- Category: %s
- Description: %s

Respond with JSON in this exact format:
{"isValid": boolean, "score": number (0-10), "category": "electronics|fashion|home|travel|sports|beauty|other", "dealType": "top|hot|latest", "reasons": ["reason1", "reason2"], "suggestedTitle": "optional improved title if needed"}

Evaluation criteria:
- Score 0-3: poor deal (fake discounts, overpriced, suspicious)
- Score 4-6: average deal (moderate savings, decent value)
- Score 7-8: good deal (significant savings, popular items)
- Score 9-10: excellent deal (exceptional savings, high-demand items)

Deal type classification:
- "top": score 8+, popular categories, high discount percentage
- "hot": score 6+, trending items, time-sensitive
- "latest": score 4+, newly added deals`,
		draft.Title, draft.OriginalPrice, draft.SalePrice, draft.DiscountPercentage,
		draft.Store, draft.Category, description)

	req := openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0.3,
		Messages: []openai.ChatMessage{
			{
				Role:    openai.RoleSystem,
				Content: "You are an expert deal validation assistant that evaluates e-commerce deals for quality, authenticity, and value. Always respond with valid JSON.",
			},
			{
				Role:    openai.RoleUser,
				Content: userPrompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ResponseFormatTypeJSONObject,
		},
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.Judgment{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Judgment{}, fmt.Errorf("chat completion: пустой ответ")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	var parsed llmJudgmentResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return domain.Judgment{}, fmt.Errorf("распаковка ответа LLM: %w", err)
	}
	if parsed.IsValid == nil || parsed.Score == nil {
		return domain.Judgment{}, fmt.Errorf("ответ LLM без обязательных полей")
	}
	tier := domain.DealTier(parsed.Tier)
	if !domain.ValidTier(tier) {
		return domain.Judgment{}, fmt.Errorf("недопустимая витрина в ответе LLM: %q", parsed.Tier)
	}

	category := strings.TrimSpace(parsed.Category)
	if category == "" {
		category = draft.Category
	}
	if category == "" {
		category = "other"
	}

	return domain.Judgment{
		IsValid:        *parsed.IsValid,
		Score:          clampScore(*parsed.Score),
		Category:       category,
		Tier:           tier,
		Reasons:        filterNonEmpty(parsed.Reasons),
		SuggestedTitle: strings.TrimSpace(parsed.SuggestedTitle),
	}, nil
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

func filterNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
