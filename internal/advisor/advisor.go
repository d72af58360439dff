// Package advisor переводит сухие метрики отчёта в короткое связное резюме
// через языковую модель. Без ключа API пакет молчит: отчёт остаётся полным,
// просто без текстовой сводки.
package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"jobAggregator/internal/config"
	"jobAggregator/internal/logger"
	"jobAggregator/internal/stats"
)

const systemPrompt = `Ты аналитик рынка труда. По списку наблюдений о выборке вакансий
составь короткое резюме для соискателя: 3-5 предложений, по-русски, без списков
и заголовков. Опирайся только на переданные наблюдения, ничего не выдумывай.`

type Advisor struct {
	client    *openai.Client
	model     string
	maxTokens int
	log       *logger.Zap
}

// New возвращает советника; с пустым ключом — выключенного (nil-безопасного).
func New(cfg config.OpenAI, log *logger.Zap) *Advisor {
	if cfg.KeyAI == "" {
		return nil
	}
	return &Advisor{
		client:    openai.NewClient(cfg.KeyAI),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		log:       log,
	}
}

// Enabled сообщает, доступна ли генерация резюме.
func (a *Advisor) Enabled() bool { return a != nil }

// Summarize формирует текстовое резюме по наблюдениям отчёта. Любой сбой
// модели деградирует до пустой строки: отчёт важнее резюме.
func (a *Advisor) Summarize(ctx context.Context, insights []stats.Insight) string {
	if !a.Enabled() || len(insights) == 0 {
		return ""
	}

	var b strings.Builder
	for _, ins := range insights {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", ins.Category, ins.Title, ins.Description)
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: b.String(),
			},
		},
		MaxTokens:   a.maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		a.log.Warn("Резюме отчёта не сгенерировано", zap.Error(err))
		return ""
	}
	if len(resp.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}
