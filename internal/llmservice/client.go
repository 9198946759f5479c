package llmservice

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/rachid48133/studygenie/internal/config"
	"github.com/rachid48133/studygenie/internal/models"
)

var thinkTagRe = regexp.MustCompile(models.ThinkTag)

// Request is one completion call.
type Request struct {
	Model       string
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

func (r *Response) TotalTokens() int { return r.InputTokens + r.OutputTokens }

// Generator produces a completion. Implementations fail hard on provider errors.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// LangChain generates through a langchaingo model.
type LangChain struct {
	llm llms.Model
}

func NewLangChain(llm llms.Model) *LangChain {
	return &LangChain{llm: llm}
}

// NewModel creates the langchaingo model selected by cfg.Provider. The model
// name passed here is only a default; each Request names its own.
func NewModel(cfg config.LLMConfig) (llms.Model, error) {
	key := config.APIKey(cfg.APIKeyEnv)
	defaultModel := cfg.PlanModels[cfg.DefaultPlan]

	switch cfg.Provider {
	case "anthropic":
		if key == "" {
			return nil, fmt.Errorf("%s environment variable not set", cfg.APIKeyEnv)
		}
		opts := []anthropic.Option{anthropic.WithToken(key), anthropic.WithModel(defaultModel)}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		return anthropic.New(opts...)
	case "openai":
		opts := []openai.Option{openai.WithToken(key), openai.WithModel(defaultModel)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(opts...)
	case "ollama":
		return ollama.New(ollama.WithServerURL(cfg.BaseURL), ollama.WithModel(defaultModel))
	}
	return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
}

// call llm
func (g *LangChain) Generate(ctx context.Context, req Request) (*Response, error) {
	log.Debug().
		Str("model", req.Model).
		Int("max_tokens", req.MaxTokens).
		Float64("temperature", req.Temperature).
		Msg("Generating content")

	msgContent := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: req.System}},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: req.User}},
		},
	}

	opts := []llms.CallOption{
		llms.WithMaxTokens(req.MaxTokens),
		llms.WithTemperature(req.Temperature),
	}
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}

	res, err := g.llm.GenerateContent(ctx, msgContent, opts...)
	if err != nil {
		return nil, err
	}
	if len(res.Choices) == 0 {
		return nil, errors.New("model returned no choices")
	}

	choice := res.Choices[0]
	in, out := tokenUsage(choice.GenerationInfo)
	return &Response{
		Text:         CleanOutput(choice.Content),
		InputTokens:  in,
		OutputTokens: out,
	}, nil
}

// CleanOutput drops reasoning blocks some local models emit before the answer.
func CleanOutput(text string) string {
	return strings.TrimSpace(thinkTagRe.ReplaceAllString(text, ""))
}

// tokenUsage reads token counts from provider-specific generation info keys.
func tokenUsage(info map[string]any) (int, int) {
	in := firstInt(info, "InputTokens", "PromptTokens", "prompt_tokens")
	out := firstInt(info, "OutputTokens", "CompletionTokens", "completion_tokens")
	return in, out
}

func firstInt(info map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}

// ModelForPlan returns the model of plan, falling back to the default plan.
func ModelForPlan(cfg config.LLMConfig, plan string) string {
	if m, ok := cfg.PlanModels[plan]; ok {
		return m
	}
	return cfg.PlanModels[cfg.DefaultPlan]
}
