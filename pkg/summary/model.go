package summary

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/autodoc/autodoc/pkg/config"
	aderrors "github.com/autodoc/autodoc/pkg/errors"
)

// DefaultModel is used when the configuration names none.
const DefaultModel = "gpt-4o-mini"

const promptTemplate = "You are a data analyst. Given the context below, write a concise, " +
	"executive summary (5-8 bullet points) in Portuguese with insights, risks, and next steps." +
	"\n\nContexto:\n%s"

// Model asks a chat-completions endpoint for the narrative.
type Model struct {
	cfg    config.SummaryConfig
	client *openai.Client
}

// NewModel creates a model-backed summarizer.
func NewModel(cfg config.SummaryConfig) *Model {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Model{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

// Name implements Summarizer.
func (m *Model) Name() string { return "model:" + m.cfg.Model }

// Summarize implements Summarizer. Failures come back as text starting with ErrorPrefix.
func (m *Model) Summarize(ctx context.Context, c Context) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ErrorPrefix + " " + fmt.Sprint(r)
		}
	}()

	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}

	out, err := m.complete(ctx, fmt.Sprintf(promptTemplate, formatContext(c)))
	if err != nil {
		log.Printf("[summary] model call failed: %v", err)
		return ErrorPrefix + " " + err.Error()
	}
	return out
}

func (m *Model) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       m.cfg.Model,
		Temperature: m.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", aderrors.New(aderrors.CodeSummaryFailed, "model returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
