package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/gloved-dev/glovedcat/internal/chat"
	"github.com/gloved-dev/glovedcat/internal/config"
	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// Provider implements chat.Querier over a registry of configured models.
// One model is current at a time; Use switches it.
type Provider struct {
	mu      sync.RWMutex
	models  map[string]llms.Model
	order   []string
	current string

	generation config.GenerationConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewProvider builds the model registry from configuration. Gemini models
// go through the googleai backend, groq-hosted models through the
// OpenAI-compatible endpoint.
func NewProvider(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Provider, error) {
	p := &Provider{
		models:     make(map[string]llms.Model),
		generation: cfg.Generation,
		httpClient: http.DefaultClient,
		logger:     logger,
	}

	for _, mc := range cfg.Models {
		var (
			client llms.Model
			err    error
		)

		switch mc.Provider {
		case "google":
			client, err = googleai.New(
				ctx,
				googleai.WithAPIKey(cfg.GeminiKey),
				googleai.WithDefaultModel(mc.Name),
			)
		case "groq":
			client, err = openai.New(
				openai.WithToken(cfg.GroqKey),
				openai.WithBaseURL(groqBaseURL),
				openai.WithModel(mc.Name),
			)
		default:
			err = fmt.Errorf("unknown model provider %q", mc.Provider)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create client for model %s: %w", mc.Name, err)
		}

		p.models[mc.Name] = client
		p.order = append(p.order, mc.Name)
	}

	if len(p.order) == 0 {
		return nil, fmt.Errorf("no models configured")
	}

	p.current = cfg.DefaultModel()
	if _, ok := p.models[p.current]; !ok {
		p.current = p.order[0]
	}

	return p, nil
}

// Models lists the configured model names in registry order.
func (p *Provider) Models() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, len(p.order))
	copy(names, p.order)
	return names
}

// Current returns the name of the active model.
func (p *Provider) Current() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.current
}

// Use switches the active model.
func (p *Provider) Use(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.models[name]; !ok {
		return fmt.Errorf("unknown model %q", name)
	}
	p.current = name
	return nil
}

// Query implements chat.Querier: it converts the conversation window into
// langchaingo message content and generates with the configured sampling
// parameters. No retries on model failure.
func (p *Provider) Query(ctx context.Context, system string, window []chat.ChatMessage) (string, error) {
	p.mu.RLock()
	model := p.models[p.current]
	name := p.current
	p.mu.RUnlock()

	llmMessages := make([]llms.MessageContent, 0, len(window)+1)
	llmMessages = append(llmMessages, llms.TextParts(llms.ChatMessageTypeSystem, system))

	for _, msg := range window {
		converted, err := p.convertMessage(ctx, msg)
		if err != nil {
			return "", err
		}
		llmMessages = append(llmMessages, converted)
	}

	p.logger.Debug().
		Str("model", name).
		Int("messages", len(llmMessages)).
		Msg("generating content")

	resp, err := model.GenerateContent(
		ctx,
		llmMessages,
		llms.WithTemperature(p.generation.Temperature),
		llms.WithMaxTokens(p.generation.MaxOutputTokens),
		llms.WithFrequencyPenalty(p.generation.FrequencyPenalty),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from model")
	}

	return resp.Choices[0].Content, nil
}

// convertMessage maps one conversation turn to langchaingo content parts.
// File references are downloaded so the model receives the bytes.
func (p *Provider) convertMessage(ctx context.Context, msg chat.ChatMessage) (llms.MessageContent, error) {
	msgType := llms.ChatMessageTypeHuman
	if msg.Role == chat.RoleAssistant {
		msgType = llms.ChatMessageTypeAI
	}

	if len(msg.Parts) == 0 {
		return llms.TextParts(msgType, msg.Text), nil
	}

	parts := make([]llms.ContentPart, 0, len(msg.Parts))
	for _, part := range msg.Parts {
		switch part.Type {
		case chat.PartTypeText:
			parts = append(parts, llms.TextPart(part.Text))
		case chat.PartTypeImage:
			parts = append(parts, llms.ImageURLPart(part.Image))
		case chat.PartTypeFile:
			data, err := p.fetchData(ctx, part.Data)
			if err != nil {
				return llms.MessageContent{}, err
			}
			parts = append(parts, llms.BinaryPart(part.MIMEType, data))
		}
	}

	return llms.MessageContent{Role: msgType, Parts: parts}, nil
}

// fetchData downloads the bytes behind an attachment reference.
func (p *Provider) fetchData(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build attachment request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("attachment download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("attachment download returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
