package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
)

// AnthropicProvider serves models directly from the Anthropic Messages API.
type AnthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider builds a provider. An empty baseURL uses the SDK default;
// httpClient may be nil.
func NewAnthropicProvider(baseURL, apiKey string, httpClient *http.Client) *AnthropicProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &AnthropicProvider{client: anthropic.NewClient(opts...)}
}

// Complete implements Provider.
func (p *AnthropicProvider) Complete(ctx context.Context, m model.Model, req Request) (Completion, error) {
	var system []string
	if req.System != "" {
		system = append(system, req.System)
	}
	msgs := make([]anthropic.MessageParam, 0, len(req.History)+1)
	for _, t := range conversation(req) {
		switch t.Role {
		case model.RoleSystem:
			system = append(system, t.Content)
		case model.RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.Upstream()),
		MaxTokens: int64(req.MaxTokens),
		Messages:  msgs,
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(system, "\n\n")}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return Completion{}, &Error{Kind: classifyStatus(apiErr.StatusCode), Model: m.ID, Status: apiErr.StatusCode, Err: err}
		}
		return Completion{}, &Error{Kind: ErrTransport, Model: m.ID, Err: err}
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return Completion{}, &Error{Kind: ErrProvider, Model: m.ID, Err: errors.New("no text content in response")}
	}
	return Completion{
		Text:         text.String(),
		TokensInput:  int(msg.Usage.InputTokens),
		TokensOutput: int(msg.Usage.OutputTokens),
	}, nil
}
