package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
)

// DefaultPortkeyURL is the OpenAI-compatible Portkey endpoint.
const DefaultPortkeyURL = "https://api.portkey.ai/v1/"

// portkeyKeyHeader carries the Portkey API key alongside the bearer token.
const portkeyKeyHeader = "x-portkey-api-key"

// OpenAIProvider serves models through any OpenAI-compatible chat completions
// endpoint, Portkey by default.
type OpenAIProvider struct {
	client openai.Client
}

// NewOpenAIProvider builds a provider for baseURL authenticated with apiKey.
// httpClient may be nil.
func NewOpenAIProvider(baseURL, apiKey string, httpClient *http.Client) *OpenAIProvider {
	if baseURL == "" {
		baseURL = DefaultPortkeyURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithHeader(portkeyKeyHeader, apiKey),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &OpenAIProvider{client: openai.NewClient(opts...)}
}

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, m model.Model, req Request) (Completion, error) {
	turns := conversation(req)
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	for _, t := range turns {
		switch t.Role {
		case model.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(t.Content))
		case model.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(t.Content))
		default:
			msgs = append(msgs, openai.UserMessage(t.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(m.Upstream()),
		Messages:  msgs,
		MaxTokens: openai.Int(int64(req.MaxTokens)),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return Completion{}, &Error{Kind: classifyStatus(apiErr.StatusCode), Model: m.ID, Status: apiErr.StatusCode, Err: err}
		}
		return Completion{}, &Error{Kind: ErrTransport, Model: m.ID, Err: err}
	}
	if len(resp.Choices) == 0 {
		return Completion{}, &Error{Kind: ErrProvider, Model: m.ID, Err: errors.New("no choices in response")}
	}
	return Completion{
		Text:         resp.Choices[0].Message.Content,
		TokensInput:  int(resp.Usage.PromptTokens),
		TokensOutput: int(resp.Usage.CompletionTokens),
	}, nil
}
