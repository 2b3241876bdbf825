package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/spherical/pdfconv/internal/domain"
	"github.com/spherical/pdfconv/internal/observability"
)

// DefaultTimeout bounds a single provider request.
const DefaultTimeout = 120 * time.Second

// Response is a provider reply.
type Response struct {
	Content string
}

// Invoker sends one message and returns the reply. Implementations handle
// their own retries; an error means the request is not worth repeating.
type Invoker interface {
	Invoke(ctx context.Context, msg Message) (*Response, error)
}

// ClientOptions are the construction parameters of a provider client.
type ClientOptions struct {
	Model      string
	Credential string
	BaseURL    string
	MaxRetries int
	Timeout    time.Duration
}

// Factory builds an Invoker for a provider.
type Factory func(ctx context.Context, d Descriptor, opts ClientOptions, logger *observability.Logger) (Invoker, error)

// chatClient adapts a langchaingo model to Invoker.
type chatClient struct {
	model  llms.Model
	retry  RetryConfig
	logger *observability.Logger
}

// NewLangChainClient is the default Factory.
func NewLangChainClient(ctx context.Context, d Descriptor, opts ClientOptions, logger *observability.Logger) (Invoker, error) {
	httpClient := &http.Client{Timeout: opts.Timeout}

	var model llms.Model
	var err error
	switch d.backend {
	case backendOpenAI:
		clientOpts := []openai.Option{
			openai.WithModel(opts.Model),
			openai.WithToken(opts.Credential),
			openai.WithHTTPClient(httpClient),
		}
		if opts.BaseURL != "" {
			clientOpts = append(clientOpts, openai.WithBaseURL(opts.BaseURL))
		}
		model, err = openai.New(clientOpts...)
	case backendGoogle:
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(opts.Credential),
			googleai.WithDefaultModel(opts.Model),
			googleai.WithHTTPClient(httpClient),
		)
	default:
		err = fmt.Errorf("no client backend for provider %s", d.ID)
	}
	if err != nil {
		return nil, err
	}

	retry := DefaultRetryConfig()
	retry.MaxRetries = opts.MaxRetries

	return &chatClient{model: model, retry: retry, logger: logger}, nil
}

// Invoke implements Invoker.
func (c *chatClient) Invoke(ctx context.Context, msg Message) (*Response, error) {
	content := []llms.MessageContent{toMessageContent(msg)}

	var resp *llms.ContentResponse
	err := retryWithBackoff(ctx, c.retry, c.logger, func() error {
		r, err := c.model.GenerateContent(ctx, content, llms.WithTemperature(0))
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, domain.APIError("provider request failed", err)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return &Response{}, nil
	}
	return &Response{Content: resp.Choices[0].Content}, nil
}

func toMessageContent(msg Message) llms.MessageContent {
	if !msg.Structured() {
		return llms.TextParts(llms.ChatMessageTypeHuman, msg.Text)
	}

	parts := make([]llms.ContentPart, 0, len(msg.Parts))
	for _, p := range msg.Parts {
		switch p.Kind {
		case PartText:
			parts = append(parts, llms.TextPart(p.Text))
		case PartImageURL:
			parts = append(parts, llms.ImageURLPart(p.URL))
		case PartBinary:
			parts = append(parts, llms.BinaryPart(p.MIMEType, p.Data))
		}
	}
	return llms.MessageContent{Role: llms.ChatMessageTypeHuman, Parts: parts}
}

// missingCredential defers a missing API key to invocation time.
type missingCredential struct {
	provider Provider
	envVar   string
}

func (m missingCredential) Invoke(context.Context, Message) (*Response, error) {
	return nil, domain.APIError(fmt.Sprintf("no credential for %s: %s is not set", m.provider, m.envVar), nil)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, msg Message) (*Response, error)

// Invoke implements Invoker.
func (f InvokerFunc) Invoke(ctx context.Context, msg Message) (*Response, error) {
	return f(ctx, msg)
}
