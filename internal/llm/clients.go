package llm

import (
	"context"
	"os"
	"time"

	"github.com/spherical/pdfconv/internal/domain"
	"github.com/spherical/pdfconv/internal/observability"
)

// Clients caches one Invoker per provider. It belongs to a single
// orchestrator and is not safe for concurrent use.
type Clients struct {
	factory Factory
	models  map[Provider]string
	timeout time.Duration
	getenv  func(string) string
	logger  *observability.Logger
	cache   map[Provider]Invoker
}

// ClientsOption configures Clients.
type ClientsOption func(*Clients)

// WithFactory replaces the client constructor.
func WithFactory(f Factory) ClientsOption {
	return func(c *Clients) { c.factory = f }
}

// WithModelOverrides replaces catalog model names per provider.
func WithModelOverrides(models map[Provider]string) ClientsOption {
	return func(c *Clients) {
		for p, m := range models {
			if m != "" {
				c.models[p] = m
			}
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientsOption {
	return func(c *Clients) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithGetenv replaces the credential lookup.
func WithGetenv(getenv func(string) string) ClientsOption {
	return func(c *Clients) { c.getenv = getenv }
}

// WithLogger sets the logger handed to clients.
func WithLogger(l *observability.Logger) ClientsOption {
	return func(c *Clients) { c.logger = l }
}

// NewClients creates an empty client cache.
func NewClients(opts ...ClientsOption) *Clients {
	c := &Clients{
		factory: NewLangChainClient,
		models:  make(map[Provider]string),
		timeout: DefaultTimeout,
		getenv:  os.Getenv,
		logger:  observability.Nop(),
		cache:   make(map[Provider]Invoker),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached client for p, creating it on first use. maxRetries
// only applies to the call that creates the client.
func (c *Clients) Get(ctx context.Context, p Provider, maxRetries int) (Invoker, Descriptor, error) {
	d, err := Resolve(p)
	if err != nil {
		return nil, Descriptor{}, err
	}
	if m, ok := c.models[p]; ok {
		d.Model = m
	}

	if client, ok := c.cache[p]; ok {
		return client, d, nil
	}

	var credential string
	if d.AuthEnvVar != "" {
		credential = c.getenv(d.AuthEnvVar)
	}

	var client Invoker
	if d.AuthEnvVar != "" && credential == "" {
		c.logger.Warn().Str("provider", string(p)).Str("env", d.AuthEnvVar).Msg("Credential not set, requests will fail")
		client = missingCredential{provider: p, envVar: d.AuthEnvVar}
	} else {
		client, err = c.factory(ctx, d, ClientOptions{
			Model:      d.Model,
			Credential: credential,
			BaseURL:    d.BaseURL,
			MaxRetries: maxRetries,
			Timeout:    c.timeout,
		}, c.logger.WithProvider(string(p)))
		if err != nil {
			return nil, Descriptor{}, domain.ProviderUnavailableError("cannot create client for "+string(p), err)
		}
	}

	c.cache[p] = client
	return client, d, nil
}

// Len returns the number of cached clients.
func (c *Clients) Len() int {
	return len(c.cache)
}
