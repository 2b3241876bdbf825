// Package llm describes the supported LLM providers, builds chunk conversion
// requests and wraps provider clients.
package llm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spherical/pdfconv/internal/domain"
)

// Provider identifies a supported LLM backend. The set is closed: adding a
// provider means adding a constant and a catalog entry.
type Provider string

const (
	OpenAI     Provider = "openai"
	OpenRouter Provider = "openrouter"
	Groq       Provider = "groq"
	Google     Provider = "google"
)

// DefaultProvider is used when neither flags nor config name one.
const DefaultProvider = OpenRouter

type backend int

const (
	backendOpenAI backend = iota // OpenAI-compatible chat completions
	backendGoogle
)

// Descriptor is the static description of a provider.
type Descriptor struct {
	ID         Provider `json:"id"`
	Model      string   `json:"model"`
	BaseURL    string   `json:"base_url,omitempty"`
	AuthEnvVar string   `json:"auth_env_var"`

	// SupportsStructuredMessages means the provider accepts multi-part
	// messages with a typed document part.
	SupportsStructuredMessages bool `json:"supports_structured_messages"`

	// BinaryParts means the document part is sent as raw bytes rather than a
	// base64 data URI.
	BinaryParts bool `json:"binary_parts"`

	// MaxChunkPagesOverride caps pages per chunk regardless of caller
	// configuration. Zero means no override.
	MaxChunkPagesOverride int `json:"max_chunk_pages_override,omitempty"`

	backend backend
}

var catalog = map[Provider]Descriptor{
	OpenAI: {
		ID:         OpenAI,
		Model:      "gpt-4o",
		AuthEnvVar: "OPENAI_API_KEY",
		backend:    backendOpenAI,
	},
	OpenRouter: {
		ID:         OpenRouter,
		Model:      "nvidia/nemotron-3-nano-30b-a3b:free",
		BaseURL:    "https://openrouter.ai/api/v1",
		AuthEnvVar: "OPENROUTER_API_KEY",
		backend:    backendOpenAI,
	},
	Groq: {
		ID:                         Groq,
		Model:                      "llama-3.3-70b-versatile",
		BaseURL:                    "https://api.groq.com/openai/v1",
		AuthEnvVar:                 "GROQ_API_KEY",
		SupportsStructuredMessages: true,
		MaxChunkPagesOverride:      5,
		backend:                    backendOpenAI,
	},
	// Google takes the chunk as a binary application/pdf part rather than
	// an image_url data URI; it is the only structured provider besides groq.
	Google: {
		ID:                         Google,
		Model:                      "gemini-2.0-flash-exp",
		AuthEnvVar:                 "GEMINI_API_KEY",
		SupportsStructuredMessages: true,
		BinaryParts:                true,
		backend:                    backendGoogle,
	},
}

// Providers returns every known provider id, sorted.
func Providers() []Provider {
	ids := make([]Provider, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ParseProvider maps a case-insensitive id to a Provider.
func ParseProvider(id string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(id)))
	if _, ok := catalog[p]; !ok {
		return "", unknownProvider(id)
	}
	return p, nil
}

// Resolve returns the descriptor for p.
func Resolve(p Provider) (Descriptor, error) {
	d, ok := catalog[p]
	if !ok {
		return Descriptor{}, unknownProvider(string(p))
	}
	return d, nil
}

// SupportsStructuredMessages reports whether p accepts multi-part messages.
// Unknown providers do not.
func SupportsStructuredMessages(p Provider) bool {
	return catalog[p].SupportsStructuredMessages
}

// EffectivePagesPerChunk applies the provider override to the requested budget.
func (d Descriptor) EffectivePagesPerChunk(requested int) int {
	if d.MaxChunkPagesOverride > 0 {
		return d.MaxChunkPagesOverride
	}
	return requested
}

func unknownProvider(id string) error {
	known := make([]string, 0, len(catalog))
	for _, p := range Providers() {
		known = append(known, string(p))
	}
	return domain.UnknownProviderError(fmt.Sprintf("unknown provider %q, available: %s", id, strings.Join(known, ", ")))
}
