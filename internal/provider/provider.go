// Package provider implements the translation Provider Router: a small
// set of capability-tagged adapters (bulk machine translation, cloud
// machine translation, and an LLM emulating batch translation) selected
// per request according to target-language capability, with Hebrew
// routed only to adapters that can actually produce it.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/adrianmusante/subtitle-tools/internal/srt"
)

// ID names one of the three adapter kinds.
type ID string

const (
	// Bulk is a high-throughput machine-translation adapter with a large
	// request cap and native batch support, but no Hebrew.
	Bulk ID = "bulk"
	// Cloud is a Hebrew-capable cloud machine-translation adapter with a
	// modest per-request character cap and native batch support.
	Cloud ID = "cloud"
	// LLM is a Hebrew-capable chat-completion adapter that emulates
	// batch translation via the NDJSON wire protocol.
	LLM ID = "llm"
)

var (
	ErrNoCapableProvider  = errors.New("provider: no registered provider can serve this request")
	ErrProviderUnavailable = errors.New("provider: requested provider is not registered")
)

// Capability describes what a concrete adapter can do, independent of any
// particular request.
type Capability interface {
	ID() ID
	SupportsLanguage(target srt.Language) bool
	MaxCharsPerRequest() int
	SupportsBatch() bool

	Translate(ctx context.Context, text string, target, source srt.Language) (string, error)
	// BatchTranslate must return exactly len(texts) strings in the same
	// order, or a contract-violation error so the caller can fall back to
	// per-item translation.
	BatchTranslate(ctx context.Context, texts []string, target, source srt.Language) ([]string, error)
}

// ErrContractViolation signals a native batch call returned a different
// cardinality or shape than requested.
type ErrContractViolation struct {
	Provider ID
	Reason   string
}

func (e *ErrContractViolation) Error() string {
	return fmt.Sprintf("provider %s: contract violation: %s", e.Provider, e.Reason)
}

// Registry is an immutable set of the providers available in this
// process, built once at startup from discovered credentials.
type Registry struct {
	providers map[ID]Capability
}

// NewRegistry builds an immutable registry from the given adapters. A nil
// adapter for a slot means that provider kind was not configured/available.
func NewRegistry(adapters ...Capability) Registry {
	m := make(map[ID]Capability, len(adapters))
	for _, a := range adapters {
		if a == nil {
			continue
		}
		m[a.ID()] = a
	}
	return Registry{providers: m}
}

func (r Registry) Get(id ID) (Capability, bool) {
	c, ok := r.providers[id]
	return c, ok
}

func (r Registry) Has(id ID) bool {
	_, ok := r.providers[id]
	return ok
}
