package providers

import (
	"fmt"
	"sort"
	"sync"
)

// ProviderRegistry manages the registration and retrieval of model backends.
// It is safe for concurrent use.
type ProviderRegistry struct {
	providers map[string]ProviderConstructor
	mutex     sync.RWMutex
}

// NewProviderRegistry creates a registry holding the named providers, or
// every known provider when no name is given.
func NewProviderRegistry(providerNames ...string) *ProviderRegistry {
	registry := &ProviderRegistry{
		providers: make(map[string]ProviderConstructor),
	}

	known := getKnownProviders()
	if len(providerNames) == 0 {
		for name, constructor := range known {
			registry.providers[name] = constructor
		}
		return registry
	}
	for _, name := range providerNames {
		if constructor, ok := known[name]; ok {
			registry.providers[name] = constructor
		}
	}
	return registry
}

func getKnownProviders() map[string]ProviderConstructor {
	huggingface := func(apiKey, model string, extraHeaders map[string]string) Provider {
		return NewHuggingFaceProvider(apiKey, model, extraHeaders)
	}
	return map[string]ProviderConstructor{
		"huggingface": huggingface,
		"hf":          huggingface,
		"ollama": func(apiKey, model string, extraHeaders map[string]string) Provider {
			return NewOllamaProvider(apiKey, model, extraHeaders)
		},
		"openai": func(apiKey, model string, extraHeaders map[string]string) Provider {
			return NewOpenAIProvider(apiKey, model, extraHeaders)
		},
		"mock": func(apiKey, model string, extraHeaders map[string]string) Provider {
			return NewMockProvider(apiKey, model, extraHeaders)
		},
	}
}

// Register adds or replaces a provider constructor.
func (r *ProviderRegistry) Register(name string, constructor ProviderConstructor) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.providers[name] = constructor
}

// Get builds a new, not yet loaded, provider instance.
func (r *ProviderRegistry) Get(name, apiKey, model string, extraHeaders map[string]string) (Provider, error) {
	r.mutex.RLock()
	constructor, exists := r.providers[name]
	r.mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return constructor(apiKey, model, extraHeaders), nil
}

// Names lists registered providers in sorted order.
func (r *ProviderRegistry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
