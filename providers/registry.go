package providers

import (
	"errors"
	"fmt"
	"sort"

	"storyreel/types"
)

var (
	// ErrUnknownMode is returned for a mode with no registered providers
	ErrUnknownMode = errors.New("unknown acquisition mode")
	// ErrUnknownProvider is returned for a provider not registered under a mode
	ErrUnknownProvider = errors.New("unknown provider")
)

// Entry binds a provider to a mode
type Entry struct {
	Mode     types.Mode
	Provider VisualProvider
}

// Registry maps (mode, provider name) to a provider. It is read-only once built.
type Registry struct {
	providers map[types.Mode]map[string]VisualProvider
	defaults  map[types.Mode]string
}

// NewRegistry builds a registry and checks that every default names a registered provider
func NewRegistry(entries []Entry, defaults map[types.Mode]string) (*Registry, error) {
	r := &Registry{
		providers: make(map[types.Mode]map[string]VisualProvider),
		defaults:  make(map[types.Mode]string),
	}

	for _, e := range entries {
		if e.Provider == nil {
			return nil, fmt.Errorf("nil provider registered for mode %s", e.Mode)
		}
		byName, ok := r.providers[e.Mode]
		if !ok {
			byName = make(map[string]VisualProvider)
			r.providers[e.Mode] = byName
		}
		name := e.Provider.Name()
		if _, dup := byName[name]; dup {
			return nil, fmt.Errorf("provider %s registered twice for mode %s", name, e.Mode)
		}
		byName[name] = e.Provider
	}

	for mode, name := range defaults {
		byName, ok := r.providers[mode]
		if !ok {
			return nil, fmt.Errorf("default for %s: %w", mode, ErrUnknownMode)
		}
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("default %s for %s: %w", name, mode, ErrUnknownProvider)
		}
		r.defaults[mode] = name
	}

	for mode := range r.providers {
		if _, ok := r.defaults[mode]; !ok {
			return nil, fmt.Errorf("mode %s has no default provider", mode)
		}
	}

	return r, nil
}

// NewDefaultRegistry wires the standard table:
// AI -> {dall-e}, WEB -> {bing, google}; defaults AI -> dall-e, WEB -> bing.
// A nil google leaves WEB with bing only.
func NewDefaultRegistry(dalle, bing, google VisualProvider) (*Registry, error) {
	entries := []Entry{
		{Mode: types.ModeAI, Provider: dalle},
		{Mode: types.ModeWeb, Provider: bing},
	}
	if google != nil {
		entries = append(entries, Entry{Mode: types.ModeWeb, Provider: google})
	}
	return NewRegistry(entries, map[types.Mode]string{
		types.ModeAI:  ProviderDallE,
		types.ModeWeb: ProviderBing,
	})
}

// Resolve returns the provider for mode. An empty name selects the mode's default.
func (r *Registry) Resolve(mode types.Mode, name string) (VisualProvider, error) {
	byName, ok := r.providers[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	if name == "" {
		name = r.defaults[mode]
	}
	p, ok := byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q for mode %s", ErrUnknownProvider, name, mode)
	}
	return p, nil
}

// Default returns the default provider name for mode
func (r *Registry) Default(mode types.Mode) (string, error) {
	name, ok := r.defaults[mode]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return name, nil
}

// Names lists the providers registered under mode, sorted
func (r *Registry) Names(mode types.Mode) []string {
	names := make([]string, 0, len(r.providers[mode]))
	for name := range r.providers[mode] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
