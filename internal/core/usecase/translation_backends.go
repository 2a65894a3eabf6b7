package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/core/ports"
)

// BackendPool builds each translation backend at most once, on first use,
// and shares it between every session.
type BackendPool struct {
	factories map[domain.Provider]ports.TranslatorBackendFactory
	logger    *slog.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	loaded map[domain.Provider]ports.TranslatorBackend
}

func NewBackendPool(factories map[domain.Provider]ports.TranslatorBackendFactory, logger *slog.Logger) *BackendPool {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackendPool{
		factories: factories,
		logger:    logger,
		loaded:    make(map[domain.Provider]ports.TranslatorBackend),
	}
}

func (p *BackendPool) Get(ctx context.Context, provider domain.Provider) (ports.TranslatorBackend, error) {
	if backend, ok := p.cached(provider); ok {
		return backend, nil
	}

	factory, ok := p.factories[provider]
	if !ok || factory == nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "load backend", fmt.Errorf("no %s backend configured", provider))
	}

	v, err, _ := p.group.Do(string(provider), func() (any, error) {
		if backend, ok := p.cached(provider); ok {
			return backend, nil
		}
		// Load outlives the first caller so waiters are not failed by its cancellation.
		backend, err := factory(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.loaded[provider] = backend
		p.mu.Unlock()
		p.logger.Info("translation_backend_loaded", "provider", provider)
		return backend, nil
	})
	if err != nil {
		p.logger.Warn("translation_backend_load_failed", "provider", provider, "error", err)
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "load backend", err)
	}
	return v.(ports.TranslatorBackend), nil
}

func (p *BackendPool) Loaded(provider domain.Provider) bool {
	_, ok := p.cached(provider)
	return ok
}

func (p *BackendPool) cached(provider domain.Provider) (ports.TranslatorBackend, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	backend, ok := p.loaded[provider]
	return backend, ok
}
