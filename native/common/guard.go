package common

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

const (
	ModuleCrowdfund = "crowdfund"
	ModuleStream    = "stream"
)

var ErrModulePaused = errors.New("module paused")

type PauseView interface {
	IsPaused(module string) bool
}

// Guard returns ErrModulePaused, annotated with module, when p reports the
// module as paused. A nil view never pauses.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return fmt.Errorf("%s: %w", module, ErrModulePaused)
	}
	return nil
}

// Pauses is a concurrency-safe PauseView that can be toggled at runtime.
type Pauses struct {
	mu     sync.RWMutex
	paused map[string]bool
}

// NewPauses returns a view with every listed module paused.
func NewPauses(modules ...string) *Pauses {
	p := &Pauses{paused: make(map[string]bool, len(modules))}
	for _, module := range modules {
		p.Set(module, true)
	}
	return p
}

func (p *Pauses) IsPaused(module string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused[normalizeModule(module)]
}

// Set pauses or resumes module.
func (p *Pauses) Set(module string, paused bool) {
	module = normalizeModule(module)
	if module == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if paused {
		p.paused[module] = true
		return
	}
	delete(p.paused, module)
}

func normalizeModule(module string) string {
	return strings.ToLower(strings.TrimSpace(module))
}
