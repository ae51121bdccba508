package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/digimart/depositengine/internal/domain"
	"github.com/digimart/depositengine/internal/repository"
)

// Poller drives scheduled reconciliation: every tick it reloads the enabled
// bank configs and starts one cycle per bank in parallel. Cycles for
// different banks never block each other; a still-running cycle for the same
// bank makes the new tick skip that bank instead of queueing behind it, so a
// bank outage cannot pile up overlapping work.
type Poller struct {
	service      *Service
	settings     *repository.SettingsRepo
	interval     time.Duration
	cycleTimeout time.Duration

	mu       sync.Mutex
	inFlight map[string]bool
	wg       sync.WaitGroup
}

func NewPoller(service *Service, settings *repository.SettingsRepo, interval, cycleTimeout time.Duration) *Poller {
	return &Poller{
		service:      service,
		settings:     settings,
		interval:     interval,
		cycleTimeout: cycleTimeout,
		inFlight:     make(map[string]bool),
	}
}

// Run blocks until ctx is cancelled, then waits for in-flight cycles to
// finish or hit their deadline.
func (p *Poller) Run(ctx context.Context) {
	log.Printf("[poller] starting, interval=%s cycle_timeout=%s", p.interval, p.cycleTimeout)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// First pass immediately, like the original daemon.
	p.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[poller] shutting down, waiting for in-flight cycles")
			p.wg.Wait()
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	configs, err := p.settings.LoadBankConfigs(ctx)
	if err != nil {
		log.Printf("[poller] load bank configs: %v", err)
		return
	}

	for i := range configs {
		cfg := configs[i]
		if !cfg.Enabled {
			continue
		}
		p.dispatch(ctx, cfg)
	}
}

func (p *Poller) dispatch(ctx context.Context, cfg domain.BankAPIConfig) {
	p.mu.Lock()
	if p.inFlight[cfg.ID] {
		p.mu.Unlock()
		log.Printf("[poller] %s: previous cycle still running, skipping tick", cfg.Name)
		return
	}
	p.inFlight[cfg.ID] = true
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			p.mu.Lock()
			delete(p.inFlight, cfg.ID)
			p.mu.Unlock()
		}()

		cycleCtx, cancel := context.WithTimeout(ctx, p.cycleTimeout)
		defer cancel()

		if _, err := p.service.ProcessBank(cycleCtx, &cfg); err != nil {
			log.Printf("[poller] %s: cycle abandoned: %v", cfg.Name, err)
		}
	}()
}
