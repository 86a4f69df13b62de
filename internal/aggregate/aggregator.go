package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/frannie30/ip-add-identifier/internal/provider"
	"github.com/frannie30/ip-add-identifier/internal/snapshot"
)

// ErrAllProvidersFailed is returned when no provider produced a fragment.
var ErrAllProvidersFailed = errors.New("all providers failed")

const defaultTimeout = 5 * time.Second

// Policy controls how secondary providers take part in the merge.
type Policy struct {
	// SecondaryFallback promotes the first successful secondary provider to
	// the geolocation/network/security source when every geo provider failed.
	SecondaryFallback bool
}

// LocalFunc supplies the local group (hostname, local addresses).
type LocalFunc func(ctx context.Context) snapshot.Local

type Config struct {
	// Timeout bounds each provider call independently.
	Timeout time.Duration
	Policy  Policy
	Local   LocalFunc
	Now     func() time.Time
}

type Aggregator struct {
	providers []provider.Provider
	timeout   time.Duration
	policy    Policy
	local     LocalFunc
	now       func() time.Time
}

// New builds an Aggregator. The order of providers is the merge priority.
func New(providers []provider.Provider, cfg Config) *Aggregator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Aggregator{
		providers: providers,
		timeout:   cfg.Timeout,
		policy:    cfg.Policy,
		local:     cfg.Local,
		now:       cfg.Now,
	}
}

// Providers returns the configured providers in priority order.
func (a *Aggregator) Providers() []provider.Provider {
	return a.providers
}

type result struct {
	frag provider.Fragment
	err  error
}

// Aggregate queries every provider concurrently and merges what came back
// into one Snapshot. Individual failures only leave fields unknown; an
// error is returned only when every provider failed.
func (a *Aggregator) Aggregate(ctx context.Context) (*snapshot.Snapshot, error) {
	var (
		results = make([]result, len(a.providers))
		local   snapshot.Local
	)
	g, gctx := errgroup.WithContext(ctx)

	// Provider failures are recorded in results, not returned: only the
	// caller giving up ends the fan-out early.
	for i, p := range a.providers {
		i, p := i, p
		g.Go(func() error {
			results[i] = a.fetch(gctx, p)
			return ctx.Err()
		})
	}
	if a.local != nil {
		g.Go(func() error {
			local = a.local(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllProvidersFailed, err)
	}

	var errs []error
	for i, r := range results {
		if r.err != nil {
			log.Printf("provider %s (%s) failed: %v", a.providers[i].Name(), a.providers[i].Role(), r.err)
			errs = append(errs, r.err)
		}
	}
	if len(errs) == len(results) {
		if len(errs) == 0 {
			return nil, fmt.Errorf("%w: no providers configured", ErrAllProvidersFailed)
		}
		return nil, fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(errs...))
	}

	s := merge(a.providers, results, a.policy)
	for _, d := range corroborate(a.providers, results, s) {
		log.Printf("corroboration: %s", d)
	}
	s.Timestamp = a.now().UTC()
	s.Local = local
	s.Normalize()
	return &s, nil
}

// fetch runs one provider under its own deadline. A provider that ignores
// its context is abandoned once the deadline passes.
func (a *Aggregator) fetch(ctx context.Context, p provider.Provider) result {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		frag, err := p.Fetch(ctx)
		done <- result{frag: frag, err: err}
	}()

	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		return result{err: &provider.Error{Provider: p.Name(), Kind: provider.ErrTimeout, Err: ctx.Err()}}
	}
}
