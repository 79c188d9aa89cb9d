// Package identity resolves on-chain display names for addresses shown in
// the proposal preview.
package identity

import (
	"context"
	"sync"

	"github.com/crypto-power/tipwizard/libtipper/referenda"
	"github.com/decred/slog"
	"golang.org/x/sync/errgroup"
)

var log = slog.Disabled

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger slog.Logger) {
	log = logger
}

// maxConcurrentLookups bounds the identity queries in flight at once.
const maxConcurrentLookups = 4

// Resolver looks up display names and remembers them. A failed lookup is
// treated as "no name" and retried on the next call.
type Resolver struct {
	client referenda.ChainClient

	mtx   sync.RWMutex
	cache map[string]string
}

func NewResolver(client referenda.ChainClient) *Resolver {
	return &Resolver{
		client: client,
		cache:  make(map[string]string),
	}
}

// Resolve returns the display name of each address that has one. Addresses
// without a name are absent from the result.
func (r *Resolver) Resolve(ctx context.Context, addresses ...string) map[string]string {
	names := make(map[string]string, len(addresses))
	var pending []string

	r.mtx.RLock()
	for _, addr := range addresses {
		if addr == "" {
			continue
		}
		if name, ok := r.cache[addr]; ok {
			if name != "" {
				names[addr] = name
			}
			continue
		}
		pending = append(pending, addr)
	}
	r.mtx.RUnlock()

	if len(pending) == 0 {
		return names
	}

	var mtx sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for _, addr := range dedupe(pending) {
		addr := addr
		g.Go(func() error {
			name, err := r.client.Identity(ctx, addr)
			if err != nil {
				log.Debugf("Identity lookup for %s failed: %v", addr, err)
				return nil
			}

			r.mtx.Lock()
			r.cache[addr] = name
			r.mtx.Unlock()

			if name != "" {
				mtx.Lock()
				names[addr] = name
				mtx.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return names
}

// Forget drops every cached name, e.g. after a chain switch.
func (r *Resolver) Forget() {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.cache = make(map[string]string)
}

func dedupe(addrs []string) []string {
	seen := make(map[string]struct{}, len(addrs))
	out := addrs[:0:0]
	for _, a := range addrs {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
