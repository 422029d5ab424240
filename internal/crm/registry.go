package crm

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"
)

// warmScanLimit bounds how many tenants the startup scan probes at once.
const warmScanLimit = 5

// Registry is the process-wide tenant cache. A tenant appears here only
// once fully provisioned; readers never observe a partial one.
type Registry struct {
	mu      sync.RWMutex
	tenants map[string]Tenant
}

func NewRegistry() *Registry {
	return &Registry{tenants: make(map[string]Tenant)}
}

func (r *Registry) Resolve(tenantID string) (Tenant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[tenantID]
	return t, ok
}

func (r *Registry) Commit(t Tenant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[t.ID] = t
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tenants)
}

// WarmRegistry populates the registry at startup with tenants whose marker
// capture endpoint already exists upstream. Read-only: accounts without the
// marker are left for lazy provisioning. Per-tenant failures are logged and
// skipped, not fatal to the scan.
func WarmRegistry(ctx context.Context, reg *Registry, up Upstream, creds *Credentials) error {
	candidates, err := scanCandidates(ctx, up, creds)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(warmScanLimit)

	for _, acct := range candidates {
		acct := acct
		g.Go(func() error {
			endpoints, err := up.ListCaptureEndpoints(ctx, acct.ID, MarkerEndpointName)
			if err != nil {
				log.Printf("[crm] warm scan skip tenant=%s err=%v", acct.ID, err)
				return nil
			}
			if len(endpoints) == 0 {
				return nil
			}
			reg.Commit(Tenant{
				ID:                acct.ID,
				DisplayName:       acct.Name,
				CaptureEndpointID: endpoints[0].ID,
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.Printf("[crm] warm scan done: %d of %d tenants provisioned", reg.Len(), len(candidates))
	return nil
}

func scanCandidates(ctx context.Context, up Upstream, creds *Credentials) ([]Account, error) {
	if creds.Mode() == ModeAgency {
		accounts, err := up.ListAccounts(ctx)
		if err != nil {
			return nil, err
		}
		active := accounts[:0]
		for _, a := range accounts {
			if a.Active {
				active = append(active, a)
			}
		}
		return active, nil
	}

	// Basic mode has no account listing; scan the configured clients.
	ids := creds.TenantIDs()
	accounts := make([]Account, 0, len(ids))
	for _, id := range ids {
		accounts = append(accounts, Account{ID: id, Name: creds.Name(id), Active: true})
	}
	return accounts, nil
}
