package crm

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	provisionTimeout = 60 * time.Second
	pollInterval     = 2 * time.Second
)

// Provisioner creates a tenant's upstream resources on first use: the
// marker capture endpoint and the transcript custom field. Concurrent
// Ensure calls for one tenant within this process coalesce into a single
// upstream operation; the operation runs on the initiating caller's
// context, so cancelling that one request fails every coalesced waiter
// (they all retry cleanly on the next Ensure). Across processes nothing
// coordinates; upstream creation is fetch-or-create so a cross-process
// race produces a detectable duplicate, not a broken tenant.
type Provisioner struct {
	registry *Registry
	up       Upstream
	creds    *Credentials
	group    singleflight.Group

	// overridable in tests
	timeout time.Duration
	poll    time.Duration
}

func NewProvisioner(reg *Registry, up Upstream, creds *Credentials) *Provisioner {
	return &Provisioner{
		registry: reg,
		up:       up,
		creds:    creds,
		timeout:  provisionTimeout,
		poll:     pollInterval,
	}
}

// Ensure returns the tenant, provisioning it upstream if needed. The
// registry commit is the linearization point: no caller observes a
// partially provisioned tenant.
func (p *Provisioner) Ensure(ctx context.Context, tenantID string) (Tenant, error) {
	if t, ok := p.registry.Resolve(tenantID); ok {
		return t, nil
	}

	v, err, _ := p.group.Do(tenantID, func() (any, error) {
		// Re-check under the guard: a racing caller may have committed
		// while we waited for the flight slot.
		if t, ok := p.registry.Resolve(tenantID); ok {
			return t, nil
		}
		return p.provision(ctx, tenantID)
	})
	if err != nil {
		return Tenant{}, err
	}
	return v.(Tenant), nil
}

func (p *Provisioner) provision(ctx context.Context, tenantID string) (Tenant, error) {
	if _, err := p.creds.AuthHeader(tenantID); err != nil {
		return Tenant{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	log.Printf("[crm] provisioning tenant=%s", tenantID)

	var endpointID string
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		id, err := p.ensureCaptureEndpoint(gctx, tenantID)
		if err != nil {
			return err
		}
		endpointID = id
		return nil
	})
	g.Go(func() error {
		return p.ensureTranscriptField(gctx, tenantID)
	})

	if err := g.Wait(); err != nil {
		return Tenant{}, fmt.Errorf("provision tenant=%s: %w", tenantID, err)
	}

	t := Tenant{
		ID:                tenantID,
		DisplayName:       p.displayName(ctx, tenantID),
		CaptureEndpointID: endpointID,
	}
	p.registry.Commit(t)

	log.Printf("[crm] provisioned tenant=%s endpoint=%s", tenantID, endpointID)
	return t, nil
}

// ensureCaptureEndpoint is fetch-or-create on the marker endpoint. A new
// endpoint is not usable until the upstream list reflects it, so creation
// is followed by list polling bounded by the provisioning deadline.
func (p *Provisioner) ensureCaptureEndpoint(ctx context.Context, tenantID string) (string, error) {
	endpoints, err := p.up.ListCaptureEndpoints(ctx, tenantID, MarkerEndpointName)
	if err != nil {
		return "", fmt.Errorf("list capture endpoints: %w", err)
	}
	if len(endpoints) > 0 {
		return endpoints[0].ID, nil
	}

	numbers, err := p.up.ListNumbers(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("list numbers: %w", err)
	}
	if len(numbers) == 0 {
		return "", ErrNoProvisionTarget
	}

	id, err := p.up.CreateCaptureEndpoint(ctx, tenantID, MarkerEndpointName, numbers[0])
	if err != nil {
		return "", fmt.Errorf("create capture endpoint: %w", err)
	}

	if err := p.awaitEndpointVisible(ctx, tenantID, id); err != nil {
		return "", err
	}
	return id, nil
}

func (p *Provisioner) awaitEndpointVisible(ctx context.Context, tenantID, endpointID string) error {
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()

	for {
		endpoints, err := p.up.ListCaptureEndpoints(ctx, tenantID, MarkerEndpointName)
		if err == nil {
			for _, e := range endpoints {
				if e.ID == endpointID {
					return nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("capture endpoint %s not visible: %w", endpointID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (p *Provisioner) ensureTranscriptField(ctx context.Context, tenantID string) error {
	fields, err := p.up.ListCustomFields(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("list custom fields: %w", err)
	}
	for _, f := range fields {
		if f.Key == TranscriptFieldKey {
			return nil
		}
	}

	if _, err := p.up.CreateCustomField(ctx, tenantID, TranscriptFieldName, TranscriptFieldKey); err != nil {
		return fmt.Errorf("create custom field: %w", err)
	}
	return nil
}

// displayName never fails the provision: configured name, else a fetch,
// else a synthesized placeholder.
func (p *Provisioner) displayName(ctx context.Context, tenantID string) string {
	if name := p.creds.Name(tenantID); name != "" {
		return name
	}

	acct, err := p.up.GetAccount(ctx, tenantID)
	if err != nil || acct.Name == "" {
		log.Printf("[crm] display name fallback tenant=%s err=%v", tenantID, err)
		return "Account " + tenantID
	}
	return acct.Name
}
