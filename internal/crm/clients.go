package crm

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Two mutually exclusive auth modes: "agency" uses one process-wide key
// pair for every tenant, "basic" resolves a per-tenant Authorization
// header from a JSON map.
const (
	ModeAgency = "agency"
	ModeBasic  = "basic"
)

type clientConfig struct {
	Name string `json:"name"`
	Auth string `json:"auth"`
}

type Credentials struct {
	mode         string
	agencyHeader string

	mu      sync.RWMutex
	clients map[string]clientConfig
}

// LoadCredentials picks the auth mode from the environment.
// CRM_ACCESS_KEY + CRM_SECRET_KEY select agency mode; otherwise
// CRM_CLIENTS must hold a JSON map of tenant id to {name, auth}.
func LoadCredentials() (*Credentials, error) {
	access := strings.TrimSpace(os.Getenv("CRM_ACCESS_KEY"))
	secret := strings.TrimSpace(os.Getenv("CRM_SECRET_KEY"))

	if access != "" && secret != "" {
		raw := base64.StdEncoding.EncodeToString([]byte(access + ":" + secret))
		return &Credentials{
			mode:         ModeAgency,
			agencyHeader: "Basic " + raw,
			clients:      map[string]clientConfig{},
		}, nil
	}

	rawMap := os.Getenv("CRM_CLIENTS")
	if rawMap == "" {
		return nil, errors.New("credentials: set CRM_ACCESS_KEY/CRM_SECRET_KEY or CRM_CLIENTS")
	}

	clients := map[string]clientConfig{}
	if err := json.Unmarshal([]byte(rawMap), &clients); err != nil {
		return nil, fmt.Errorf("credentials: bad CRM_CLIENTS json: %w", err)
	}

	return &Credentials{mode: ModeBasic, clients: clients}, nil
}

func (c *Credentials) Mode() string { return c.mode }

// AuthHeader resolves the Authorization header value for one tenant.
func (c *Credentials) AuthHeader(tenantID string) (string, error) {
	if c.mode == ModeAgency {
		return c.agencyHeader, nil
	}

	c.mu.RLock()
	cfg, ok := c.clients[tenantID]
	c.mu.RUnlock()

	if !ok || cfg.Auth == "" {
		return "", fmt.Errorf("%w: %s", ErrTenantNotConfigured, tenantID)
	}
	if strings.HasPrefix(cfg.Auth, "Basic ") {
		return cfg.Auth, nil
	}
	return "Basic " + cfg.Auth, nil
}

// Name returns the configured display name, empty when unknown.
func (c *Credentials) Name(tenantID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clients[tenantID].Name
}

// TenantIDs lists configured tenants (basic mode only), sorted for
// deterministic startup scans.
func (c *Credentials) TenantIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.clients))
	for id := range c.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Upsert registers or replaces one tenant credential at runtime.
func (c *Credentials) Upsert(tenantID, name, auth string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clients[tenantID] = clientConfig{Name: name, Auth: auth}
}
