package crm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// fakeUpstream is an in-memory Upstream with call counters, used across
// the crm package tests.
type fakeUpstream struct {
	mu sync.Mutex

	accounts  []Account
	endpoints map[string][]CaptureEndpoint
	numbers   map[string][]string
	fields    map[string][]CustomField
	records   map[string]string // correlation token -> record id
	updates   map[string]string // record id -> last written transcript
	captured  []CaptureFields

	noToken     bool
	hideCreated bool // created endpoints never show up in listings
	nextID      int
	submitErr  error
	lookupErr  error
	updateErr  error
	listEpErr  error
	createErr  error
	getAcctErr error

	listEndpointCalls   int
	createEndpointCalls int
	createFieldCalls    int
	submitCalls         int
	lookupCalls         int
	updateCalls         int
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		endpoints: map[string][]CaptureEndpoint{},
		numbers:   map[string][]string{},
		fields:    map[string][]CustomField{},
		records:   map[string]string{},
		updates:   map[string]string{},
	}
}

func (f *fakeUpstream) ListAccounts(context.Context) ([]Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Account(nil), f.accounts...), nil
}

func (f *fakeUpstream) GetAccount(_ context.Context, tenantID string) (Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getAcctErr != nil {
		return Account{}, f.getAcctErr
	}
	for _, a := range f.accounts {
		if a.ID == tenantID {
			return a, nil
		}
	}
	return Account{ID: tenantID, Active: true}, nil
}

func (f *fakeUpstream) ListCaptureEndpoints(_ context.Context, tenantID, name string) ([]CaptureEndpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listEndpointCalls++
	if f.listEpErr != nil {
		return nil, f.listEpErr
	}

	var out []CaptureEndpoint
	for _, e := range f.endpoints[tenantID] {
		if name == "" || e.Name == name {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeUpstream) CreateCaptureEndpoint(_ context.Context, tenantID, name, numberID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createEndpointCalls++
	if f.createErr != nil {
		return "", f.createErr
	}

	f.nextID++
	id := fmt.Sprintf("EP-%d", f.nextID)
	if !f.hideCreated {
		f.endpoints[tenantID] = append(f.endpoints[tenantID], CaptureEndpoint{ID: id, Name: name})
	}
	return id, nil
}

func (f *fakeUpstream) ListNumbers(_ context.Context, tenantID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.numbers[tenantID]...), nil
}

func (f *fakeUpstream) ListCustomFields(_ context.Context, tenantID string) ([]CustomField, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]CustomField(nil), f.fields[tenantID]...), nil
}

func (f *fakeUpstream) CreateCustomField(_ context.Context, tenantID, name, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createFieldCalls++

	f.nextID++
	id := fmt.Sprintf("CF-%d", f.nextID)
	f.fields[tenantID] = append(f.fields[tenantID], CustomField{ID: id, Name: name, Key: key})
	return id, nil
}

func (f *fakeUpstream) SubmitCapture(_ context.Context, tenantID, endpointID string, fields CaptureFields) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.captured = append(f.captured, fields)
	if f.noToken {
		return "", nil
	}

	token := fmt.Sprintf("TOK-%d", f.submitCalls)
	f.records[token] = fmt.Sprintf("REC-%d", f.submitCalls)
	return token, nil
}

func (f *fakeUpstream) LookupRecord(_ context.Context, tenantID, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookupCalls++
	if f.lookupErr != nil {
		return "", f.lookupErr
	}
	return f.records[token], nil
}

func (f *fakeUpstream) UpdateRecord(_ context.Context, tenantID, recordID, fieldKey, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates[recordID] = text
	return nil
}

func testCreds(tenantIDs ...string) *Credentials {
	clients := map[string]clientConfig{}
	for _, id := range tenantIDs {
		clients[id] = clientConfig{Name: "Practice " + id, Auth: "Basic dGVzdDp0ZXN0"}
	}
	return &Credentials{mode: ModeBasic, clients: clients}
}

func testProvisioner(up Upstream, creds *Credentials) (*Provisioner, *Registry) {
	reg := NewRegistry()
	p := NewProvisioner(reg, up, creds)
	p.timeout = 2 * time.Second
	p.poll = 5 * time.Millisecond
	return p, reg
}
