package docs

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sync"
)

// Display name convention: client_{tenantID}_{humanName}. The startup
// scan recovers tenant ownership from it.
var displayNameRe = regexp.MustCompile(`^client_(\w+)_`)

// CorpusStore maps tenant ids to their corpus in the managed index.
// In-process only; rebuilt from the index listing on startup.
type CorpusStore struct {
	mu      sync.RWMutex
	corpora map[string]CorpusInfo
}

func NewCorpusStore() *CorpusStore {
	return &CorpusStore{corpora: make(map[string]CorpusInfo)}
}

func (s *CorpusStore) Get(tenantID string) (CorpusInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.corpora[tenantID]
	return c, ok
}

func (s *CorpusStore) Set(tenantID string, info CorpusInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corpora[tenantID] = info
}

func (s *CorpusStore) Remove(tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.corpora, tenantID)
}

func (s *CorpusStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.corpora)
}

// DisplayName builds the conventional corpus display name for a tenant.
func DisplayName(tenantID, humanName string) string {
	return fmt.Sprintf("client_%s_%s", tenantID, sanitizeName(humanName))
}

func sanitizeName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ':
			out = append(out, r)
		}
		if len(out) >= 60 {
			break
		}
	}
	return string(out)
}

// Init populates the store from the index's corpus listing.
func (s *CorpusStore) Init(ctx context.Context, index Index) error {
	log.Println("[docs] fetching existing corpora")

	corpora, err := index.ListCorpora(ctx)
	if err != nil {
		return err
	}

	for _, c := range corpora {
		m := displayNameRe.FindStringSubmatch(c.DisplayName)
		if m == nil {
			continue
		}
		s.Set(m[1], c)
	}

	log.Printf("[docs] loaded %d corpora", s.Len())
	return nil
}
