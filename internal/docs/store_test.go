package docs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	Index
	corpora []CorpusInfo
	listErr error
}

func (f *fakeIndex) ListCorpora(context.Context) ([]CorpusInfo, error) {
	return f.corpora, f.listErr
}

func TestCorpusStore(t *testing.T) {
	t.Run("set get remove", func(t *testing.T) {
		s := NewCorpusStore()
		s.Set("T1", CorpusInfo{CorpusName: "projects/p/locations/l/ragCorpora/1"})

		c, ok := s.Get("T1")
		require.True(t, ok)
		assert.Equal(t, "projects/p/locations/l/ragCorpora/1", c.CorpusName)

		s.Remove("T1")
		_, ok = s.Get("T1")
		assert.False(t, ok)
	})

	t.Run("init parses the display name convention", func(t *testing.T) {
		index := &fakeIndex{corpora: []CorpusInfo{
			{CorpusName: "projects/p/locations/l/ragCorpora/1", DisplayName: "client_412986_TMJ SoCal"},
			{CorpusName: "projects/p/locations/l/ragCorpora/2", DisplayName: "unrelated corpus"},
		}}

		s := NewCorpusStore()
		require.NoError(t, s.Init(context.Background(), index))

		c, ok := s.Get("412986")
		require.True(t, ok)
		assert.Equal(t, "client_412986_TMJ SoCal", c.DisplayName)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("init propagates listing failure", func(t *testing.T) {
		s := NewCorpusStore()
		require.Error(t, s.Init(context.Background(), &fakeIndex{listErr: assert.AnError}))
	})
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "client_412986_TMJ SoCal", DisplayName("412986", "TMJ SoCal"))
	assert.Equal(t, "client_T1_MainKB", DisplayName("T1", "Main/KB!"))
}
