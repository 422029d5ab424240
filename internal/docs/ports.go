package docs

import "context"

// CorpusInfo identifies one tenant's corpus in the managed index.
type CorpusInfo struct {
	CorpusName  string // full resource name
	DisplayName string
}

type IndexFile struct {
	Name        string
	DisplayName string
	SizeBytes   string
	CreateTime  string
}

type RetrievedContext struct {
	Text   string
	Score  float64
	Source string
}

// Index is the managed document-index API. Create and import are
// long-running upstream; implementations poll to completion before
// returning.
type Index interface {
	CreateCorpus(ctx context.Context, displayName, description string) (string, error)
	DeleteCorpus(ctx context.Context, corpusName string) error
	ListCorpora(ctx context.Context) ([]CorpusInfo, error)

	ImportFile(ctx context.Context, corpusName, sourceURI string) (IndexFile, error)
	ListFiles(ctx context.Context, corpusName string) ([]IndexFile, error)
	DeleteFile(ctx context.Context, fileName string) error

	RetrieveContexts(ctx context.Context, corpusName, query string, topK int) ([]RetrievedContext, error)
}

// Uploader stages an uploaded document and returns a URI the index can
// import from.
type Uploader interface {
	Save(ctx context.Context, tenantID, filename string, data []byte) (string, error)
}
