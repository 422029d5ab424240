package docs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	cloudScope = "https://www.googleapis.com/auth/cloud-platform"

	lroPollInterval   = 2 * time.Second
	lroDefaultTimeout = 120 * time.Second
)

// VertexIndex is the managed document index (Vertex AI RAG Engine REST
// surface). Corpus creation and file import are long-running operations
// polled to completion.
type VertexIndex struct {
	base   string // https://{loc}-aiplatform.googleapis.com/v1beta1
	parent string // projects/{project}/locations/{loc}
	tokens oauth2.TokenSource
	client *http.Client
	poll   time.Duration // zero means lroPollInterval
}

func NewVertexIndex(ctx context.Context, projectID, location string) (*VertexIndex, error) {
	ts, err := google.DefaultTokenSource(ctx, cloudScope)
	if err != nil {
		return nil, fmt.Errorf("docs: token source: %w", err)
	}

	return &VertexIndex{
		base:   fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1beta1", location),
		parent: fmt.Sprintf("projects/%s/locations/%s", projectID, location),
		tokens: ts,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type operation struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Response map[string]any `json:"response"`
}

// pollOperation re-fetches the operation until done or the deadline.
// Done with an error block is terminal failure.
func (v *VertexIndex) pollOperation(ctx context.Context, opName string, timeout time.Duration) (operation, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	interval := v.poll
	if interval == 0 {
		interval = lroPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		var op operation
		if err := v.get(ctx, "/"+opName, nil, &op); err != nil {
			return operation{}, err
		}
		if op.Done {
			if op.Error != nil {
				return operation{}, fmt.Errorf("operation %s failed: %s (code %d)", opName, op.Error.Message, op.Error.Code)
			}
			return op, nil
		}

		select {
		case <-ctx.Done():
			return operation{}, fmt.Errorf("operation %s: %w", opName, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (v *VertexIndex) CreateCorpus(ctx context.Context, displayName, description string) (string, error) {
	body := map[string]any{"display_name": displayName}
	if description != "" {
		body["description"] = description
	}

	var op operation
	if err := v.post(ctx, "/"+v.parent+"/ragCorpora", body, &op); err != nil {
		return "", err
	}

	done, err := v.pollOperation(ctx, op.Name, lroDefaultTimeout)
	if err != nil {
		return "", err
	}

	name, _ := done.Response["name"].(string)
	if name == "" {
		return "", fmt.Errorf("create corpus: no name in operation response")
	}
	return name, nil
}

func (v *VertexIndex) DeleteCorpus(ctx context.Context, corpusName string) error {
	return v.delete(ctx, "/"+corpusName+"?force=true")
}

func (v *VertexIndex) ListCorpora(ctx context.Context) ([]CorpusInfo, error) {
	var out []CorpusInfo
	pageToken := ""

	for {
		var resp struct {
			RagCorpora []struct {
				Name        string `json:"name"`
				DisplayName string `json:"displayName"`
			} `json:"ragCorpora"`
			NextPageToken string `json:"nextPageToken"`
		}
		q := url.Values{"page_size": {"100"}}
		if pageToken != "" {
			q.Set("page_token", pageToken)
		}
		if err := v.get(ctx, "/"+v.parent+"/ragCorpora", q, &resp); err != nil {
			return nil, err
		}

		for _, c := range resp.RagCorpora {
			out = append(out, CorpusInfo{CorpusName: c.Name, DisplayName: c.DisplayName})
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			return out, nil
		}
	}
}

func (v *VertexIndex) ImportFile(ctx context.Context, corpusName, sourceURI string) (IndexFile, error) {
	body := map[string]any{
		"import_rag_files_config": map[string]any{
			"gcs_source": map[string]any{"uris": []string{sourceURI}},
			"rag_file_chunking_config": map[string]any{
				"chunk_size":    512,
				"chunk_overlap": 100,
			},
		},
	}

	var op operation
	if err := v.post(ctx, "/"+corpusName+"/ragFiles:import", body, &op); err != nil {
		return IndexFile{}, err
	}

	if _, err := v.pollOperation(ctx, op.Name, lroDefaultTimeout); err != nil {
		return IndexFile{}, err
	}

	// The import operation does not return the file resource; list and
	// take the newest.
	files, err := v.ListFiles(ctx, corpusName)
	if err != nil {
		return IndexFile{}, err
	}
	if len(files) == 0 {
		return IndexFile{}, fmt.Errorf("import file: no file found after import")
	}
	return files[len(files)-1], nil
}

func (v *VertexIndex) ListFiles(ctx context.Context, corpusName string) ([]IndexFile, error) {
	var out []IndexFile
	pageToken := ""

	for {
		var resp struct {
			RagFiles []struct {
				Name        string `json:"name"`
				DisplayName string `json:"displayName"`
				SizeBytes   string `json:"sizeBytes"`
				CreateTime  string `json:"createTime"`
			} `json:"ragFiles"`
			NextPageToken string `json:"nextPageToken"`
		}
		q := url.Values{"page_size": {"100"}}
		if pageToken != "" {
			q.Set("page_token", pageToken)
		}
		if err := v.get(ctx, "/"+corpusName+"/ragFiles", q, &resp); err != nil {
			return nil, err
		}

		for _, f := range resp.RagFiles {
			out = append(out, IndexFile{
				Name:        f.Name,
				DisplayName: f.DisplayName,
				SizeBytes:   f.SizeBytes,
				CreateTime:  f.CreateTime,
			})
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			return out, nil
		}
	}
}

func (v *VertexIndex) DeleteFile(ctx context.Context, fileName string) error {
	return v.delete(ctx, "/"+fileName)
}

func (v *VertexIndex) RetrieveContexts(ctx context.Context, corpusName, query string, topK int) ([]RetrievedContext, error) {
	if topK <= 0 {
		topK = 3
	}
	body := map[string]any{
		"vertex_rag_store": map[string]any{
			"rag_resources": []map[string]any{{"rag_corpus": corpusName}},
		},
		"query": map[string]any{
			"text":             query,
			"similarity_top_k": topK,
		},
	}

	var resp struct {
		Contexts struct {
			Contexts []struct {
				Text              string  `json:"text"`
				Score             float64 `json:"score"`
				SourceDisplayName string  `json:"sourceDisplayName"`
			} `json:"contexts"`
		} `json:"contexts"`
	}
	if err := v.post(ctx, "/"+v.parent+":retrieveContexts", body, &resp); err != nil {
		return nil, err
	}

	out := make([]RetrievedContext, 0, len(resp.Contexts.Contexts))
	for _, c := range resp.Contexts.Contexts {
		out = append(out, RetrievedContext{Text: c.Text, Score: c.Score, Source: c.SourceDisplayName})
	}
	return out, nil
}

// ------------------------------------------------------------

func (v *VertexIndex) get(ctx context.Context, path string, q url.Values, out any) error {
	full := v.base + path
	if len(q) > 0 {
		full += "?" + q.Encode()
	}
	return v.do(ctx, http.MethodGet, full, nil, out)
}

func (v *VertexIndex) post(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return v.do(ctx, http.MethodPost, v.base+path, bytes.NewReader(b), out)
}

func (v *VertexIndex) delete(ctx context.Context, path string) error {
	return v.do(ctx, http.MethodDelete, v.base+path, nil, nil)
}

func (v *VertexIndex) do(ctx context.Context, method, fullURL string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	tok, err := v.tokens.Token()
	if err != nil {
		return fmt.Errorf("docs: token: %w", err)
	}
	tok.SetAuthHeader(req)

	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("index api error: %s body=%s", resp.Status, strings.TrimSpace(string(respBody)))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
