package docs

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/anchorhub/ctm-chat-bridge/internal/httpx"
)

const maxUploadBytes = 10 << 20 // 10 MB

var allowedMimes = map[string]bool{
	"application/pdf": true,
	"text/plain":      true,
	"text/html":       true,
	"text/csv":        true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

type Handler struct {
	store    *CorpusStore
	index    Index
	uploader Uploader
	auth     *httpx.ForwardAuth
}

func NewHandler(store *CorpusStore, index Index, uploader Uploader, auth *httpx.ForwardAuth) *Handler {
	return &Handler{store: store, index: index, uploader: uploader, auth: auth}
}

func (h *Handler) HandleCreateCorpus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token    string `json:"token"`
		ClientID string `json:"clientId"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if !h.auth.Check(w, r, payload.Token) {
		return
	}
	if payload.ClientID == "" || payload.Name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Missing clientId or name")
		return
	}

	if _, ok := h.store.Get(payload.ClientID); ok {
		httpx.WriteError(w, http.StatusConflict, "Corpus already exists for this client")
		return
	}

	displayName := DisplayName(payload.ClientID, payload.Name)
	corpusName, err := h.index.CreateCorpus(r.Context(), displayName, "Knowledge base for client "+payload.ClientID)
	if err != nil {
		log.Printf("[docs] create corpus error clientId=%s: %v", payload.ClientID, err)
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to create corpus")
		return
	}

	h.store.Set(payload.ClientID, CorpusInfo{CorpusName: corpusName, DisplayName: displayName})
	log.Printf("[docs] created corpus clientId=%s corpus=%s", payload.ClientID, corpusID(corpusName))
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "created", "corpusId": corpusID(corpusName)})
}

func (h *Handler) HandleDeleteCorpus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token    string `json:"token"`
		ClientID string `json:"clientId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if !h.auth.Check(w, r, payload.Token) {
		return
	}
	if payload.ClientID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Missing clientId")
		return
	}

	corpus, ok := h.store.Get(payload.ClientID)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "No corpus for this client")
		return
	}

	if err := h.index.DeleteCorpus(r.Context(), corpus.CorpusName); err != nil {
		log.Printf("[docs] delete corpus error clientId=%s: %v", payload.ClientID, err)
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to delete corpus")
		return
	}

	h.store.Remove(payload.ClientID)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) HandleUploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	if !h.auth.Check(w, r, r.FormValue("token")) {
		return
	}

	clientID := r.FormValue("clientId")
	if clientID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Missing clientId")
		return
	}

	corpus, ok := h.store.Get(clientID)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "No corpus for this client. Create one first.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	mime := header.Header.Get("Content-Type")
	if !allowedMimes[strings.TrimSpace(strings.Split(mime, ";")[0])] {
		httpx.WriteError(w, http.StatusBadRequest, "Unsupported file type: "+mime)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	uri, err := h.uploader.Save(r.Context(), clientID, header.Filename, data)
	if err != nil {
		log.Printf("[docs] upload error clientId=%s: %v", clientID, err)
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to upload/import file")
		return
	}
	log.Printf("[docs] staged upload clientId=%s uri=%s", clientID, uri)

	indexFile, err := h.index.ImportFile(r.Context(), corpus.CorpusName, uri)
	if err != nil {
		log.Printf("[docs] import error clientId=%s: %v", clientID, err)
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to upload/import file")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status":      "imported",
		"ragFileName": indexFile.Name,
		"displayName": indexFile.DisplayName,
	})
}

func (h *Handler) HandleListFiles(w http.ResponseWriter, r *http.Request) {
	if !h.auth.Check(w, r, "") {
		return
	}

	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Missing clientId")
		return
	}

	corpus, ok := h.store.Get(clientID)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "No corpus for this client")
		return
	}

	files, err := h.index.ListFiles(r.Context(), corpus.CorpusName)
	if err != nil {
		log.Printf("[docs] list files error clientId=%s: %v", clientID, err)
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to list files")
		return
	}

	type fileOut struct {
		RagFileName string `json:"ragFileName"`
		DisplayName string `json:"displayName"`
		SizeBytes   string `json:"sizeBytes"`
		CreateTime  string `json:"createTime"`
	}
	out := make([]fileOut, 0, len(files))
	for _, f := range files {
		out = append(out, fileOut{
			RagFileName: f.Name,
			DisplayName: f.DisplayName,
			SizeBytes:   f.SizeBytes,
			CreateTime:  f.CreateTime,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"files": out})
}

func (h *Handler) HandleDeleteFile(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token       string `json:"token"`
		ClientID    string `json:"clientId"`
		RagFileName string `json:"ragFileName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if !h.auth.Check(w, r, payload.Token) {
		return
	}
	if payload.ClientID == "" || payload.RagFileName == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Missing clientId or ragFileName")
		return
	}

	if _, ok := h.store.Get(payload.ClientID); !ok {
		httpx.WriteError(w, http.StatusNotFound, "No corpus for this client")
		return
	}

	if err := h.index.DeleteFile(r.Context(), payload.RagFileName); err != nil {
		log.Printf("[docs] delete file error clientId=%s: %v", payload.ClientID, err)
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to delete file")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token    string `json:"token"`
		ClientID string `json:"clientId"`
		Query    string `json:"query"`
		TopK     int    `json:"topK"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if !h.auth.Check(w, r, payload.Token) {
		return
	}
	if payload.ClientID == "" || payload.Query == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Missing clientId or query")
		return
	}

	corpus, ok := h.store.Get(payload.ClientID)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "No corpus for this client")
		return
	}

	contexts, err := h.index.RetrieveContexts(r.Context(), corpus.CorpusName, payload.Query, payload.TopK)
	if err != nil {
		log.Printf("[docs] query error clientId=%s: %v", payload.ClientID, err)
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to query corpus")
		return
	}

	type ctxOut struct {
		Text   string  `json:"text"`
		Score  float64 `json:"score"`
		Source string  `json:"source"`
	}
	out := make([]ctxOut, 0, len(contexts))
	for _, c := range contexts {
		out = append(out, ctxOut{Text: c.Text, Score: c.Score, Source: c.Source})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"contexts": out})
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if !h.auth.Check(w, r, "") {
		return
	}

	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Missing clientId")
		return
	}

	corpus, ok := h.store.Get(clientID)
	resp := map[string]any{"enabled": ok, "corpusId": nil}
	if ok {
		resp["corpusId"] = corpusID(corpus.CorpusName)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func corpusID(corpusName string) string {
	parts := strings.Split(corpusName, "/")
	return parts[len(parts)-1]
}
