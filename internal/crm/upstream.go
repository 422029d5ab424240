package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.calltrackingmetrics.com/api/v1"

// HTTPUpstream talks to the call-tracking CRM REST API.
type HTTPUpstream struct {
	baseURL string
	creds   *Credentials
	client  *http.Client
}

func NewHTTPUpstream(creds *Credentials) *HTTPUpstream {
	base := strings.TrimSpace(os.Getenv("CRM_BASE_URL"))
	if base == "" {
		base = defaultBaseURL
	}

	return &HTTPUpstream{
		baseURL: strings.TrimRight(base, "/"),
		creds:   creds,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (u *HTTPUpstream) ListAccounts(ctx context.Context) ([]Account, error) {
	var out []Account

	for page, totalPages := 1, 1; page <= totalPages; page++ {
		var resp struct {
			Accounts []struct {
				ID     json.Number `json:"id"`
				Name   string      `json:"name"`
				Status string      `json:"status"`
			} `json:"accounts"`
			TotalPages int `json:"total_pages"`
		}
		q := url.Values{"page": {strconv.Itoa(page)}}
		if err := u.get(ctx, "", "/accounts", q, &resp); err != nil {
			return nil, err
		}
		for _, a := range resp.Accounts {
			out = append(out, Account{
				ID:     a.ID.String(),
				Name:   a.Name,
				Active: a.Status == "active",
			})
		}
		if resp.TotalPages > 0 {
			totalPages = resp.TotalPages
		}
	}

	return out, nil
}

func (u *HTTPUpstream) GetAccount(ctx context.Context, tenantID string) (Account, error) {
	var resp struct {
		ID     json.Number `json:"id"`
		Name   string      `json:"name"`
		Status string      `json:"status"`
	}
	if err := u.get(ctx, tenantID, "/accounts/"+tenantID, nil, &resp); err != nil {
		return Account{}, err
	}
	return Account{ID: resp.ID.String(), Name: resp.Name, Active: resp.Status == "active"}, nil
}

func (u *HTTPUpstream) ListCaptureEndpoints(ctx context.Context, tenantID, name string) ([]CaptureEndpoint, error) {
	var resp struct {
		FormReactors []struct {
			ID   json.Number `json:"id"`
			Name string      `json:"name"`
		} `json:"form_reactors"`
	}
	if err := u.get(ctx, tenantID, "/accounts/"+tenantID+"/form_reactors", nil, &resp); err != nil {
		return nil, err
	}

	var out []CaptureEndpoint
	for _, fr := range resp.FormReactors {
		if name != "" && fr.Name != name {
			continue
		}
		out = append(out, CaptureEndpoint{ID: fr.ID.String(), Name: fr.Name})
	}
	return out, nil
}

func (u *HTTPUpstream) CreateCaptureEndpoint(ctx context.Context, tenantID, name, numberID string) (string, error) {
	body := map[string]any{
		"name":               name,
		"tracking_number_id": numberID,
	}
	var resp struct {
		ID json.Number `json:"id"`
	}
	if err := u.post(ctx, tenantID, "/accounts/"+tenantID+"/form_reactors", body, &resp); err != nil {
		return "", err
	}
	if resp.ID.String() == "" {
		return "", errors.New("create capture endpoint: no id in response")
	}
	return resp.ID.String(), nil
}

func (u *HTTPUpstream) ListNumbers(ctx context.Context, tenantID string) ([]string, error) {
	var resp struct {
		Numbers []struct {
			ID json.Number `json:"id"`
		} `json:"numbers"`
	}
	if err := u.get(ctx, tenantID, "/accounts/"+tenantID+"/numbers", nil, &resp); err != nil {
		return nil, err
	}

	var out []string
	for _, n := range resp.Numbers {
		out = append(out, n.ID.String())
	}
	return out, nil
}

func (u *HTTPUpstream) ListCustomFields(ctx context.Context, tenantID string) ([]CustomField, error) {
	var resp struct {
		CustomFields []struct {
			ID      json.Number `json:"id"`
			Name    string      `json:"name"`
			APIName string      `json:"api_name"`
		} `json:"custom_fields"`
	}
	if err := u.get(ctx, tenantID, "/accounts/"+tenantID+"/custom_fields", nil, &resp); err != nil {
		return nil, err
	}

	var out []CustomField
	for _, f := range resp.CustomFields {
		out = append(out, CustomField{ID: f.ID.String(), Name: f.Name, Key: f.APIName})
	}
	return out, nil
}

func (u *HTTPUpstream) CreateCustomField(ctx context.Context, tenantID, name, key string) (string, error) {
	body := map[string]any{
		"name":     name,
		"api_name": key,
	}
	var resp struct {
		ID json.Number `json:"id"`
	}
	if err := u.post(ctx, tenantID, "/accounts/"+tenantID+"/custom_fields", body, &resp); err != nil {
		return "", err
	}
	return resp.ID.String(), nil
}

// SubmitCapture posts the caller fields to the capture endpoint. The
// correlation token comes back under "sid" on current deployments and
// "call_sid" on older ones; first present wins.
func (u *HTTPUpstream) SubmitCapture(ctx context.Context, tenantID, endpointID string, fields CaptureFields) (string, error) {
	body := map[string]any{
		"caller_name":  fields.CallerName,
		"email":        fields.Email,
		"phone_number": fields.Phone,
		"country_code": "1",
	}
	if fields.Transcript != "" {
		body[TranscriptFieldKey] = fields.Transcript
	}
	for k, v := range fields.Meta {
		body["custom_"+k] = v
	}

	var resp struct {
		Sid     string `json:"sid"`
		CallSid string `json:"call_sid"`
	}
	if err := u.post(ctx, tenantID, "/formreactor/"+endpointID, body, &resp); err != nil {
		return "", err
	}

	if resp.Sid != "" {
		return resp.Sid, nil
	}
	return resp.CallSid, nil
}

func (u *HTTPUpstream) LookupRecord(ctx context.Context, tenantID, token string) (string, error) {
	var resp struct {
		Calls []struct {
			ID json.Number `json:"id"`
		} `json:"calls"`
	}
	q := url.Values{"search": {token}}
	if err := u.get(ctx, tenantID, "/accounts/"+tenantID+"/calls", q, &resp); err != nil {
		return "", err
	}

	if len(resp.Calls) == 0 {
		return "", nil
	}
	return resp.Calls[0].ID.String(), nil
}

func (u *HTTPUpstream) UpdateRecord(ctx context.Context, tenantID, recordID, fieldKey, text string) error {
	body := map[string]any{
		"custom_fields": map[string]string{fieldKey: text},
	}
	return u.post(ctx, tenantID, "/accounts/"+tenantID+"/calls/"+recordID+"/modify", body, nil)
}

// ------------------------------------------------------------

func (u *HTTPUpstream) get(ctx context.Context, tenantID, path string, q url.Values, out any) error {
	full := u.baseURL + path
	if len(q) > 0 {
		full += "?" + q.Encode()
	}
	return u.do(ctx, http.MethodGet, tenantID, full, nil, out)
}

func (u *HTTPUpstream) post(ctx context.Context, tenantID, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return u.do(ctx, http.MethodPost, tenantID, u.baseURL+path, bytes.NewReader(b), out)
}

func (u *HTTPUpstream) do(ctx context.Context, method, tenantID, fullURL string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	auth, err := u.creds.AuthHeader(tenantID)
	if err != nil {
		return err
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("crm api error: %s body=%s", resp.Status, respBody)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
