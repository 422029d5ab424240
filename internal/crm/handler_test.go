package crm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorhub/ctm-chat-bridge/internal/httpx"
)

type stubService struct {
	submitToken string
	submitErr   error
	attachErr   error

	gotLead    *LeadRequest
	gotText    string
	gotHint    string
	gotSession string
}

func (s *stubService) SubmitLead(_ context.Context, req LeadRequest) (string, error) {
	s.gotLead = &req
	return s.submitToken, s.submitErr
}

func (s *stubService) AttachTranscript(_ context.Context, tenantID, sessionID, text, hint string) error {
	s.gotSession = sessionID
	s.gotText = text
	s.gotHint = hint
	return s.attachErr
}

func newTestRouter(svc Service) chi.Router {
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(svc, httpx.NewForwardAuth("secret")))
	return r
}

func postJSON(t *testing.T, r http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandleLead(t *testing.T) {
	t.Run("happy path returns token", func(t *testing.T) {
		svc := &stubService{submitToken: "TOK-1"}
		rec := postJSON(t, newTestRouter(svc), "/lead", `{
			"token":"secret","clientId":"T1","sessionId":"s1",
			"name":"Jane","email":"jane@x.com","phone":"555-123-4567"
		}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ok":true,"callIdToken":"TOK-1"}`, rec.Body.String())
		require.NotNil(t, svc.gotLead)
		assert.Equal(t, "T1", svc.gotLead.TenantID)
		assert.Equal(t, "555-123-4567", svc.gotLead.Phone)
	})

	t.Run("missing identifiers is 400", func(t *testing.T) {
		rec := postJSON(t, newTestRouter(&stubService{}), "/lead", `{"token":"secret","name":"J"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing caller fields is 400", func(t *testing.T) {
		rec := postJSON(t, newTestRouter(&stubService{}), "/lead",
			`{"token":"secret","clientId":"T1","sessionId":"s1","name":"Jane"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong token is 403", func(t *testing.T) {
		svc := &stubService{}
		rec := postJSON(t, newTestRouter(svc), "/lead", `{
			"token":"wrong","clientId":"T1","sessionId":"s1",
			"name":"Jane","email":"jane@x.com","phone":"555"
		}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Nil(t, svc.gotLead)
	})

	t.Run("service failure is a generic 500", func(t *testing.T) {
		svc := &stubService{submitErr: ErrNoProvisionTarget}
		rec := postJSON(t, newTestRouter(svc), "/lead", `{
			"token":"secret","clientId":"T1","sessionId":"s1",
			"name":"Jane","email":"jane@x.com","phone":"555"
		}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "number")
	})

	t.Run("tokenless submission returns null token", func(t *testing.T) {
		rec := postJSON(t, newTestRouter(&stubService{}), "/lead", `{
			"token":"secret","clientId":"T1","sessionId":"s1",
			"name":"Jane","email":"jane@x.com","phone":"555"
		}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ok":true,"callIdToken":null}`, rec.Body.String())
	})
}

func TestHandleTranscript(t *testing.T) {
	body := `{
		"token":"secret","clientId":"T1","callIdToken":"TOK-HINT",
		"transcript":{"sessionId":"s1","messages":[
			{"role":"user","text":"hi"},
			{"role":"assistant","text":"hello"}
		]}
	}`

	t.Run("happy path formats and forwards", func(t *testing.T) {
		svc := &stubService{}
		rec := postJSON(t, newTestRouter(svc), "/transcript", body)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "s1", svc.gotSession)
		assert.Equal(t, "TOK-HINT", svc.gotHint)
		assert.Equal(t, "user: hi\nassistant: hello\n", svc.gotText)
	})

	t.Run("empty transcript is 400", func(t *testing.T) {
		rec := postJSON(t, newTestRouter(&stubService{}), "/transcript",
			`{"token":"secret","clientId":"T1","transcript":{"sessionId":"s1","messages":[]}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("correlation errors map to 404", func(t *testing.T) {
		for _, sentinel := range []error{ErrMissingCorrelationToken, ErrRecordNotFound} {
			rec := postJSON(t, newTestRouter(&stubService{attachErr: sentinel}), "/transcript", body)
			assert.Equal(t, http.StatusNotFound, rec.Code)
		}
	})

	t.Run("upstream failure is a generic 500", func(t *testing.T) {
		rec := postJSON(t, newTestRouter(&stubService{attachErr: assert.AnError}), "/transcript", body)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
