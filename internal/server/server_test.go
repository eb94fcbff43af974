package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cachemem "github.com/sylvaincormier/bittensor-async-api/internal/cache/memory"
	"github.com/sylvaincormier/bittensor-async-api/internal/crypto"
	"github.com/sylvaincormier/bittensor-async-api/internal/server/handler"
	"github.com/sylvaincormier/bittensor-async-api/internal/service"
	storemem "github.com/sylvaincormier/bittensor-async-api/internal/store/memory"
)

const (
	testAPIKey = "test-api-key"
	testHotkey = "5FFApaS75bv5pJHfAp2FVLBj9ZaXuFDjEypsaBNc1wCfe52v"
)

type fixedLedger struct{}

func (fixedLedger) TaoDividends(context.Context, int, string) (float64, error) { return 2.0, nil }
func (fixedLedger) AddStake(context.Context, int, string, float64) (string, error) {
	return "0x1", nil
}
func (fixedLedger) RemoveStake(context.Context, int, string, float64) (string, error) {
	return "0x2", nil
}

func newTestServer(t *testing.T) (*Server, *crypto.TokenSigner) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	signer := crypto.NewTokenSigner("test-secret")

	jobs := storemem.NewTradeJobStore()
	svc := service.NewDividendService(
		cachemem.NewDividendCache(),
		fixedLedger{},
		storemem.NewHistoryStore(),
		jobs,
		cachemem.NewJobQueue(),
		nil,
		logger,
		120*time.Second,
		5*time.Second,
		testHotkey,
	)

	handlers := Handlers{
		Health:    handler.NewHealthHandler(nil, "light", true, logger),
		Dividends: handler.NewDividendHandler(svc, 18, testHotkey, logger),
		Jobs:      handler.NewJobHandler(svc, jobs, logger),
		Token:     handler.NewTokenHandler(testAPIKey, signer, 30*time.Minute, logger),
	}

	srv := New(Config{Port: 8000, APIKey: testAPIKey}, handlers, signer, nil, nil, logger)
	return srv, signer
}

func do(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_HealthSkipsAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestServer_DividendsRequireAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/v1/tao_dividends", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_APIKeyHeaderAccepted(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tao_dividends", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	rec := do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_BearerAPIKeyAccepted(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tao_dividends", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	rec := do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_WrongKeyRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tao_dividends", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := do(t, srv, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_TokenFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	body := strings.NewReader(`{"api_key":"` + testAPIKey + `","subject":"ci"}`)
	issueReq := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", body)
	issueRec := do(t, srv, issueReq)
	require.Equal(t, http.StatusOK, issueRec.Code)

	var issued struct {
		Token     string `json:"token"`
		TokenType string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(issueRec.Body.Bytes(), &issued))
	require.Equal(t, "Bearer", issued.TokenType)
	require.NotEmpty(t, issued.Token)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tao_dividends", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Token)
	rec := do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_TokenIssuanceRejectsWrongKey(t *testing.T) {
	srv, _ := newTestServer(t)

	body := strings.NewReader(`{"api_key":"wrong"}`)
	rec := do(t, srv, httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", body))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_ExpiredTokenRejected(t *testing.T) {
	srv, signer := newTestServer(t)

	token, err := signer.SignAt("ci", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tao_dividends", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := do(t, srv, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_Jobs404ForUnknownID(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trades/nope", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	rec := do(t, srv, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/tao_dividends", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := do(t, srv, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
