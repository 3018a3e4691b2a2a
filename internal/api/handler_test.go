package api

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/banking/fraud-risk/internal/config"
	"github.com/banking/fraud-risk/internal/crypto"
	"github.com/banking/fraud-risk/internal/domain"
	"github.com/banking/fraud-risk/internal/ledger"
	"github.com/banking/fraud-risk/internal/repository/memory"
	"github.com/banking/fraud-risk/internal/scoring"
	"github.com/banking/fraud-risk/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type constScorer struct {
	name string
	prob float64
}

func (s *constScorer) Name() string { return s.name }

func (s *constScorer) Score(_ context.Context, _ *domain.FeatureVector) (float64, error) {
	return s.prob, nil
}

type centroidResolver struct{}

func (centroidResolver) Resolve(_ context.Context, _ string) domain.Coordinates {
	return domain.Coordinates{Lat: 6.9271, Lon: 79.8612}
}

type testServer struct {
	echo    *echo.Echo
	account *domain.Account
}

func newTestServer(t *testing.T, prob float64) *testServer {
	t.Helper()
	logger := zap.NewNop()

	accounts := memory.NewAccountRepository()
	transactions := memory.NewTransactionRepository()
	alerts := memory.NewAlertRepository()

	geo := scoring.NewGeoClassifier(config.GeoConfig{
		HomeMinLat: 5.5, HomeMaxLat: 10.0,
		HomeMinLon: 79.0, HomeMaxLon: 82.0,
		CentroidLat: 6.9271, CentroidLon: 79.8612,
	})
	blender := scoring.NewHybridBlender(
		&constScorer{name: "regional", prob: prob},
		&constScorer{name: "global", prob: prob},
		scoring.NewRuleFallbackScorer(), geo,
		config.ScoringConfig{
			LocalDistanceThreshold: 0.1,
			LocalOverrideDelta:     0.3,
			LocalRegionalWeight:    0.7,
			MixedRegionalWeight:    0.5,
			ForeignRegionalWeight:  0.2,
		}, logger)
	transformer := scoring.NewFeatureTransformer(config.FeaturesConfig{
		AmountCenter: 70, AmountSpread: 200,
		HighRiskHours: []int{0, 2, 3, 4, 22, 23},
	}, geo)
	classifier := scoring.NewRiskClassifier(config.RiskConfig{LowThreshold: 0.1, MediumThreshold: 0.3})

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	encryptor, err := crypto.NewFieldEncryptor(
		[]string{base64.StdEncoding.EncodeToString(key)}, 1,
		base64.StdEncoding.EncodeToString([]byte("secret")),
	)
	require.NoError(t, err)

	lifecycle := service.NewLifecycleService(
		accounts, transactions, alerts,
		ledger.NewCreditLedger(accounts, logger),
		transformer, blender, classifier,
		centroidResolver{}, encryptor, nil, nil, logger,
	)
	accountSvc := service.NewAccountService(accounts, transactions, logger)
	alertSvc := service.NewAlertService(alerts, logger)

	e := echo.New()
	NewTransactionHandler(lifecycle, accountSvc).RegisterRoutes(e.Group(""))
	NewAdminHandler(lifecycle, alertSvc, accountSvc, nil).RegisterRoutes(e.Group("/admin"))

	account := domain.NewAccount("Test Holder", 1000, domain.Coordinates{Lat: 6.93, Lon: 79.86})
	require.NoError(t, accounts.Create(context.Background(), account))

	return &testServer{echo: e, account: account}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("X-Admin-ID", "admin@bank")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func submitBody(accountID string, amount float64) string {
	return fmt.Sprintf(`{"account_id":%q,"amount":%v,"category":"shopping_pos","merchant_name":"Odel"}`, accountID, amount)
}

func TestSubmitEndpoint(t *testing.T) {
	s := newTestServer(t, 0.05)

	rec := s.do(http.MethodPost, "/transactions", submitBody(s.account.ID.String(), 250))
	require.Equal(t, http.StatusCreated, rec.Code)

	var tx domain.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))
	assert.Equal(t, domain.StatusSubmitted, tx.Status)
	assert.Equal(t, domain.TierLow, tx.RiskTier)

	rec = s.do(http.MethodGet, "/transactions/"+tx.ID.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitEndpoint_ErrorMapping(t *testing.T) {
	s := newTestServer(t, 0.05)

	// Malformed account id.
	rec := s.do(http.MethodPost, "/transactions", submitBody("not-a-uuid", 100))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Validation failure.
	rec = s.do(http.MethodPost, "/transactions", submitBody(s.account.ID.String(), -5))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Credit exhaustion maps to 402.
	rec = s.do(http.MethodPost, "/transactions", submitBody(s.account.ID.String(), 5000))
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	// Unknown transaction.
	rec = s.do(http.MethodGet, "/transactions/00000000-0000-0000-0000-000000000000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminDecisionFlow(t *testing.T) {
	s := newTestServer(t, 0.95)

	rec := s.do(http.MethodPost, "/transactions", submitBody(s.account.ID.String(), 400))
	require.Equal(t, http.StatusCreated, rec.Code)
	var tx domain.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))

	// Shows up in the pending queue.
	rec = s.do(http.MethodGet, "/admin/pending?tier=HIGH", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), tx.ID.String())

	// Flag as fraud.
	rec = s.do(http.MethodPost, "/admin/transactions/"+tx.ID.String()+"/flag-fraud", `{"note":"stolen card"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// Second decision conflicts.
	rec = s.do(http.MethodPost, "/admin/transactions/"+tx.ID.String()+"/reject", `{"note":"again"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// The flag raised an alert.
	rec = s.do(http.MethodGet, "/admin/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), tx.ID.String())

	// Decision signature verifies.
	rec = s.do(http.MethodGet, "/admin/transactions/"+tx.ID.String()+"/verify", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "true")
}

func TestAdminAlertLifecycle(t *testing.T) {
	s := newTestServer(t, 0.95)

	rec := s.do(http.MethodPost, "/transactions", submitBody(s.account.ID.String(), 300))
	require.Equal(t, http.StatusCreated, rec.Code)
	var tx domain.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))

	rec = s.do(http.MethodPost, "/admin/transactions/"+tx.ID.String()+"/flag-fraud", `{"note":""}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/admin/alerts?priority=HIGH", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var alerts []*domain.FraudAlert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	require.Len(t, alerts, 1)
	alertID := alerts[0].ID.String()

	rec = s.do(http.MethodPost, "/admin/alerts/"+alertID+"/escalate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(domain.PriorityUrgent))

	rec = s.do(http.MethodPost, "/admin/alerts/"+alertID+"/resolve", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/admin/alerts/"+alertID+"/resolve", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAccountEndpoints(t *testing.T) {
	s := newTestServer(t, 0.05)

	rec := s.do(http.MethodPost, "/accounts",
		`{"holder_name":"New Holder","card_number":"4111111111111111","credit_limit":2000,"home_location":{"lat":6.9,"lon":79.8}}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var account domain.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
	// Card numbers never appear in API responses.
	assert.NotContains(t, rec.Body.String(), "4111111111111111")

	rec = s.do(http.MethodGet, "/accounts/"+account.ID.String()+"/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "utilization_pct")

	rec = s.do(http.MethodPost, "/admin/accounts/"+account.ID.String()+"/deactivate", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodPost, "/transactions", submitBody(account.ID.String(), 50))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/admin/accounts/"+account.ID.String()+"/reactivate", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodPost, "/transactions", submitBody(account.ID.String(), 50))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSearch_Unconfigured(t *testing.T) {
	s := newTestServer(t, 0.05)
	rec := s.do(http.MethodGet, "/admin/search?q=odel", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
