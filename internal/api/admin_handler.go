package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/banking/fraud-risk/internal/domain"
	"github.com/banking/fraud-risk/internal/repository"
	"github.com/banking/fraud-risk/internal/service"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// TransactionSearcher serves free-text search over resolved transactions.
// Nil when the search backend is not configured.
type TransactionSearcher interface {
	SearchTransactions(ctx context.Context, query string, from, size int) (*repository.TransactionPage, error)
}

// AdminHandler serves the review console: pending queue, decisions,
// alerts, profiling and account freezes.
type AdminHandler struct {
	lifecycle *service.LifecycleService
	alerts    *service.AlertService
	accounts  *service.AccountService
	searcher  TransactionSearcher
}

func NewAdminHandler(lifecycle *service.LifecycleService, alerts *service.AlertService, accounts *service.AccountService, searcher TransactionSearcher) *AdminHandler {
	return &AdminHandler{
		lifecycle: lifecycle,
		alerts:    alerts,
		accounts:  accounts,
		searcher:  searcher,
	}
}

// adminID extracts the acting admin's identity from the JWT subject claim,
// falling back to the X-Admin-ID header when auth is disabled in dev.
func adminID(c echo.Context) string {
	if token, ok := c.Get("user").(*jwt.Token); ok {
		if sub, err := token.Claims.GetSubject(); err == nil && sub != "" {
			return sub
		}
	}
	return c.Request().Header.Get("X-Admin-ID")
}

func paging(c echo.Context, defaultLimit int) (limit, offset int) {
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = defaultLimit
	}
	offset, _ = strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Pending handles GET /admin/pending
func (h *AdminHandler) Pending(c echo.Context) error {
	filter := repository.TransactionFilter{SortBy: c.QueryParam("sort")}
	filter.Limit, filter.Offset = paging(c, 100)

	if tier := c.QueryParam("tier"); tier != "" {
		t := domain.RiskTier(tier)
		filter.RiskTier = &t
	}
	if category := c.QueryParam("category"); category != "" {
		cat := domain.Category(category)
		if !cat.Valid() {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown category"})
		}
		filter.Category = &cat
	}
	if minAmount := c.QueryParam("min_amount"); minAmount != "" {
		v, err := strconv.ParseFloat(minAmount, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid min_amount"})
		}
		filter.MinAmount = &v
	}

	page, err := h.lifecycle.PendingQueue(c.Request().Context(), filter)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

type decisionPayload struct {
	Note string `json:"note"`
}

type decideFunc func(ctx context.Context, id uuid.UUID, adminID, note string) (*domain.Transaction, error)

func (h *AdminHandler) decide(c echo.Context, fn decideFunc) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid transaction id"})
	}

	var payload decisionPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	tx, err := fn(c.Request().Context(), id, adminID(c), payload.Note)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, tx)
}

// Approve handles POST /admin/transactions/:id/approve
func (h *AdminHandler) Approve(c echo.Context) error {
	return h.decide(c, h.lifecycle.Approve)
}

// Reject handles POST /admin/transactions/:id/reject
func (h *AdminHandler) Reject(c echo.Context) error {
	return h.decide(c, h.lifecycle.Reject)
}

// FlagFraud handles POST /admin/transactions/:id/flag-fraud
func (h *AdminHandler) FlagFraud(c echo.Context) error {
	return h.decide(c, h.lifecycle.FlagFraud)
}

// VerifyDecision handles GET /admin/transactions/:id/verify
func (h *AdminHandler) VerifyDecision(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid transaction id"})
	}

	valid, err := h.lifecycle.VerifyDecision(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"valid": valid})
}

// Alerts handles GET /admin/alerts
func (h *AdminHandler) Alerts(c echo.Context) error {
	var priority *domain.AlertPriority
	if p := c.QueryParam("priority"); p != "" {
		pr := domain.AlertPriority(p)
		priority = &pr
	}

	alerts, err := h.alerts.Active(c.Request().Context(), priority)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, alerts)
}

// ResolveAlert handles POST /admin/alerts/:id/resolve
func (h *AdminHandler) ResolveAlert(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid alert id"})
	}

	alert, err := h.alerts.Resolve(c.Request().Context(), id, adminID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, alert)
}

// EscalateAlert handles POST /admin/alerts/:id/escalate
func (h *AdminHandler) EscalateAlert(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid alert id"})
	}

	alert, err := h.alerts.Escalate(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, alert)
}

// Profile handles GET /admin/accounts/:id/profile
func (h *AdminHandler) Profile(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid account id"})
	}

	profile, err := h.accounts.Profile(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

// Deactivate handles POST /admin/accounts/:id/deactivate
func (h *AdminHandler) Deactivate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid account id"})
	}

	if err := h.accounts.Deactivate(c.Request().Context(), id); err != nil {
		return errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Reactivate handles POST /admin/accounts/:id/reactivate
func (h *AdminHandler) Reactivate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid account id"})
	}

	if err := h.accounts.Reactivate(c.Request().Context(), id); err != nil {
		return errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Search handles GET /admin/search
func (h *AdminHandler) Search(c echo.Context) error {
	if h.searcher == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "search backend not configured"})
	}

	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing query parameter 'q'"})
	}

	from, _ := strconv.Atoi(c.QueryParam("from"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	if size == 0 {
		size = 20
	}

	page, err := h.searcher.SearchTransactions(c.Request().Context(), query, from, size)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "search failed"})
	}
	return c.JSON(http.StatusOK, page)
}

// RegisterRoutes registers the admin API routes
func (h *AdminHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/pending", h.Pending)
	g.POST("/transactions/:id/approve", h.Approve)
	g.POST("/transactions/:id/reject", h.Reject)
	g.POST("/transactions/:id/flag-fraud", h.FlagFraud)
	g.GET("/transactions/:id/verify", h.VerifyDecision)
	g.GET("/alerts", h.Alerts)
	g.POST("/alerts/:id/resolve", h.ResolveAlert)
	g.POST("/alerts/:id/escalate", h.EscalateAlert)
	g.GET("/accounts/:id/profile", h.Profile)
	g.POST("/accounts/:id/deactivate", h.Deactivate)
	g.POST("/accounts/:id/reactivate", h.Reactivate)
	g.GET("/search", h.Search)
}
