package api

import (
	"net/http"

	"github.com/banking/fraud-risk/internal/domain"
	"github.com/banking/fraud-risk/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// TransactionHandler serves the public submission and account endpoints.
type TransactionHandler struct {
	lifecycle *service.LifecycleService
	accounts  *service.AccountService
}

func NewTransactionHandler(lifecycle *service.LifecycleService, accounts *service.AccountService) *TransactionHandler {
	return &TransactionHandler{
		lifecycle: lifecycle,
		accounts:  accounts,
	}
}

type submitPayload struct {
	AccountID       string              `json:"account_id"`
	Amount          float64             `json:"amount"`
	Category        string              `json:"category"`
	MerchantName    string              `json:"merchant_name"`
	MerchantAddress string              `json:"merchant_address"`
	Description     string              `json:"description"`
	SubmitterLoc    *domain.Coordinates `json:"submitter_location"`
	MerchantLoc     *domain.Coordinates `json:"merchant_location"`
}

// Submit handles POST /transactions
func (h *TransactionHandler) Submit(c echo.Context) error {
	var payload submitPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	accountID, err := uuid.Parse(payload.AccountID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid account_id"})
	}

	tx, err := h.lifecycle.Submit(c.Request().Context(), service.SubmitRequest{
		AccountID:         accountID,
		Amount:            payload.Amount,
		Category:          domain.Category(payload.Category),
		MerchantName:      payload.MerchantName,
		MerchantAddress:   payload.MerchantAddress,
		Description:       payload.Description,
		SubmitterLocation: payload.SubmitterLoc,
		MerchantLocation:  payload.MerchantLoc,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, tx)
}

// Get handles GET /transactions/:id
func (h *TransactionHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid transaction id"})
	}

	tx, err := h.lifecycle.Get(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, tx)
}

type openAccountPayload struct {
	HolderName   string             `json:"holder_name"`
	CardNumber   string             `json:"card_number"`
	CreditLimit  float64            `json:"credit_limit"`
	HomeLocation domain.Coordinates `json:"home_location"`
}

// OpenAccount handles POST /accounts
func (h *TransactionHandler) OpenAccount(c echo.Context) error {
	var payload openAccountPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	account, err := h.accounts.Open(c.Request().Context(),
		payload.HolderName, payload.CardNumber, payload.CreditLimit, payload.HomeLocation)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, account)
}

// Summary handles GET /accounts/:id/summary
func (h *TransactionHandler) Summary(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid account id"})
	}

	summary, err := h.accounts.Summary(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// History handles GET /accounts/:id/history
func (h *TransactionHandler) History(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid account id"})
	}

	limit, offset := paging(c, 100)
	page, err := h.lifecycle.History(c.Request().Context(), id, limit, offset)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// RegisterRoutes registers the public API routes
func (h *TransactionHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/transactions", h.Submit)
	g.GET("/transactions/:id", h.Get)
	g.POST("/accounts", h.OpenAccount)
	g.GET("/accounts/:id/summary", h.Summary)
	g.GET("/accounts/:id/history", h.History)
}
