package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"roleadmin/internal/api/middleware"
	"roleadmin/internal/api/validator"
	"roleadmin/internal/apperr"
	"roleadmin/internal/utils/logger"
)

type BalanceHandler struct {
	ledger BalanceManager
	log    *logger.Logger
}

func NewBalanceHandler(ledger BalanceManager) *BalanceHandler {
	return &BalanceHandler{ledger: ledger, log: logger.New("balance_handler")}
}

// SetBalance overwrites a user's credits
// @Summary Set a user's balance
// @Tags balance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body validator.SetBalanceRequest true "New balance"
// @Success 200 {object} services.BalanceChange
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Failure 404 {object} map[string]interface{} "User not found"
// @Router /api/admin/users/{id}/balance [put]
func (h *BalanceHandler) SetBalance(c echo.Context) error {
	var req validator.SetBalanceRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	change, err := h.ledger.SetBalance(c.Request().Context(), c.Param("id"), *req.Balance, req.Reason, middleware.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, change)
}

// AdjustBalance adds a signed amount to a user's credits, stopping at zero
// @Summary Adjust a user's balance
// @Tags balance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body validator.AdjustBalanceRequest true "Signed amount"
// @Success 200 {object} services.BalanceChange
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Failure 404 {object} map[string]interface{} "User not found"
// @Router /api/admin/users/{id}/balance [patch]
func (h *BalanceHandler) AdjustBalance(c echo.Context) error {
	var req validator.AdjustBalanceRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	change, err := h.ledger.AdjustBalance(c.Request().Context(), c.Param("id"), *req.Amount, req.Reason, middleware.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, change)
}

// ConfigureRefill stores the auto refill policy of a user
// @Summary Configure auto refill
// @Tags balance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body validator.RefillPolicyRequest true "Policy"
// @Success 200 {object} map[string]interface{} "balance"
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Failure 404 {object} map[string]interface{} "User not found"
// @Router /api/admin/users/{id}/balance/refill [put]
func (h *BalanceHandler) ConfigureRefill(c echo.Context) error {
	var req validator.RefillPolicyRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	balance, err := h.ledger.ConfigureAutoRefill(c.Request().Context(), c.Param("id"), req.ToModel())
	if err != nil {
		return err
	}
	h.log.Info("refill policy of %s updated by %s", c.Param("id"), middleware.GetUserID(c))
	return c.JSON(http.StatusOK, map[string]interface{}{"balance": balance})
}

// Transactions lists a user's newest balance transactions
// @Summary List a user's transactions
// @Tags balance
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param limit query int false "Maximum rows (default 50, max 500)"
// @Success 200 {object} map[string]interface{} "transactions and total"
// @Failure 404 {object} map[string]interface{} "User not found"
// @Router /api/admin/users/{id}/transactions [get]
func (h *BalanceHandler) Transactions(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return apperr.Validation("limit must be a positive integer")
		}
		limit = n
	}

	txs, err := h.ledger.Transactions(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"total":        len(txs),
	})
}
