package payment

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GVMBT/seo-master-sub005/internal/api"
	"github.com/GVMBT/seo-master-sub005/internal/ledger"
)

// Handler exposes the admin reconciliation surface: raw transaction
// records and per-user balances, for matching provider statements
// against the ledger by charge id.
type Handler struct {
	txRepo     TransactionRepository
	ledgerRepo ledger.Repository
}

func NewHandler(txRepo TransactionRepository, ledgerRepo ledger.Repository) *Handler {
	return &Handler{
		txRepo:     txRepo,
		ledgerRepo: ledgerRepo,
	}
}

func (h *Handler) ListTransactions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	if userIDStr := c.Query("user_id"); userIDStr != "" {
		userID, err := strconv.ParseInt(userIDStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "user_id must be an integer"})
			return
		}

		txs, err := h.txRepo.ListByUser(c.Request.Context(), userID, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load transactions"})
			return
		}
		c.JSON(http.StatusOK, txs)
		return
	}

	txs, err := h.txRepo.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load transactions"})
		return
	}
	c.JSON(http.StatusOK, txs)
}

func (h *Handler) GetBalance(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "userID must be an integer"})
		return
	}

	balance, err := h.ledgerRepo.GetBalance(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID, "balance": balance})
}
