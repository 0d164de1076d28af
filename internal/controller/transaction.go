package controller

import (
	"net/http"

	"github.com/Evgen-Mutagen/paymybuddy/internal/core"
	"github.com/Evgen-Mutagen/paymybuddy/internal/middlewareinternal"
	"github.com/go-chi/render"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type TransactionController struct {
	settlement core.SettlementEngine
	logger     *zap.Logger
}

func NewTransactionController(settlement core.SettlementEngine, logger *zap.Logger) *TransactionController {
	return &TransactionController{
		settlement: settlement,
		logger:     logger,
	}
}

func (c *TransactionController) Transfer(w http.ResponseWriter, r *http.Request) {
	email, ok := middlewareinternal.GetEmailFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var request struct {
		ReceiverEmail string           `json:"receiver_email"`
		Description   string           `json:"description"`
		Amount        *decimal.Decimal `json:"amount"`
	}

	if err := render.DecodeJSON(r.Body, &request); err != nil {
		badRequest(w, r, "Invalid request format")
		return
	}
	if request.ReceiverEmail == "" {
		badRequest(w, r, "receiver_email is required")
		return
	}
	if request.Amount == nil {
		badRequest(w, r, "amount is required")
		return
	}

	transaction, err := c.settlement.Transfer(r.Context(), email, request.ReceiverEmail, request.Description, *request.Amount)
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, newTransactionResponse(transaction))
}

func (c *TransactionController) GetTransactions(w http.ResponseWriter, r *http.Request) {
	email, ok := middlewareinternal.GetEmailFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	transactions, err := c.settlement.ListTransactions(r.Context(), email)
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}

	resp := make([]transactionResponse, 0, len(transactions))
	for _, t := range transactions {
		resp = append(resp, newTransactionResponse(t))
	}
	render.JSON(w, r, resp)
}
