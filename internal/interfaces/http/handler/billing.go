package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appbilling "github.com/entrevistiaproject-ai/entrevistia-sub003/internal/application/billing"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/billing"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared/valueobject"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/interfaces/http/dto"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/interfaces/http/middleware"
)

// EventFeed reads back the billing events recorded by the event journal
type EventFeed interface {
	AccountEvents(ctx context.Context, accountID uuid.UUID, limit int) ([]shared.DomainEvent, error)
}

// BillingHandler exposes the charge ledger, admission gate, credit grants,
// threshold checks, invoice operations and the event journal
type BillingHandler struct {
	BaseHandler
	charges   *appbilling.ChargeService
	admission *appbilling.AdmissionService
	invoices  *appbilling.InvoiceService
	events    EventFeed
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(
	charges *appbilling.ChargeService,
	admission *appbilling.AdmissionService,
	invoices *appbilling.InvoiceService,
	events EventFeed,
	logger *zap.Logger,
) *BillingHandler {
	return &BillingHandler{
		BaseHandler: NewBaseHandler(logger),
		charges:     charges,
		admission:   admission,
		invoices:    invoices,
		events:      events,
	}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *BillingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/billing")
	{
		group.POST("/sessions/:sessionID/charges", h.ChargeSession)

		accounts := group.Group("/accounts/:accountID")
		{
			accounts.GET("/admission", h.CheckAdmission)
			accounts.GET("/balance", h.GetBalance)
			accounts.POST("/credits", h.GrantCredit)
			accounts.POST("/thresholds/check", h.CheckThresholds)
			accounts.DELETE("/thresholds", h.ResetThresholds)
			accounts.GET("/invoices", h.ListInvoices)
			accounts.GET("/events", h.ListEvents)
		}

		invoices := group.Group("/invoices")
		{
			invoices.GET("/:invoiceID", h.GetInvoice)
			invoices.POST("/:invoiceID/payments", h.PayInvoice)
			invoices.POST("/:invoiceID/recompute", h.RecomputeInvoice)
		}
	}
}

// ChargeSession bills an evaluated session: the per-candidate base fee plus
// one charge per analyzed answer. Repeated calls for the same session are
// no-ops for already billed work.
func (h *BillingHandler) ChargeSession(c *gin.Context) {
	sessionID, ok := h.pathUUID(c, "sessionID")
	if !ok {
		return
	}

	result, err := h.charges.ChargeForEvaluationSession(c.Request.Context(), sessionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if result.BaseFeeCharged || result.QuestionCharges > 0 {
		h.Created(c, result)
		return
	}
	h.Success(c, result)
}

// CheckAdmission decides whether the account may start another costed
// operation. Exhausted accounts get a 402 with reason code UPGRADE_REQUIRED.
func (h *BillingHandler) CheckAdmission(c *gin.Context) {
	accountID, ok := h.pathUUID(c, "accountID")
	if !ok {
		return
	}

	decision, err := h.admission.AuthorizeCostedOperation(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if !decision.Allowed {
		h.ErrorWithCode(c, decision.ReasonCode, "Credit ceiling exhausted, plan upgrade required")
		return
	}
	h.Success(c, dto.NewAdmissionResponse(decision))
}

// GetBalance returns the account's derived balance and ceiling
func (h *BillingHandler) GetBalance(c *gin.Context) {
	accountID, ok := h.pathUUID(c, "accountID")
	if !ok {
		return
	}

	decision, err := h.admission.AuthorizeCostedOperation(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, dto.BalanceResponse{
		AccountID:   accountID,
		Balance:     decision.Balance,
		Ceiling:     decision.Ceiling,
		TotalBilled: decision.Ceiling.MustSubtract(decision.Balance),
	})
}

// GrantCredit raises the account's ceiling with extra credit
func (h *BillingHandler) GrantCredit(c *gin.Context) {
	accountID, ok := h.pathUUID(c, "accountID")
	if !ok {
		return
	}

	var req dto.GrantCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	extra, err := valueobject.NewMoneyFromString(req.ExtraCredit, valueobject.DefaultCurrency)
	if err != nil {
		h.BadRequest(c, "Invalid extra credit amount")
		return
	}

	grant, err := billing.NewCreditGrant(accountID, extra, req.GrantedBy, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.admission.GrantExtraCredit(c.Request.Context(), grant); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, gin.H{"account_id": accountID, "extra_credit": extra})
}

// CheckThresholds evaluates usage thresholds and fires pending notifications
func (h *BillingHandler) CheckThresholds(c *gin.Context) {
	accountID, ok := h.pathUUID(c, "accountID")
	if !ok {
		return
	}

	notified, err := h.admission.CheckUsageThresholds(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	percentages := make([]int, 0, len(notified))
	for _, t := range notified {
		percentages = append(percentages, int(t))
	}
	h.Success(c, dto.ThresholdCheckResponse{AccountID: accountID, Notified: percentages})
}

// ResetThresholds clears the account's durable threshold marks so a later
// check can notify again
func (h *BillingHandler) ResetThresholds(c *gin.Context) {
	accountID, ok := h.pathUUID(c, "accountID")
	if !ok {
		return
	}

	deleted, err := h.admission.ResetThresholdMarks(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, dto.ThresholdResetResponse{AccountID: accountID, Deleted: deleted})
}

// ListInvoices returns all invoices of an account, newest first
func (h *BillingHandler) ListInvoices(c *gin.Context) {
	accountID, ok := h.pathUUID(c, "accountID")
	if !ok {
		return
	}

	invoices, err := h.invoices.ListInvoices(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, dto.NewInvoiceListResponse(invoices))
}

// ListEvents returns the account's journaled billing events, newest first.
// The limit query parameter caps the page, defaulting to 50.
func (h *BillingHandler) ListEvents(c *gin.Context) {
	accountID, ok := h.pathUUID(c, "accountID")
	if !ok {
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.BadRequest(c, "Invalid limit query parameter")
			return
		}
		limit = parsed
	}

	events, err := h.events.AccountEvents(c.Request.Context(), accountID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, dto.NewBillingEventListResponse(events))
}

// GetInvoice returns a single invoice by ID
func (h *BillingHandler) GetInvoice(c *gin.Context) {
	invoiceID, ok := h.pathUUID(c, "invoiceID")
	if !ok {
		return
	}

	invoice, err := h.invoices.GetInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, dto.NewInvoiceResponse(invoice))
}

// PayInvoice records a payment against a closed invoice
func (h *BillingHandler) PayInvoice(c *gin.Context) {
	invoiceID, ok := h.pathUUID(c, "invoiceID")
	if !ok {
		return
	}

	var req dto.PayInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	amount, err := valueobject.NewMoneyFromString(req.Amount, valueobject.DefaultCurrency)
	if err != nil {
		h.BadRequest(c, "Invalid payment amount")
		return
	}

	invoice, err := h.invoices.MarkInvoicePaid(c.Request.Context(), invoiceID, amount)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, dto.NewInvoiceResponse(invoice))
}

// RecomputeInvoice recalculates the invoice totals from the ledger
func (h *BillingHandler) RecomputeInvoice(c *gin.Context) {
	invoiceID, ok := h.pathUUID(c, "invoiceID")
	if !ok {
		return
	}

	invoice, err := h.invoices.RecomputeInvoiceTotals(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, dto.NewInvoiceResponse(invoice))
}

// pathUUID parses a UUID path parameter, responding with 400 when invalid
func (h *BillingHandler) pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name+" path parameter")
		return uuid.Nil, false
	}
	return id, true
}
