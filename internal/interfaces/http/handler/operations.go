package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appbilling "github.com/entrevistiaproject-ai/entrevistia-sub003/internal/application/billing"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/billing"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/interfaces/http/dto"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/interfaces/http/middleware"
)

// OperationsHandler exposes the maintenance operations triggered by external
// schedulers: the reconciliation run, the fallback sweep, month close and the
// overdue check. All routes sit behind the scheduler bearer-token middleware.
type OperationsHandler struct {
	BaseHandler
	reconciliation *appbilling.ReconciliationService
	sweep          *appbilling.SweepService
	invoices       *appbilling.InvoiceService
	auth           gin.HandlerFunc
}

// NewOperationsHandler creates a new operations handler guarded by auth
func NewOperationsHandler(
	reconciliation *appbilling.ReconciliationService,
	sweep *appbilling.SweepService,
	invoices *appbilling.InvoiceService,
	auth gin.HandlerFunc,
	logger *zap.Logger,
) *OperationsHandler {
	return &OperationsHandler{
		BaseHandler:    NewBaseHandler(logger),
		reconciliation: reconciliation,
		sweep:          sweep,
		invoices:       invoices,
		auth:           auth,
	}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *OperationsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/internal")
	if h.auth != nil {
		group.Use(h.auth)
	}
	{
		group.POST("/reconciliation/run", h.RunReconciliation)
		group.POST("/sweep/run", h.RunSweep)
		group.POST("/invoices/close-month", h.CloseMonth)
		group.POST("/invoices/mark-overdue", h.MarkOverdue)
	}
}

// RunReconciliation runs a full reconciliation pass and returns its report.
// The report is the response body itself, unwrapped, so schedulers can parse
// a stable shape.
func (h *OperationsHandler) RunReconciliation(c *gin.Context) {
	report, err := h.reconciliation.Run(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// RunSweep bills evaluated sessions the event-driven path missed
func (h *OperationsHandler) RunSweep(c *gin.Context) {
	result, err := h.sweep.Run(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, result)
}

// CloseMonth closes all open invoices of a reference period. Without an
// explicit period in the body, the previous calendar month is closed.
func (h *OperationsHandler) CloseMonth(c *gin.Context) {
	var req dto.CloseMonthRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}

	var period billing.ReferencePeriod
	if req.Year != 0 || req.Month != 0 {
		if req.Year == 0 || req.Month == 0 {
			h.BadRequest(c, "Both year and month must be provided")
			return
		}
		period = billing.ReferencePeriod{Month: time.Month(req.Month), Year: req.Year}
	} else {
		now := time.Now().UTC()
		firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		period = billing.PeriodOf(firstOfMonth.AddDate(0, 0, -1))
	}

	closed, err := h.invoices.CloseMonth(c.Request.Context(), period)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, dto.CloseMonthResponse{
		Month:  int(period.Month),
		Year:   period.Year,
		Closed: closed,
	})
}

// MarkOverdue marks unpaid due invoices as overdue
func (h *OperationsHandler) MarkOverdue(c *gin.Context) {
	marked, err := h.invoices.MarkOverdueInvoices(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, dto.OverdueCheckResponse{MarkedOverdue: marked})
}
