package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/groupware-approval/internal/application/port"
	"github.com/garyjia/groupware-approval/internal/application/service"
	"github.com/garyjia/groupware-approval/internal/application/workflow"
	"github.com/garyjia/groupware-approval/internal/domain/entity"
	domainwf "github.com/garyjia/groupware-approval/internal/domain/workflow"
)

const (
	dateLayout = "2006-01-02"
	xlsxType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	logger   Logger
	now      func() time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		logger:   logger,
		now:      time.Now,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// DocumentResponse is a document plus the step currently awaiting a decision
type DocumentResponse struct {
	*entity.ApprovalDocument
	CurrentLineID   *int64 `json:"current_line_id,omitempty"`
	CurrentApprover string `json:"current_approver,omitempty"`
}

// BalanceResponse is a leave balance with its derived remainder
type BalanceResponse struct {
	UserID           string          `json:"user_id"`
	Year             int             `json:"year"`
	TotalHours       decimal.Decimal `json:"total_hours"`
	CarriedOverHours decimal.Decimal `json:"carried_over_hours"`
	UsedHours        decimal.Decimal `json:"used_hours"`
	RemainingHours   decimal.Decimal `json:"remaining_hours"`
	ExpiryDate       string          `json:"expiry_date"`
}

// LineRequest is one approval step in a draft
type LineRequest struct {
	OrderSeq     int    `json:"order_seq"`
	Approver     string `json:"approver"`
	ApprovalType string `json:"approval_type"`
}

// LeaveRequestBody carries the leave detail of a LEAVE draft
type LeaveRequestBody struct {
	LeaveType  string          `json:"leave_type"`
	StartDate  string          `json:"start_date"`
	EndDate    string          `json:"end_date"`
	LeaveDays  decimal.Decimal `json:"leave_days"`
	LeaveHours decimal.Decimal `json:"leave_hours"`
}

// CreateDraftRequest is the body of POST /documents
type CreateDraftRequest struct {
	Title   string            `json:"title"`
	Content string            `json:"content"`
	DocType string            `json:"doc_type"`
	Lines   []LineRequest     `json:"lines"`
	Leave   *LeaveRequestBody `json:"leave,omitempty"`
}

// ReplaceLinesRequest is the body of PUT /documents/:id/lines
type ReplaceLinesRequest struct {
	Lines []LineRequest `json:"lines"`
}

// DecisionRequest is the body of POST /documents/:id/lines/:lineId/decision
type DecisionRequest struct {
	Outcome string `json:"outcome" binding:"required"`
	Comment string `json:"comment"`
}

// DelegationRequest is the body of POST /documents/:id/lines/:lineId/delegation
type DelegationRequest struct {
	DelegateTo string     `json:"delegate_to" binding:"required"`
	Until      *time.Time `json:"until,omitempty"`
}

// GrantRequest is the body of POST /leave/grants
type GrantRequest struct {
	UserID           string          `json:"user_id" binding:"required"`
	Year             int             `json:"year" binding:"required"`
	TotalHours       decimal.Decimal `json:"total_hours"`
	CarriedOverHours decimal.Decimal `json:"carried_over_hours"`
	ExpiryDate       string          `json:"expiry_date,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	if h.services.Health != nil {
		if err := h.services.Health(c.Request.Context()); err != nil {
			h.logger.Error("Health check failed", "error", err)
			response.Status = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, Response{Success: false, Data: response, Error: "dependency unavailable"})
			return
		}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: response})
}

// CreateDraft handles POST /api/v1/documents
func (h *Handlers) CreateDraft(c *gin.Context) {
	var req CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	in := service.CreateDraftInput{
		Title:   req.Title,
		Content: req.Content,
		DocType: entity.DocType(req.DocType),
		Drafter: caller(c),
		Lines:   toLineInputs(req.Lines),
	}
	if req.Leave != nil {
		leave, err := toLeaveInput(req.Leave)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		in.Leave = leave
	}

	doc, err := h.services.Documents.CreateDraft(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, "create draft", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: h.toDocumentResponse(doc)})
}

// ListMyDocuments handles GET /api/v1/documents
func (h *Handlers) ListMyDocuments(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	docs, err := h.services.Documents.ListByDrafter(c.Request.Context(), caller(c), limit, offset)
	if err != nil {
		h.respondError(c, "list documents", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: h.toDocumentResponses(docs)})
}

// GetDocument handles GET /api/v1/documents/:id
func (h *Handlers) GetDocument(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	doc, err := h.services.Documents.Get(c.Request.Context(), id, caller(c))
	if err != nil {
		h.respondError(c, "get document", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: h.toDocumentResponse(doc)})
}

// DeleteDocument handles DELETE /api/v1/documents/:id
func (h *Handlers) DeleteDocument(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.services.Documents.SoftDelete(c.Request.Context(), id, caller(c)); err != nil {
		h.respondError(c, "delete document", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// ReplaceLines handles PUT /api/v1/documents/:id/lines
func (h *Handlers) ReplaceLines(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req ReplaceLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	doc, err := h.services.Documents.ReplaceLines(c.Request.Context(), id, caller(c), toLineInputs(req.Lines))
	if err != nil {
		h.respondError(c, "replace lines", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: h.toDocumentResponse(doc)})
}

// Submit handles POST /api/v1/documents/:id/submit
func (h *Handlers) Submit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	doc, err := h.services.Documents.Submit(c.Request.Context(), id, caller(c))
	if err != nil {
		h.respondError(c, "submit", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: h.toDocumentResponse(doc)})
}

// Cancel handles POST /api/v1/documents/:id/cancel
func (h *Handlers) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	doc, err := h.services.Engine.Cancel(c.Request.Context(), id, caller(c))
	if err != nil {
		h.respondError(c, "cancel", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: h.toDocumentResponse(doc)})
}

// Decide handles POST /api/v1/documents/:id/lines/:lineId/decision
func (h *Handlers) Decide(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	lineID, ok := pathID(c, "lineId")
	if !ok {
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	outcome := entity.Decision(req.Outcome)
	if !outcome.IsValid() {
		badRequest(c, "outcome must be APPROVED or REJECTED")
		return
	}

	doc, err := h.services.Engine.Decide(c.Request.Context(), workflow.DecideCommand{
		DocumentID: id,
		LineID:     lineID,
		CallerID:   caller(c),
		Outcome:    outcome,
		Comment:    req.Comment,
	})
	if err != nil {
		h.respondError(c, "decide", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: h.toDocumentResponse(doc)})
}

// Delegate handles POST /api/v1/documents/:id/lines/:lineId/delegation
func (h *Handlers) Delegate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	lineID, ok := pathID(c, "lineId")
	if !ok {
		return
	}

	var req DelegationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	line, err := h.services.Documents.Delegate(c.Request.Context(), service.DelegateInput{
		DocumentID: id,
		LineID:     lineID,
		CallerID:   caller(c),
		DelegateTo: req.DelegateTo,
		Until:      req.Until,
	})
	if err != nil {
		h.respondError(c, "delegate", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: line})
}

// History handles GET /api/v1/documents/:id/history
func (h *Handlers) History(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	history, err := h.services.Documents.History(c.Request.Context(), id, caller(c))
	if err != nil {
		h.respondError(c, "history", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// Export handles GET /api/v1/documents/:id/export
func (h *Handlers) Export(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	data, err := h.services.Documents.Export(c.Request.Context(), id, caller(c))
	if err != nil {
		h.respondError(c, "export", err)
		return
	}

	attachment(c, fmt.Sprintf("document-%d.xlsx", id), data)
}

// PendingApprovals handles GET /api/v1/approvals/pending
func (h *Handlers) PendingApprovals(c *gin.Context) {
	docs, err := h.services.Engine.PendingFor(c.Request.Context(), caller(c))
	if err != nil {
		h.respondError(c, "pending approvals", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: h.toDocumentResponses(docs)})
}

// PendingCount handles GET /api/v1/approvals/pending/count
func (h *Handlers) PendingCount(c *gin.Context) {
	count, err := h.services.Engine.CurrentPendingCount(c.Request.Context(), caller(c))
	if err != nil {
		h.respondError(c, "pending count", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"count": count}})
}

// LeaveBalance handles GET /api/v1/leave/balance
func (h *Handlers) LeaveBalance(c *gin.Context) {
	year, ok := h.queryYear(c)
	if !ok {
		return
	}

	balance, err := h.services.Leave.Balance(c.Request.Context(), caller(c), year)
	if err != nil {
		h.respondError(c, "leave balance", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: toBalanceResponse(balance)})
}

// LeaveEntries handles GET /api/v1/leave/entries
func (h *Handlers) LeaveEntries(c *gin.Context) {
	year, ok := h.queryYear(c)
	if !ok {
		return
	}

	entries, err := h.services.Leave.Entries(c.Request.Context(), caller(c), year)
	if err != nil {
		h.respondError(c, "leave entries", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: entries})
}

// GrantLeave handles POST /api/v1/leave/grants
func (h *Handlers) GrantLeave(c *gin.Context) {
	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	grant := port.LeaveGrant{
		UserID:           req.UserID,
		Year:             req.Year,
		TotalHours:       req.TotalHours,
		CarriedOverHours: req.CarriedOverHours,
		GrantedDate:      h.now(),
	}
	if req.ExpiryDate != "" {
		expiry, err := time.Parse(dateLayout, req.ExpiryDate)
		if err != nil {
			badRequest(c, "expiry_date must be YYYY-MM-DD")
			return
		}
		grant.ExpiryDate = expiry
	}

	balance, err := h.services.Leave.Grant(c.Request.Context(), grant)
	if err != nil {
		h.respondError(c, "grant leave", err)
		return
	}

	h.logger.Info("Leave granted", "user_id", req.UserID, "year", req.Year, "granted_by", caller(c))
	c.JSON(http.StatusOK, Response{Success: true, Data: toBalanceResponse(balance)})
}

// LeaveReport handles GET /api/v1/leave/report
func (h *Handlers) LeaveReport(c *gin.Context) {
	year, ok := h.queryYear(c)
	if !ok {
		return
	}

	data, err := h.services.Leave.Report(c.Request.Context(), year)
	if err != nil {
		h.respondError(c, "leave report", err)
		return
	}

	attachment(c, fmt.Sprintf("leave-%d.xlsx", year), data)
}

func (h *Handlers) toDocumentResponse(doc *entity.ApprovalDocument) DocumentResponse {
	resp := DocumentResponse{ApprovalDocument: doc}
	if doc.Status != entity.DocumentStatusPending {
		return resp
	}

	// a malformed chain just leaves the current step blank
	if step, err := domainwf.CurrentStep(doc.Lines); err == nil && step != nil {
		id := step.ID
		resp.CurrentLineID = &id
		resp.CurrentApprover = domainwf.ActingApprover(step, h.now())
	}
	return resp
}

func (h *Handlers) toDocumentResponses(docs []*entity.ApprovalDocument) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, h.toDocumentResponse(d))
	}
	return out
}

// queryYear reads ?year=, defaulting to the current year
func (h *Handlers) queryYear(c *gin.Context) (int, bool) {
	raw := c.Query("year")
	if raw == "" {
		return h.now().Year(), true
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, "invalid year")
		return 0, false
	}
	return year, true
}

func toBalanceResponse(b *entity.AnnualLeave) BalanceResponse {
	return BalanceResponse{
		UserID:           b.UserID,
		Year:             b.Year,
		TotalHours:       b.TotalHours,
		CarriedOverHours: b.CarriedOverHours,
		UsedHours:        b.UsedHours,
		RemainingHours:   b.RemainingHours(),
		ExpiryDate:       b.ExpiryDate.Format(dateLayout),
	}
}

func toLineInputs(lines []LineRequest) []service.LineInput {
	out := make([]service.LineInput, 0, len(lines))
	for _, l := range lines {
		out = append(out, service.LineInput{
			OrderSeq:     l.OrderSeq,
			Approver:     l.Approver,
			ApprovalType: entity.ApprovalType(l.ApprovalType),
		})
	}
	return out
}

func toLeaveInput(req *LeaveRequestBody) (*service.LeaveInput, error) {
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("end_date must be YYYY-MM-DD")
	}
	return &service.LeaveInput{
		LeaveType:  entity.LeaveType(req.LeaveType),
		StartDate:  start,
		EndDate:    end,
		LeaveDays:  req.LeaveDays,
		LeaveHours: req.LeaveHours,
	}, nil
}

// pathID parses a numeric path parameter, writing 400 on failure
func pathID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func attachment(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxType, data)
}
