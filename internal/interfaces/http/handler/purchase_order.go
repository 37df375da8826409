package handler

import (
	"errors"
	"net/http"
	"strings"

	poapp "github.com/erp/backend/internal/application/procurement"
	"github.com/erp/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// PurchaseOrderHandler handles purchase order API endpoints
type PurchaseOrderHandler struct {
	BaseHandler
	processService  *poapp.ProcessService
	approvalService *poapp.ApprovalService
	queryService    *poapp.QueryService
	defaultActor    string
}

// NewPurchaseOrderHandler creates a new PurchaseOrderHandler
func NewPurchaseOrderHandler(
	processService *poapp.ProcessService,
	approvalService *poapp.ApprovalService,
	queryService *poapp.QueryService,
	defaultActor string,
) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{
		processService:  processService,
		approvalService: approvalService,
		queryService:    queryService,
		defaultActor:    defaultActor,
	}
}

// ProcessPurchaseOrderRequest optionally names the actor starting the run
type ProcessPurchaseOrderRequest struct {
	Actor string `json:"actor" binding:"omitempty,max=100"`
}

// ApprovePurchaseOrderRequest carries the manual approval decision
type ApprovePurchaseOrderRequest struct {
	ApprovedBy string `json:"approved_by" binding:"required,max=100"`
}

// RejectPurchaseOrderRequest carries the manual rejection decision
type RejectPurchaseOrderRequest struct {
	RejectedBy string `json:"rejected_by" binding:"required,max=100"`
	Reason     string `json:"reason" binding:"required,max=500"`
}

// RegisterRoutes registers purchase order routes
func (h *PurchaseOrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/purchase-orders")
	{
		orders.GET("", h.List)
		orders.GET("/summary", h.Summary)
		orders.GET("/:number", h.Get)
		orders.POST("/:number/process", h.Process)
		orders.POST("/:number/approve", h.Approve)
		orders.POST("/:number/reject", h.Reject)
	}
}

// List returns purchase orders filtered by status and vendor
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	var query poapp.ListPurchaseOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.bindingError(c, err)
		return
	}

	result, err := h.queryService.List(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Get returns a single purchase order by its number
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	order, err := h.queryService.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Summary returns order counts per status
func (h *PurchaseOrderHandler) Summary(c *gin.Context) {
	summary, err := h.queryService.Summary(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Process runs the processing workflow for a purchase order
func (h *PurchaseOrderHandler) Process(c *gin.Context) {
	var req ProcessPurchaseOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.bindingError(c, err)
			return
		}
	}

	actor := req.Actor
	if actor == "" {
		actor = h.defaultActor
	}

	result, err := h.processService.Process(c.Request.Context(), c.Param("number"), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Approve records a manual approval and finalizes the order
func (h *PurchaseOrderHandler) Approve(c *gin.Context) {
	var req ApprovePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindingError(c, err)
		return
	}

	result, err := h.approvalService.Approve(c.Request.Context(), c.Param("number"), req.ApprovedBy)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Reject records a manual rejection
func (h *PurchaseOrderHandler) Reject(c *gin.Context) {
	var req RejectPurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindingError(c, err)
		return
	}

	result, err := h.approvalService.Reject(c.Request.Context(), c.Param("number"), req.RejectedBy, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// bindingError translates gin binding failures into the API error shape
func (h *PurchaseOrderHandler) bindingError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make([]dto.ValidationDetail, 0, len(validationErrs))
		for _, fieldErr := range validationErrs {
			details = append(details, dto.ValidationDetail{
				Field:   strings.ToLower(fieldErr.Field()),
				Message: fieldErr.Error(),
			})
		}
		h.ValidationError(c, details)
		return
	}
	h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Request body could not be parsed")
}
