package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type POHandler struct {
	poService service.POService
}

func NewPOHandler(poService service.POService) *POHandler {
	return &POHandler{poService: poService}
}

func (h *POHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/api/purchase-orders")
	{
		orders.POST("", middleware.RequirePermission("purchase_orders.write"), h.CreatePurchaseOrder)
		orders.GET("", middleware.RequirePermission("purchase_orders.read"), h.ListPurchaseOrders)
		orders.GET("/:id", middleware.RequirePermission("purchase_orders.read"), h.GetPurchaseOrder)
		orders.PUT("/:id/status", middleware.RequirePermission("purchase_orders.write"), h.UpdateStatus)
	}
}

// CreatePurchaseOrder creates a purchase order for an approved request
// @Summary      Create purchase order
// @Description  Creates a purchase order; fails unless the referenced request is APPROVED and has no active order
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreatePODTO  true  "Purchase order payload"
// @Success      201      {object}  response.Response{data=service.POResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/purchase-orders [post]
func (h *POHandler) CreatePurchaseOrder(c *gin.Context) {
	var req service.CreatePODTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := c.Get("userID")
	userIDStr, _ := userID.(string)

	result, err := h.poService.CreatePurchaseOrder(c.Request.Context(), userIDStr, req)
	if err != nil {
		code := statusForWorkflowError(err)
		c.JSON(code, response.Error(code, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListPurchaseOrders returns purchase orders, optionally filtered by status
// @Summary      List purchase orders
// @Tags         purchase-orders
// @Produce      json
// @Security     BearerAuth
// @Param        status  query  string  false  "PO status filter"
// @Param        page    query  int     false  "Page number (default 1)"
// @Param        limit   query  int     false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/purchase-orders [get]
func (h *POHandler) ListPurchaseOrders(c *gin.Context) {
	params := pagination.Parse(c)

	orders, total, err := h.poService.ListPurchaseOrders(c.Request.Context(), c.Query("status"), params.Page, params.Limit)
	if err != nil {
		code := statusForWorkflowError(err)
		c.JSON(code, response.Error(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"purchase_orders": orders,
		"total":           total,
		"page":            params.Page,
		"limit":           params.Limit,
	}))
}

// GetPurchaseOrder returns one purchase order with its request and vendor
// @Summary      Get purchase order
// @Tags         purchase-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Purchase order ID"
// @Success      200  {object}  response.Response{data=service.POResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/purchase-orders/{id} [get]
func (h *POHandler) GetPurchaseOrder(c *gin.Context) {
	result, err := h.poService.GetPurchaseOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		code := statusForWorkflowError(err)
		c.JSON(code, response.Error(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// UpdateStatus advances or cancels a purchase order
// @Summary      Update purchase order status
// @Description  Moves a purchase order along DRAFT → SENT → CONFIRMED → DELIVERED, or cancels it
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Purchase order ID"
// @Param        payload  body      service.UpdatePOStatusDTO  true  "Target status"
// @Success      200      {object}  response.Response{data=service.POResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/purchase-orders/{id}/status [put]
func (h *POHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdatePOStatusDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := c.Get("userID")
	userIDStr, _ := userID.(string)

	result, err := h.poService.UpdateStatus(c.Request.Context(), c.Param("id"), userIDStr, req)
	if err != nil {
		code := statusForWorkflowError(err)
		c.JSON(code, response.Error(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
