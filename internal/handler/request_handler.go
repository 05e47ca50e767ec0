package handler

import (
	"errors"
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/internal/workflow"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	requestService service.RequestService
}

func NewRequestHandler(requestService service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/requests")
	{
		requests.POST("", middleware.RequirePermission("requests.create"), h.CreateRequest)
		requests.GET("", middleware.RequirePermission("requests.read"), h.ListRequests)
		requests.GET("/:id", middleware.RequirePermission("requests.read"), h.GetRequest)
		requests.GET("/:id/history", middleware.RequirePermission("requests.read"), h.GetHistory)
		requests.POST("/:id/transition", middleware.RequirePermission("requests.transition"), h.Transition)
	}
}

// statusForWorkflowError maps the workflow error taxonomy onto HTTP codes.
func statusForWorkflowError(err error) int {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, workflow.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrInvalidTransition), errors.Is(err, workflow.ErrInvalidState):
		return http.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// CreateRequest submits a new procurement request
// @Summary      Create procurement request
// @Description  Submits a new procurement request; it enters the workflow at PENDING_CHECK
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateRequestDTO  true  "Request payload"
// @Success      201      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var req service.CreateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := c.Get("userID")
	userIDStr, _ := userID.(string)

	result, err := h.requestService.CreateRequest(c.Request.Context(), userIDStr, req)
	if err != nil {
		code := statusForWorkflowError(err)
		c.JSON(code, response.Error(code, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListRequests returns procurement requests filtered by state/department/priority/search
// @Summary      List procurement requests
// @Description  Lists requests filtered by state, department, priority and free-text search
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        state       query  string  false  "Workflow state"
// @Param        department  query  string  false  "Department"
// @Param        priority    query  string  false  "LOW | MEDIUM | HIGH"
// @Param        search      query  string  false  "Matches request number or item name"
// @Param        page        query  int     false  "Page number (default 1)"
// @Param        limit       query  int     false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	params := pagination.Parse(c)
	userRole, _ := c.Get("userRole")
	roleStr, _ := userRole.(string)

	filter := service.RequestListFilter{
		State:      c.Query("state"),
		Department: c.Query("department"),
		Priority:   c.Query("priority"),
		Search:     c.Query("search"),
		Page:       params.Page,
		Limit:      params.Limit,
	}

	requests, total, err := h.requestService.ListByState(c.Request.Context(), roleStr, filter)
	if err != nil {
		code := statusForWorkflowError(err)
		c.JSON(code, response.Error(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"requests": requests,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// Transition moves a request along the workflow on behalf of the caller
// @Summary      Transition a request
// @Description  Applies a workflow action (CHECK, REVIEW, APPROVE, REJECT, procurement actions) to a request
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                 true  "Request ID"
// @Param        payload  body      service.TransitionDTO  true  "Action payload"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/requests/{id}/transition [post]
func (h *RequestHandler) Transition(c *gin.Context) {
	id := c.Param("id")
	userID, _ := c.Get("userID")
	userIDStr, _ := userID.(string)
	userRole, _ := c.Get("userRole")
	roleStr, _ := userRole.(string)

	var req service.TransitionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.Transition(c.Request.Context(), id, roleStr, userIDStr, req)
	if err != nil {
		code := statusForWorkflowError(err)
		c.JSON(code, response.Error(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetRequest returns a single request with its initiator
// @Summary      Get procurement request
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	userRole, _ := c.Get("userRole")
	roleStr, _ := userRole.(string)

	result, err := h.requestService.GetRequest(c.Request.Context(), c.Param("id"), roleStr)
	if err != nil {
		code := statusForWorkflowError(err)
		c.JSON(code, response.Error(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetHistory returns the approval ledger of a request
// @Summary      Get request history
// @Description  Returns the chronological, append-only approval action history of a request
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=[]service.ApprovalActionResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id}/history [get]
func (h *RequestHandler) GetHistory(c *gin.Context) {
	id := c.Param("id")

	history, err := h.requestService.History(c.Request.Context(), id)
	if err != nil {
		code := statusForWorkflowError(err)
		c.JSON(code, response.Error(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, history))
}
