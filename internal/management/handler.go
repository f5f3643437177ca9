package management

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bifrost/internal/logger"
	"bifrost/pkg/errors"
)

type Handler struct {
	service Service
	logger  logger.Logger
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		rules := v1.Group("/rules/routing")
		{
			rules.GET("", h.ListRules)
			rules.POST("", h.CreateRule)
			rules.POST("/validate", h.ValidateExpression)
			rules.GET("/:id", h.GetRule)
			rules.PUT("/:id", h.UpdateRule)
			rules.DELETE("/:id", h.DeleteRule)
		}

		messages := v1.Group("/messages")
		{
			messages.GET("/:id", h.GetMessage)
		}

		v1.GET("/conversations/:id/messages", h.ListConversation)
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error",
		"error", err,
		"path", c.Request.URL.Path,
	)
	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}

// ListRules lists the runtime-managed routing rules of one lane; the lane
// defaults to the configured default domain.
func (h *Handler) ListRules(c *gin.Context) {
	rules, err := h.service.ListRoutingRules(c.Request.Context(), c.Query("business_domain_id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (h *Handler) CreateRule(c *gin.Context) {
	var req CreateRoutingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.service.CreateRoutingRule(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (h *Handler) GetRule(c *gin.Context) {
	rule, err := h.service.GetRoutingRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *Handler) UpdateRule(c *gin.Context) {
	var req UpdateRoutingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.service.UpdateRoutingRule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *Handler) DeleteRule(c *gin.Context) {
	if err := h.service.DeleteRoutingRule(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ValidateExpression dry-runs a match clause through the CEL compiler
// without storing anything.
func (h *Handler) ValidateExpression(c *gin.Context) {
	var req ValidateExpressionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}
	c.JSON(http.StatusOK, h.service.ValidateExpression(c.Request.Context(), req))
}

func (h *Handler) GetMessage(c *gin.Context) {
	msg, err := h.service.GetMessage(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) ListConversation(c *gin.Context) {
	messages, err := h.service.ListConversation(c.Request.Context(),
		c.Query("business_domain_id"), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}
