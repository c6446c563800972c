package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"checkoutupsell/api/logger"
	"checkoutupsell/api/middleware"
	"checkoutupsell/api/store"
	"checkoutupsell/api/upsell"
)

type AdminHandlers struct {
	Service *upsell.AdminService
}

func NewAdminHandlers(s *upsell.AdminService) *AdminHandlers {
	return &AdminHandlers{Service: s}
}

type statusRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (h *AdminHandlers) ListBlocks(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	blocks, err := h.Service.ListBlocks(ctx, middleware.Shop(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upsellBlocks": blocks})
}

func (h *AdminHandlers) GetBlock(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	block, err := h.Service.GetBlock(ctx, middleware.Shop(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, block)
}

func (h *AdminHandlers) CreateBlock(c *gin.Context) {
	var in upsell.BlockInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	block, err := h.Service.CreateBlock(ctx, middleware.Shop(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, block)
}

func (h *AdminHandlers) UpdateBlock(c *gin.Context) {
	var in upsell.BlockInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	block, err := h.Service.UpdateBlock(ctx, middleware.Shop(c), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, block)
}

func (h *AdminHandlers) SetStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must contain 'active'"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	block, err := h.Service.SetActive(ctx, middleware.Shop(c), c.Param("id"), *req.Active)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, block)
}

func (h *AdminHandlers) DeleteBlock(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if err := h.Service.DeleteBlock(ctx, middleware.Shop(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AdminHandlers) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Upsell block not found"})
	case errors.Is(err, upsell.ErrInvalidBlock):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.ErrorCtx(c.Request.Context(), err, zap.String("shop", middleware.Shop(c)), zap.String("id", c.Param("id")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
