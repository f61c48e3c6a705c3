package handler

import (
	"errors"
	"net/http"

	"storefront/internal/domain/cart/service"
	userService "storefront/internal/domain/user/service"
	"storefront/internal/pkg/middleware"
	"storefront/pkg/response"

	"github.com/gin-gonic/gin"
)

// CartHandler 购物车处理器
type CartHandler struct {
	service service.CartService
	users   userService.UserService
}

// NewCartHandler 创建处理器
func NewCartHandler(service service.CartService, users userService.UserService) *CartHandler {
	return &CartHandler{service: service, users: users}
}

// AddItemInput 添加条目输入
type AddItemInput struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"gte=0"`
}

// UpdateItemInput 修改数量输入
type UpdateItemInput struct {
	Quantity int `json:"quantity" binding:"gte=0"`
}

// resolveUser 把 Clerk 身份解析成本地用户 ID
func (h *CartHandler) resolveUser(c *gin.Context) (string, bool) {
	clerkID := middleware.GetClerkID(c)
	user, err := h.users.GetByClerkID(clerkID)
	if err != nil {
		if errors.Is(err, userService.ErrUserNotFound) {
			response.Error(c, http.StatusNotFound, response.ErrUserNotFound, "User not found")
		} else {
			response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to resolve user")
		}
		return "", false
	}
	return user.ID, true
}

// ListItems 获取购物车
func (h *CartHandler) ListItems(c *gin.Context) {
	userID, ok := h.resolveUser(c)
	if !ok {
		return
	}

	items, err := h.service.ListItems(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to fetch cart")
		return
	}
	response.Success(c, items)
}

// AddItem 添加条目（已存在则累加数量）
func (h *CartHandler) AddItem(c *gin.Context) {
	var input AddItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	userID, ok := h.resolveUser(c)
	if !ok {
		return
	}

	if err := h.service.AddItem(c.Request.Context(), userID, input.ProductID, input.Quantity); err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to add cart item")
		return
	}
	response.Success(c, true)
}

// UpdateItem 修改条目数量
func (h *CartHandler) UpdateItem(c *gin.Context) {
	var input UpdateItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	userID, ok := h.resolveUser(c)
	if !ok {
		return
	}

	err := h.service.UpdateQuantity(c.Request.Context(), userID, c.Param("productId"), input.Quantity)
	if err != nil {
		if errors.Is(err, service.ErrCartItemNotFound) {
			response.Error(c, http.StatusNotFound, response.ErrCartItemNotFound, "Cart item not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to update cart item")
		return
	}
	response.Success(c, true)
}

// RemoveItem 删除条目
func (h *CartHandler) RemoveItem(c *gin.Context) {
	userID, ok := h.resolveUser(c)
	if !ok {
		return
	}

	err := h.service.RemoveItem(c.Request.Context(), userID, c.Param("productId"))
	if err != nil {
		if errors.Is(err, service.ErrCartItemNotFound) {
			response.Error(c, http.StatusNotFound, response.ErrCartItemNotFound, "Cart item not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to remove cart item")
		return
	}
	response.Success(c, true)
}

// Clear 清空购物车
func (h *CartHandler) Clear(c *gin.Context) {
	userID, ok := h.resolveUser(c)
	if !ok {
		return
	}

	if err := h.service.Clear(c.Request.Context(), userID); err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to clear cart")
		return
	}
	response.Success(c, true)
}
