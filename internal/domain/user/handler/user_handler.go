package handler

import (
	"errors"
	"net/http"

	cartService "storefront/internal/domain/cart/service"
	"storefront/internal/domain/user/service"
	"storefront/internal/pkg/middleware"
	"storefront/pkg/response"

	"github.com/gin-gonic/gin"
)

// UserHandler 用户处理器
type UserHandler struct {
	service service.UserService
	carts   cartService.CartService
}

// NewUserHandler 创建处理器
func NewUserHandler(service service.UserService, carts cartService.CartService) *UserHandler {
	return &UserHandler{service: service, carts: carts}
}

// SyncInput 身份同步输入（Clerk 用户资料）
type SyncInput struct {
	Email        string `json:"email" binding:"required,email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	ProfileImage string `json:"profileImage"`
	Phone        string `json:"phone"`
}

// Me 获取当前用户资料
func (h *UserHandler) Me(c *gin.Context) {
	clerkID := middleware.GetClerkID(c)

	user, err := h.service.GetByClerkID(clerkID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.Error(c, http.StatusNotFound, response.ErrUserNotFound, "User not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to fetch user profile")
		return
	}

	response.Success(c, user)
}

// SyncMe 创建或更新当前用户资料（身份同步）
func (h *UserHandler) SyncMe(c *gin.Context) {
	var input SyncInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	clerkID := middleware.GetClerkID(c)
	user, err := h.service.SyncUser(clerkID, service.SyncInput{
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		ProfileImage: input.ProfileImage,
		Phone:        input.Phone,
	})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to sync user profile")
		return
	}

	response.Success(c, user)
}

// MyCart 获取当前用户购物车
func (h *UserHandler) MyCart(c *gin.Context) {
	clerkID := middleware.GetClerkID(c)

	user, err := h.service.GetByClerkID(clerkID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.Error(c, http.StatusNotFound, response.ErrUserNotFound, "User not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to fetch cart")
		return
	}

	items, err := h.carts.ListItems(c.Request.Context(), user.ID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to fetch cart")
		return
	}

	response.Success(c, items)
}
