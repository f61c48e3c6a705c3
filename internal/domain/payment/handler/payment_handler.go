package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/domain/payment/service"
	"storefront/internal/pkg/middleware"
	"storefront/internal/pkg/pesapal"
	"storefront/pkg/logger"
	"storefront/pkg/response"
)

// PaymentHandler 支付处理器
type PaymentHandler struct {
	checkout  service.CheckoutService
	reconcile service.ReconcileService
}

// NewPaymentHandler 创建处理器
func NewPaymentHandler(checkout service.CheckoutService, reconcile service.ReconcileService) *PaymentHandler {
	return &PaymentHandler{checkout: checkout, reconcile: reconcile}
}

// CheckoutRequest 结算请求体，地址保持原始 JSON 存库
type CheckoutRequest struct {
	Items           []service.CheckoutItem `json:"items" binding:"required"`
	ShippingAddress json.RawMessage        `json:"shippingAddress" binding:"required"`
	BillingAddress  json.RawMessage        `json:"billingAddress"`
	Phone           string                 `json:"phone"`
}

// RegisterIPN 向网关注册回调地址并保存下发的通知 ID
func (h *PaymentHandler) RegisterIPN(c *gin.Context) {
	reg, err := h.checkout.RegisterIPN(c.Request.Context())
	if err != nil {
		logger.Log.Error("ipn registration failed", zap.Error(err))
		response.Error(c, http.StatusBadGateway, response.ErrGatewayAuth, "Failed to register IPN with gateway")
		return
	}
	response.Success(c, reg)
}

// Checkout 创建订单并提交到支付网关
func (h *PaymentHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	in := service.CheckoutInput{
		Items:           req.Items,
		ShippingAddress: string(req.ShippingAddress),
		Phone:           req.Phone,
	}
	if len(req.BillingAddress) > 0 {
		billing := string(req.BillingAddress)
		in.BillingAddress = &billing
	}

	result, err := h.checkout.Checkout(c.Request.Context(), middleware.GetClerkID(c), in)
	if err != nil {
		h.writeCheckoutError(c, err)
		return
	}
	response.Created(c, result)
}

// RetrySubmission 对提交网关失败的订单重新发起提交
func (h *PaymentHandler) RetrySubmission(c *gin.Context) {
	result, err := h.checkout.RetrySubmission(c.Request.Context(), middleware.GetClerkID(c), c.Param("orderId"))
	if err != nil {
		h.writeCheckoutError(c, err)
		return
	}
	response.Success(c, result)
}

// IPN 网关回调入口。除了可重试的场景外一律 200 确认收到，
// 避免网关把已处理的通知反复投递
func (h *PaymentHandler) IPN(c *gin.Context) {
	trackingID := c.Query("OrderTrackingId")
	merchantRef := c.Query("OrderMerchantReference")

	result, err := h.reconcile.HandleIPN(c.Request.Context(), trackingID, merchantRef)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingTrackingID):
			response.Error(c, http.StatusBadRequest, response.ErrMissingTrackingID, "OrderTrackingId is required")
		case errors.Is(err, service.ErrPaymentNotFound):
			// 本地还没有这条支付记录，404 让网关稍后重试
			response.Error(c, http.StatusNotFound, response.ErrPaymentNotFound, "Payment not found")
		case errors.Is(err, pesapal.ErrAuth), errors.Is(err, pesapal.ErrStatus):
			response.Error(c, http.StatusBadGateway, response.ErrGatewayStatus, "Failed to verify transaction status")
		default:
			logger.Log.Error("ipn processing failed", zap.String("trackingId", trackingID), zap.Error(err))
			response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to process notification")
		}
		return
	}
	response.Success(c, result)
}

// Status 查询订单支付状态（本地记录 + 网关实时状态）
func (h *PaymentHandler) Status(c *gin.Context) {
	result, err := h.reconcile.GetStatus(c.Request.Context(), c.Param("orderTrackingId"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingTrackingID):
			response.Error(c, http.StatusBadRequest, response.ErrMissingTrackingID, "Order tracking id is required")
		case errors.Is(err, service.ErrPaymentNotFound):
			response.Error(c, http.StatusNotFound, response.ErrPaymentNotFound, "Payment not found")
		default:
			response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to fetch payment status")
		}
		return
	}
	response.Success(c, result)
}

// ListOrders 当前用户的订单列表，按创建时间倒序
func (h *PaymentHandler) ListOrders(c *gin.Context) {
	orders, err := h.checkout.ListOrders(c.Request.Context(), middleware.GetClerkID(c))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.Error(c, http.StatusNotFound, response.ErrUserNotFound, "User not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to fetch orders")
		return
	}
	response.Success(c, orders)
}

func (h *PaymentHandler) writeCheckoutError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyCart):
		response.Error(c, http.StatusBadRequest, response.ErrCartEmpty, "No items to check out")
	case errors.Is(err, service.ErrUserNotFound):
		response.Error(c, http.StatusNotFound, response.ErrUserNotFound, "User not found")
	case errors.Is(err, service.ErrProductNotFound):
		response.Error(c, http.StatusNotFound, response.ErrProductNotFound, err.Error())
	case errors.Is(err, service.ErrInsufficientStock):
		response.Error(c, http.StatusConflict, response.ErrOutOfStock, err.Error())
	case errors.Is(err, service.ErrOrderNotFound):
		response.Error(c, http.StatusNotFound, response.ErrOrderNotFound, "Order not found")
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Error(c, http.StatusConflict, response.ErrInvalidParam, "Order already submitted to gateway")
	case errors.Is(err, service.ErrIPNNotConfigured):
		response.Error(c, http.StatusInternalServerError, response.ErrIPNNotConfigured, "IPN is not registered, call register-ipn first")
	case errors.Is(err, pesapal.ErrAuth):
		response.Error(c, http.StatusBadGateway, response.ErrGatewayAuth, "Gateway authentication failed")
	case errors.Is(err, pesapal.ErrSubmission):
		response.Error(c, http.StatusBadGateway, response.ErrGatewaySubmit, "Gateway rejected the order submission")
	default:
		logger.Log.Error("checkout failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Checkout failed")
	}
}
