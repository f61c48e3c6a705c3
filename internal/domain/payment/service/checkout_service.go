package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	cartService "storefront/internal/domain/cart/service"
	"storefront/internal/domain/payment/model"
	"storefront/internal/domain/payment/repository"
	productService "storefront/internal/domain/product/service"
	userService "storefront/internal/domain/user/service"
	"storefront/internal/pkg/config"
	"storefront/internal/pkg/pesapal"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"
)

// Gateway 支付网关，生产实现是 *pesapal.Client
type Gateway interface {
	RegisterIPN(ctx context.Context, ipnURL, method string) (*pesapal.IPNRegistration, error)
	SubmitOrder(ctx context.Context, order *pesapal.OrderRequest) (*pesapal.OrderResponse, error)
	GetTransactionStatus(ctx context.Context, trackingID string) (*pesapal.TransactionStatus, error)
}

// CheckoutItem 结算请求里的一行
type CheckoutItem struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

// CheckoutInput 结算请求
type CheckoutInput struct {
	Items           []CheckoutItem `json:"items"`
	ShippingAddress string         `json:"-"`
	BillingAddress  *string        `json:"-"`
	Phone           string         `json:"-"`
}

// CheckoutResult 结算成功后的返回，RedirectURL 供前端跳转到网关托管页
type CheckoutResult struct {
	OrderID           string  `json:"orderId"`
	OrderNumber       string  `json:"orderNumber"`
	TotalAmount       float64 `json:"totalAmount"`
	OrderTrackingID   string  `json:"orderTrackingId"`
	MerchantReference string  `json:"merchantReference"`
	RedirectURL       string  `json:"redirectUrl"`
}

// CheckoutService 结算编排：校验库存、落订单、提交网关、清购物车
type CheckoutService interface {
	Checkout(ctx context.Context, clerkID string, in CheckoutInput) (*CheckoutResult, error)
	// RetrySubmission 对网关提交失败的订单重新提交，不新建订单
	RetrySubmission(ctx context.Context, clerkID, orderID string) (*CheckoutResult, error)
	ListOrders(ctx context.Context, clerkID string) ([]model.Order, error)
	RegisterIPN(ctx context.Context) (*pesapal.IPNRegistration, error)
}

type checkoutService struct {
	repo     repository.PaymentRepository
	users    userService.UserService
	products productService.ProductService
	carts    cartService.CartService
	gateway  Gateway
	ipnStore *IPNStore
}

func NewCheckoutService(
	repo repository.PaymentRepository,
	users userService.UserService,
	products productService.ProductService,
	carts cartService.CartService,
	gateway Gateway,
	ipnStore *IPNStore,
) CheckoutService {
	return &checkoutService{
		repo:     repo,
		users:    users,
		products: products,
		carts:    carts,
		gateway:  gateway,
		ipnStore: ipnStore,
	}
}

func (s *checkoutService) Checkout(ctx context.Context, clerkID string, in CheckoutInput) (*CheckoutResult, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyCart
	}

	user, err := s.users.GetByClerkID(clerkID)
	if err != nil {
		if errors.Is(err, userService.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// 库存预检。真正的扣减发生在支付完成的对账事务里，
	// 这里只是提前拦掉明显买不到的请求
	var total float64
	orderItems := make([]model.OrderItem, 0, len(in.Items))
	for _, item := range in.Items {
		p, err := s.products.GetProduct(item.ProductID)
		if err != nil {
			if errors.Is(err, productService.ErrProductNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
			}
			return nil, err
		}
		if p.Stock < item.Quantity {
			return nil, fmt.Errorf("%w: %s (available %d)", ErrInsufficientStock, p.Title, p.Stock)
		}
		total += p.Price * float64(item.Quantity)
		orderItems = append(orderItems, model.OrderItem{
			ProductID: p.ID,
			Quantity:  item.Quantity,
			Price:     p.Price, // 下单时的价格快照
		})
	}

	ipnID, err := s.ipnStore.Get(ctx)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		OrderNumber:     newOrderNumber(),
		UserID:          user.ID,
		Status:          model.OrderStatusPending,
		TotalAmount:     total,
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  in.BillingAddress,
		Items:           orderItems,
		Payment: &model.Payment{
			Amount:        total,
			Status:        model.PaymentStatusPending,
			PaymentMethod: "pesapal",
		},
	}
	if err := s.repo.CreateOrderWithPayment(ctx, order); err != nil {
		// 订单号撞了约束就换一个再试一次
		if errors.Is(err, repository.ErrDuplicateOrderNumber) {
			order.OrderNumber = newOrderNumber()
			err = s.repo.CreateOrderWithPayment(ctx, order)
		}
		if err != nil {
			metrics.GetGlobalCollector().RecordCheckout("error")
			return nil, err
		}
	}

	result, err := s.submitToGateway(ctx, user.Email, user.FirstName, user.LastName, in.Phone, order, ipnID)
	if err != nil {
		// 订单和 PENDING 支付已落库，可走 RetrySubmission 重试
		metrics.GetGlobalCollector().RecordCheckout("gateway_error")
		logger.Log.Error("gateway submission failed, order left pending",
			zap.String("orderNumber", order.OrderNumber), zap.Error(err))
		return nil, err
	}

	// 清购物车失败不影响结算结果
	if err := s.carts.Clear(ctx, user.ID); err != nil {
		logger.Log.Warn("failed to clear cart after checkout",
			zap.String("userId", user.ID), zap.Error(err))
	}

	metrics.GetGlobalCollector().RecordCheckout("success")
	return result, nil
}

func (s *checkoutService) RetrySubmission(ctx context.Context, clerkID, orderID string) (*CheckoutResult, error) {
	user, err := s.users.GetByClerkID(clerkID)
	if err != nil {
		if errors.Is(err, userService.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.UserID != user.ID {
		return nil, ErrOrderNotFound
	}
	if order.Payment == nil || order.Payment.Status != model.PaymentStatusPending || order.Payment.TransactionID != nil {
		return nil, ErrAlreadySubmitted
	}

	ipnID, err := s.ipnStore.Get(ctx)
	if err != nil {
		return nil, err
	}
	return s.submitToGateway(ctx, user.Email, user.FirstName, user.LastName, "", order, ipnID)
}

func (s *checkoutService) ListOrders(ctx context.Context, clerkID string) ([]model.Order, error) {
	user, err := s.users.GetByClerkID(clerkID)
	if err != nil {
		if errors.Is(err, userService.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.repo.ListOrdersByUserID(ctx, user.ID)
}

func (s *checkoutService) RegisterIPN(ctx context.Context) (*pesapal.IPNRegistration, error) {
	cfg := config.GlobalConfig
	ipnURL := strings.TrimRight(cfg.App.BackendURL, "/") + "/api/payments/ipn"

	reg, err := s.gateway.RegisterIPN(ctx, ipnURL, "GET")
	if err != nil {
		return nil, err
	}
	if err := s.ipnStore.Save(ctx, reg.IPNID); err != nil {
		logger.Log.Warn("failed to persist ipn id", zap.Error(err))
	}
	logger.Log.Info("ipn registered", zap.String("ipnId", reg.IPNID), zap.String("url", ipnURL))
	return reg, nil
}

// submitToGateway 提交订单到网关并把 tracking id 写回支付记录
func (s *checkoutService) submitToGateway(ctx context.Context, email, firstName, lastName, phone string, order *model.Order, ipnID string) (*CheckoutResult, error) {
	cfg := config.GlobalConfig
	req := &pesapal.OrderRequest{
		ID:             order.OrderNumber,
		Currency:       cfg.Pesapal.Currency,
		Amount:         order.TotalAmount,
		Description:    fmt.Sprintf("Order %s", order.OrderNumber),
		CallbackURL:    strings.TrimRight(cfg.App.FrontendURL, "/") + "/payment/callback",
		NotificationID: ipnID,
		BillingAddress: pesapal.BillingAddress{
			EmailAddress: email,
			PhoneNumber:  phone,
			FirstName:    firstName,
			LastName:     lastName,
		},
	}

	resp, err := s.gateway.SubmitOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetTransactionID(ctx, order.Payment.ID, resp.OrderTrackingID); err != nil {
		return nil, err
	}

	return &CheckoutResult{
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		TotalAmount:       order.TotalAmount,
		OrderTrackingID:   resp.OrderTrackingID,
		MerchantReference: resp.MerchantReference,
		RedirectURL:       resp.RedirectURL,
	}, nil
}

// newOrderNumber 生成形如 ORD-1724918400000-3F2A9C1B 的订单号，
// 毫秒时间戳加随机后缀，唯一性最终由数据库唯一约束兜底
func newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), suffix)
}
