package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	cartModel "storefront/internal/domain/cart/model"
	"storefront/internal/domain/payment/model"
	"storefront/internal/domain/payment/repository"
	productModel "storefront/internal/domain/product/model"
	productService "storefront/internal/domain/product/service"
	userModel "storefront/internal/domain/user/model"
	userService "storefront/internal/domain/user/service"
	"storefront/internal/pkg/config"
	"storefront/internal/pkg/pesapal"
	"storefront/pkg/logger"
	baseModel "storefront/pkg/model"
)

func TestMain(m *testing.M) {
	logger.InitLogger(true)
	config.GlobalConfig.App.BackendURL = "https://api.example.com"
	config.GlobalConfig.App.FrontendURL = "https://shop.example.com"
	config.GlobalConfig.Pesapal.Currency = "KES"
	config.GlobalConfig.Pesapal.IPNID = "ipn-default"
	m.Run()
}

// MockPaymentRepository is a mock of PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) CreateOrderWithPayment(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetOrderByID(ctx context.Context, id string) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockPaymentRepository) ListOrdersByUserID(ctx context.Context, userID string) ([]model.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockPaymentRepository) GetPaymentByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) SetTransactionID(ctx context.Context, paymentID, transactionID string) error {
	args := m.Called(ctx, paymentID, transactionID)
	return args.Error(0)
}

func (m *MockPaymentRepository) CompletePayment(ctx context.Context, paymentID string) (bool, error) {
	args := m.Called(ctx, paymentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) FailPayment(ctx context.Context, paymentID string, errMsg string) (bool, error) {
	args := m.Called(ctx, paymentID, errMsg)
	return args.Bool(0), args.Error(1)
}

// MockUserService is a mock of user service.UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) SyncUser(clerkID string, in userService.SyncInput) (*userModel.User, error) {
	args := m.Called(clerkID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userModel.User), args.Error(1)
}

func (m *MockUserService) GetByClerkID(clerkID string) (*userModel.User, error) {
	args := m.Called(clerkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userModel.User), args.Error(1)
}

// MockProductService is a mock of product service.ProductService
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) GetProducts(page, limit int) ([]productModel.Product, int64, error) {
	args := m.Called(page, limit)
	return args.Get(0).([]productModel.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductService) GetProduct(id string) (*productModel.Product, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*productModel.Product), args.Error(1)
}

func (m *MockProductService) CreateProduct(in productService.ProductInput) (*productModel.Product, error) {
	args := m.Called(in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*productModel.Product), args.Error(1)
}

func (m *MockProductService) UpdateProduct(id string, in productService.ProductInput) (*productModel.Product, error) {
	args := m.Called(id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*productModel.Product), args.Error(1)
}

func (m *MockProductService) DeleteProduct(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockCartService is a mock of cart service.CartService
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) ListItems(ctx context.Context, userID string) ([]cartModel.CartItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cartModel.CartItem), args.Error(1)
}

func (m *MockCartService) AddItem(ctx context.Context, userID, productID string, quantity int) error {
	args := m.Called(ctx, userID, productID, quantity)
	return args.Error(0)
}

func (m *MockCartService) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	args := m.Called(ctx, userID, productID, quantity)
	return args.Error(0)
}

func (m *MockCartService) RemoveItem(ctx context.Context, userID, productID string) error {
	args := m.Called(ctx, userID, productID)
	return args.Error(0)
}

func (m *MockCartService) Clear(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockGateway is a mock of Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) RegisterIPN(ctx context.Context, ipnURL, method string) (*pesapal.IPNRegistration, error) {
	args := m.Called(ctx, ipnURL, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pesapal.IPNRegistration), args.Error(1)
}

func (m *MockGateway) SubmitOrder(ctx context.Context, order *pesapal.OrderRequest) (*pesapal.OrderResponse, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pesapal.OrderResponse), args.Error(1)
}

func (m *MockGateway) GetTransactionStatus(ctx context.Context, trackingID string) (*pesapal.TransactionStatus, error) {
	args := m.Called(ctx, trackingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pesapal.TransactionStatus), args.Error(1)
}

func testUser(id, clerkID string) *userModel.User {
	return &userModel.User{
		BaseModel: baseModel.BaseModel{ID: id},
		ClerkID:   clerkID,
		Email:     "buyer@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
	}
}

func testProduct(id string, price float64, stock int) *productModel.Product {
	return &productModel.Product{
		BaseModel: baseModel.BaseModel{ID: id},
		Title:     "Product " + id,
		Price:     price,
		Stock:     stock,
	}
}

func newCheckoutFixture() (*MockPaymentRepository, *MockUserService, *MockProductService, *MockCartService, *MockGateway, CheckoutService) {
	repo := new(MockPaymentRepository)
	users := new(MockUserService)
	products := new(MockProductService)
	carts := new(MockCartService)
	gateway := new(MockGateway)
	svc := NewCheckoutService(repo, users, products, carts, gateway, NewIPNStore(nil))
	return repo, users, products, carts, gateway, svc
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("Happy path submits order and clears cart", func(t *testing.T) {
		repo, users, products, carts, gateway, svc := newCheckoutFixture()

		users.On("GetByClerkID", "clerk-1").Return(testUser("user-1", "clerk-1"), nil)
		products.On("GetProduct", "prod-a").Return(testProduct("prod-a", 5.00, 5), nil)
		products.On("GetProduct", "prod-b").Return(testProduct("prod-b", 10.00, 3), nil)

		repo.On("CreateOrderWithPayment", ctx, mock.AnythingOfType("*model.Order")).
			Run(func(args mock.Arguments) {
				order := args.Get(1).(*model.Order)
				order.ID = "order-1"
				order.Payment.ID = "pay-1"
			}).Return(nil)
		gateway.On("SubmitOrder", ctx, mock.AnythingOfType("*pesapal.OrderRequest")).
			Return(&pesapal.OrderResponse{
				OrderTrackingID:   "track-123",
				MerchantReference: "ref-123",
				RedirectURL:       "https://pay.pesapal.com/iframe/track-123",
			}, nil)
		repo.On("SetTransactionID", ctx, "pay-1", "track-123").Return(nil)
		carts.On("Clear", ctx, "user-1").Return(nil)

		result, err := svc.Checkout(ctx, "clerk-1", CheckoutInput{
			Items: []CheckoutItem{
				{ProductID: "prod-a", Quantity: 2},
				{ProductID: "prod-b", Quantity: 1},
			},
			ShippingAddress: `{"city":"Nairobi"}`,
		})

		assert.NoError(t, err)
		assert.Equal(t, 20.00, result.TotalAmount)
		assert.Equal(t, "track-123", result.OrderTrackingID)
		assert.Equal(t, "https://pay.pesapal.com/iframe/track-123", result.RedirectURL)
		assert.True(t, strings.HasPrefix(result.OrderNumber, "ORD-"))

		created := repo.Calls[0].Arguments.Get(1).(*model.Order)
		assert.Equal(t, model.OrderStatusPending, created.Status)
		assert.Equal(t, 20.00, created.TotalAmount)
		assert.Len(t, created.Items, 2)
		assert.Equal(t, 5.00, created.Items[0].Price)
		assert.Equal(t, model.PaymentStatusPending, created.Payment.Status)
		assert.Equal(t, 20.00, created.Payment.Amount)

		submitted := gateway.Calls[0].Arguments.Get(1).(*pesapal.OrderRequest)
		assert.Equal(t, created.OrderNumber, submitted.ID)
		assert.Equal(t, "KES", submitted.Currency)
		assert.Equal(t, 20.00, submitted.Amount)
		assert.Equal(t, "ipn-default", submitted.NotificationID)
		assert.Equal(t, "buyer@example.com", submitted.BillingAddress.EmailAddress)

		repo.AssertExpectations(t)
		carts.AssertExpectations(t)
	})

	t.Run("Empty cart is rejected", func(t *testing.T) {
		_, _, _, _, _, svc := newCheckoutFixture()

		_, err := svc.Checkout(ctx, "clerk-1", CheckoutInput{})

		assert.ErrorIs(t, err, ErrEmptyCart)
	})

	t.Run("Unknown user is rejected", func(t *testing.T) {
		_, users, _, _, _, svc := newCheckoutFixture()
		users.On("GetByClerkID", "clerk-x").Return(nil, userService.ErrUserNotFound)

		_, err := svc.Checkout(ctx, "clerk-x", CheckoutInput{
			Items: []CheckoutItem{{ProductID: "prod-a", Quantity: 1}},
		})

		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("Missing product is rejected", func(t *testing.T) {
		repo, users, products, _, _, svc := newCheckoutFixture()
		users.On("GetByClerkID", "clerk-1").Return(testUser("user-1", "clerk-1"), nil)
		products.On("GetProduct", "prod-gone").Return(nil, productService.ErrProductNotFound)

		_, err := svc.Checkout(ctx, "clerk-1", CheckoutInput{
			Items: []CheckoutItem{{ProductID: "prod-gone", Quantity: 1}},
		})

		assert.ErrorIs(t, err, ErrProductNotFound)
		repo.AssertNotCalled(t, "CreateOrderWithPayment", mock.Anything, mock.Anything)
	})

	t.Run("Insufficient stock rejects before any write", func(t *testing.T) {
		repo, users, products, _, gateway, svc := newCheckoutFixture()
		users.On("GetByClerkID", "clerk-1").Return(testUser("user-1", "clerk-1"), nil)
		products.On("GetProduct", "prod-a").Return(testProduct("prod-a", 5.00, 1), nil)

		_, err := svc.Checkout(ctx, "clerk-1", CheckoutInput{
			Items: []CheckoutItem{{ProductID: "prod-a", Quantity: 3}},
		})

		assert.ErrorIs(t, err, ErrInsufficientStock)
		repo.AssertNotCalled(t, "CreateOrderWithPayment", mock.Anything, mock.Anything)
		gateway.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
	})

	t.Run("Gateway failure leaves pending order and keeps cart", func(t *testing.T) {
		repo, users, products, carts, gateway, svc := newCheckoutFixture()
		users.On("GetByClerkID", "clerk-1").Return(testUser("user-1", "clerk-1"), nil)
		products.On("GetProduct", "prod-a").Return(testProduct("prod-a", 5.00, 5), nil)
		repo.On("CreateOrderWithPayment", ctx, mock.AnythingOfType("*model.Order")).
			Run(func(args mock.Arguments) {
				order := args.Get(1).(*model.Order)
				order.ID = "order-1"
				order.Payment.ID = "pay-1"
			}).Return(nil)
		gateway.On("SubmitOrder", ctx, mock.AnythingOfType("*pesapal.OrderRequest")).
			Return(nil, fmt.Errorf("%w: unreachable", pesapal.ErrSubmission))

		_, err := svc.Checkout(ctx, "clerk-1", CheckoutInput{
			Items: []CheckoutItem{{ProductID: "prod-a", Quantity: 1}},
		})

		assert.ErrorIs(t, err, pesapal.ErrSubmission)
		repo.AssertCalled(t, "CreateOrderWithPayment", ctx, mock.AnythingOfType("*model.Order"))
		repo.AssertNotCalled(t, "SetTransactionID", mock.Anything, mock.Anything, mock.Anything)
		carts.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
	})

	t.Run("Duplicate order number is regenerated once", func(t *testing.T) {
		repo, users, products, carts, gateway, svc := newCheckoutFixture()
		users.On("GetByClerkID", "clerk-1").Return(testUser("user-1", "clerk-1"), nil)
		products.On("GetProduct", "prod-a").Return(testProduct("prod-a", 5.00, 5), nil)

		repo.On("CreateOrderWithPayment", ctx, mock.AnythingOfType("*model.Order")).
			Return(repository.ErrDuplicateOrderNumber).Once()
		repo.On("CreateOrderWithPayment", ctx, mock.AnythingOfType("*model.Order")).
			Run(func(args mock.Arguments) {
				order := args.Get(1).(*model.Order)
				order.ID = "order-1"
				order.Payment.ID = "pay-1"
			}).Return(nil).Once()
		gateway.On("SubmitOrder", ctx, mock.AnythingOfType("*pesapal.OrderRequest")).
			Return(&pesapal.OrderResponse{
				OrderTrackingID: "track-1",
				RedirectURL:     "https://pay.pesapal.com/iframe/track-1",
			}, nil)
		repo.On("SetTransactionID", ctx, "pay-1", "track-1").Return(nil)
		carts.On("Clear", ctx, "user-1").Return(nil)

		result, err := svc.Checkout(ctx, "clerk-1", CheckoutInput{
			Items: []CheckoutItem{{ProductID: "prod-a", Quantity: 1}},
		})

		assert.NoError(t, err)
		assert.Equal(t, "track-1", result.OrderTrackingID)
		repo.AssertNumberOfCalls(t, "CreateOrderWithPayment", 2)
	})

	t.Run("Missing IPN configuration is rejected", func(t *testing.T) {
		saved := config.GlobalConfig.Pesapal.IPNID
		config.GlobalConfig.Pesapal.IPNID = ""
		defer func() { config.GlobalConfig.Pesapal.IPNID = saved }()

		repo, users, products, _, _, svc := newCheckoutFixture()
		users.On("GetByClerkID", "clerk-1").Return(testUser("user-1", "clerk-1"), nil)
		products.On("GetProduct", "prod-a").Return(testProduct("prod-a", 5.00, 5), nil)

		_, err := svc.Checkout(ctx, "clerk-1", CheckoutInput{
			Items: []CheckoutItem{{ProductID: "prod-a", Quantity: 1}},
		})

		assert.ErrorIs(t, err, ErrIPNNotConfigured)
		repo.AssertNotCalled(t, "CreateOrderWithPayment", mock.Anything, mock.Anything)
	})
}

func TestRetrySubmission(t *testing.T) {
	ctx := context.Background()

	pendingOrder := func() *model.Order {
		return &model.Order{
			BaseModel:   baseModel.BaseModel{ID: "order-1"},
			OrderNumber: "ORD-1724918400000-AB12CD34",
			UserID:      "user-1",
			Status:      model.OrderStatusPending,
			TotalAmount: 15.00,
			Payment: &model.Payment{
				BaseModel: baseModel.BaseModel{ID: "pay-1"},
				OrderID:   "order-1",
				Amount:    15.00,
				Status:    model.PaymentStatusPending,
			},
		}
	}

	t.Run("Resubmits pending order without new order row", func(t *testing.T) {
		repo, users, _, _, gateway, svc := newCheckoutFixture()
		users.On("GetByClerkID", "clerk-1").Return(testUser("user-1", "clerk-1"), nil)
		repo.On("GetOrderByID", ctx, "order-1").Return(pendingOrder(), nil)
		gateway.On("SubmitOrder", ctx, mock.AnythingOfType("*pesapal.OrderRequest")).
			Return(&pesapal.OrderResponse{
				OrderTrackingID: "track-retry",
				RedirectURL:     "https://pay.pesapal.com/iframe/track-retry",
			}, nil)
		repo.On("SetTransactionID", ctx, "pay-1", "track-retry").Return(nil)

		result, err := svc.RetrySubmission(ctx, "clerk-1", "order-1")

		assert.NoError(t, err)
		assert.Equal(t, "ORD-1724918400000-AB12CD34", result.OrderNumber)
		assert.Equal(t, "track-retry", result.OrderTrackingID)
		repo.AssertNotCalled(t, "CreateOrderWithPayment", mock.Anything, mock.Anything)
	})

	t.Run("Already submitted order is rejected", func(t *testing.T) {
		repo, users, _, _, _, svc := newCheckoutFixture()
		users.On("GetByClerkID", "clerk-1").Return(testUser("user-1", "clerk-1"), nil)
		order := pendingOrder()
		tracking := "track-old"
		order.Payment.TransactionID = &tracking
		repo.On("GetOrderByID", ctx, "order-1").Return(order, nil)

		_, err := svc.RetrySubmission(ctx, "clerk-1", "order-1")

		assert.ErrorIs(t, err, ErrAlreadySubmitted)
	})

	t.Run("Order of another user is not found", func(t *testing.T) {
		repo, users, _, _, _, svc := newCheckoutFixture()
		users.On("GetByClerkID", "clerk-2").Return(testUser("user-2", "clerk-2"), nil)
		repo.On("GetOrderByID", ctx, "order-1").Return(pendingOrder(), nil)

		_, err := svc.RetrySubmission(ctx, "clerk-2", "order-1")

		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("Missing order maps record not found", func(t *testing.T) {
		repo, users, _, _, _, svc := newCheckoutFixture()
		users.On("GetByClerkID", "clerk-1").Return(testUser("user-1", "clerk-1"), nil)
		repo.On("GetOrderByID", ctx, "order-x").Return(nil, gorm.ErrRecordNotFound)

		_, err := svc.RetrySubmission(ctx, "clerk-1", "order-x")

		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestRegisterIPN(t *testing.T) {
	ctx := context.Background()

	t.Run("Registers callback URL with gateway", func(t *testing.T) {
		_, _, _, _, gateway, svc := newCheckoutFixture()
		gateway.On("RegisterIPN", ctx, "https://api.example.com/api/payments/ipn", "GET").
			Return(&pesapal.IPNRegistration{IPNID: "ipn-new", URL: "https://api.example.com/api/payments/ipn"}, nil)

		reg, err := svc.RegisterIPN(ctx)

		assert.NoError(t, err)
		assert.Equal(t, "ipn-new", reg.IPNID)
		gateway.AssertExpectations(t)
	})

	t.Run("Gateway error is propagated", func(t *testing.T) {
		_, _, _, _, gateway, svc := newCheckoutFixture()
		gateway.On("RegisterIPN", ctx, mock.Anything, "GET").
			Return(nil, errors.New("gateway down"))

		_, err := svc.RegisterIPN(ctx)

		assert.Error(t, err)
	})
}

func TestListOrders(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns orders for resolved user", func(t *testing.T) {
		repo, users, _, _, _, svc := newCheckoutFixture()
		users.On("GetByClerkID", "clerk-1").Return(testUser("user-1", "clerk-1"), nil)
		repo.On("ListOrdersByUserID", ctx, "user-1").Return([]model.Order{
			{OrderNumber: "ORD-2", Status: model.OrderStatusProcessing},
			{OrderNumber: "ORD-1", Status: model.OrderStatusCancelled},
		}, nil)

		orders, err := svc.ListOrders(ctx, "clerk-1")

		assert.NoError(t, err)
		assert.Len(t, orders, 2)
		assert.Equal(t, "ORD-2", orders[0].OrderNumber)
	})
}
