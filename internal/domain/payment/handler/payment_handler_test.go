package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"storefront/internal/domain/payment/model"
	"storefront/internal/domain/payment/service"
	"storefront/internal/pkg/pesapal"
	"storefront/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.InitLogger(true)
}

// MockCheckoutService is a mock of service.CheckoutService
type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) Checkout(ctx context.Context, clerkID string, in service.CheckoutInput) (*service.CheckoutResult, error) {
	args := m.Called(ctx, clerkID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CheckoutResult), args.Error(1)
}

func (m *MockCheckoutService) RetrySubmission(ctx context.Context, clerkID, orderID string) (*service.CheckoutResult, error) {
	args := m.Called(ctx, clerkID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CheckoutResult), args.Error(1)
}

func (m *MockCheckoutService) ListOrders(ctx context.Context, clerkID string) ([]model.Order, error) {
	args := m.Called(ctx, clerkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockCheckoutService) RegisterIPN(ctx context.Context) (*pesapal.IPNRegistration, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pesapal.IPNRegistration), args.Error(1)
}

// MockReconcileService is a mock of service.ReconcileService
type MockReconcileService struct {
	mock.Mock
}

func (m *MockReconcileService) HandleIPN(ctx context.Context, trackingID, merchantRef string) (*service.NotifyResult, error) {
	args := m.Called(ctx, trackingID, merchantRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.NotifyResult), args.Error(1)
}

func (m *MockReconcileService) GetStatus(ctx context.Context, trackingID string) (*service.StatusResult, error) {
	args := m.Called(ctx, trackingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.StatusResult), args.Error(1)
}

func newIPNRouter(reconcile *MockReconcileService) *gin.Engine {
	h := NewPaymentHandler(new(MockCheckoutService), reconcile)
	r := gin.New()
	r.GET("/api/payments/ipn", h.IPN)
	return r
}

func TestIPNEndpoint(t *testing.T) {
	t.Run("Processed notification is acknowledged with 200", func(t *testing.T) {
		reconcile := new(MockReconcileService)
		reconcile.On("HandleIPN", mock.Anything, "track-123", "ORD-1").
			Return(&service.NotifyResult{
				OrderTrackingID: "track-123",
				PaymentStatus:   model.PaymentStatusCompleted,
				Transitioned:    true,
			}, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/payments/ipn?OrderTrackingId=track-123&OrderMerchantReference=ORD-1", nil)
		newIPNRouter(reconcile).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "track-123")
	})

	t.Run("Duplicate notification still returns 200", func(t *testing.T) {
		reconcile := new(MockReconcileService)
		reconcile.On("HandleIPN", mock.Anything, "track-123", "").
			Return(&service.NotifyResult{
				OrderTrackingID: "track-123",
				PaymentStatus:   model.PaymentStatusCompleted,
				Transitioned:    false,
			}, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/payments/ipn?OrderTrackingId=track-123", nil)
		newIPNRouter(reconcile).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Missing tracking id returns 400", func(t *testing.T) {
		reconcile := new(MockReconcileService)
		reconcile.On("HandleIPN", mock.Anything, "", "").
			Return(nil, service.ErrMissingTrackingID)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/payments/ipn", nil)
		newIPNRouter(reconcile).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Unknown payment returns 404 so the gateway retries", func(t *testing.T) {
		reconcile := new(MockReconcileService)
		reconcile.On("HandleIPN", mock.Anything, "track-unknown", "").
			Return(nil, service.ErrPaymentNotFound)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/payments/ipn?OrderTrackingId=track-unknown", nil)
		newIPNRouter(reconcile).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Status verification failure returns 502", func(t *testing.T) {
		reconcile := new(MockReconcileService)
		reconcile.On("HandleIPN", mock.Anything, "track-123", "").
			Return(nil, fmt.Errorf("%w: timeout", pesapal.ErrStatus))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/payments/ipn?OrderTrackingId=track-123", nil)
		newIPNRouter(reconcile).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}
