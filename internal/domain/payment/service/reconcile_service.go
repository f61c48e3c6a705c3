package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront/internal/domain/payment/model"
	"storefront/internal/domain/payment/repository"
	productRepo "storefront/internal/domain/product/repository"
	"storefront/internal/pkg/pesapal"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"
)

// NotifyResult IPN 处理结果
type NotifyResult struct {
	OrderTrackingID   string `json:"orderTrackingId"`
	MerchantReference string `json:"merchantReference"`
	PaymentStatus     string `json:"paymentStatus"`
	// Transitioned 为 false 表示这次通知没有改变任何状态（重复投递或仍在 PENDING）
	Transitioned bool `json:"transitioned"`
}

// StatusResult 状态查询的合并视图：本地支付记录加网关实时状态
type StatusResult struct {
	Payment *model.Payment             `json:"payment"`
	Order   *model.Order               `json:"order"`
	Gateway *pesapal.TransactionStatus `json:"gateway"`
}

// ReconcileService 对账：处理 IPN 回调和状态查询
// 通知本身不携带可信状态，每次都向网关回查后再落库
type ReconcileService interface {
	HandleIPN(ctx context.Context, trackingID, merchantRef string) (*NotifyResult, error)
	GetStatus(ctx context.Context, trackingID string) (*StatusResult, error)
}

type reconcileService struct {
	repo    repository.PaymentRepository
	gateway Gateway
}

func NewReconcileService(repo repository.PaymentRepository, gateway Gateway) ReconcileService {
	return &reconcileService{repo: repo, gateway: gateway}
}

func (s *reconcileService) HandleIPN(ctx context.Context, trackingID, merchantRef string) (*NotifyResult, error) {
	if trackingID == "" {
		metrics.GetGlobalCollector().RecordIPNNotify("bad_request")
		return nil, ErrMissingTrackingID
	}

	status, err := s.gateway.GetTransactionStatus(ctx, trackingID)
	if err != nil {
		metrics.GetGlobalCollector().RecordIPNNotify("gateway_error")
		return nil, err
	}

	payment, err := s.repo.GetPaymentByTransactionID(ctx, trackingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.GetGlobalCollector().RecordIPNNotify("unknown_payment")
			logger.Log.Warn("ipn for unknown tracking id",
				zap.String("trackingId", trackingID),
				zap.String("merchantReference", merchantRef))
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	result := &NotifyResult{
		OrderTrackingID:   trackingID,
		MerchantReference: merchantRef,
	}

	switch status.PaymentStatusDescription {
	case "Completed":
		transitioned, err := s.repo.CompletePayment(ctx, payment.ID)
		if err != nil {
			if errors.Is(err, productRepo.ErrInsufficientStock) {
				// 钱已收但货不够，留在 PENDING 人工处理，不让网关重试
				metrics.GetGlobalCollector().RecordIPNNotify("stock_conflict")
				logger.Log.Error("payment completed but stock insufficient",
					zap.String("trackingId", trackingID),
					zap.String("paymentId", payment.ID))
				result.PaymentStatus = model.PaymentStatusPending
				return result, nil
			}
			return nil, err
		}
		result.PaymentStatus = model.PaymentStatusCompleted
		result.Transitioned = transitioned
		if transitioned {
			metrics.GetGlobalCollector().RecordIPNNotify("completed")
		} else {
			metrics.GetGlobalCollector().RecordIPNNotify("duplicate")
		}
	case "Failed":
		transitioned, err := s.repo.FailPayment(ctx, payment.ID, status.Description)
		if err != nil {
			return nil, err
		}
		result.PaymentStatus = model.PaymentStatusFailed
		result.Transitioned = transitioned
		if transitioned {
			metrics.GetGlobalCollector().RecordIPNNotify("failed")
		} else {
			metrics.GetGlobalCollector().RecordIPNNotify("duplicate")
		}
	default:
		// Pending / Invalid / Reversed 等，不做状态迁移
		metrics.GetGlobalCollector().RecordIPNNotify("noop")
		result.PaymentStatus = payment.Status
	}

	logger.Log.Info("ipn processed",
		zap.String("trackingId", trackingID),
		zap.String("gatewayStatus", status.PaymentStatusDescription),
		zap.Bool("transitioned", result.Transitioned))
	return result, nil
}

func (s *reconcileService) GetStatus(ctx context.Context, trackingID string) (*StatusResult, error) {
	if trackingID == "" {
		return nil, ErrMissingTrackingID
	}

	payment, err := s.repo.GetPaymentByTransactionID(ctx, trackingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	order, err := s.repo.GetOrderByID(ctx, payment.OrderID)
	if err != nil {
		return nil, err
	}

	// 网关查不到时只返回本地视图，不算失败
	gatewayStatus, err := s.gateway.GetTransactionStatus(ctx, trackingID)
	if err != nil {
		logger.Log.Warn("live status query failed, returning local state",
			zap.String("trackingId", trackingID), zap.Error(err))
		gatewayStatus = nil
	}

	return &StatusResult{Payment: payment, Order: order, Gateway: gatewayStatus}, nil
}
