package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"storefront/internal/domain/payment/model"
	productRepo "storefront/internal/domain/product/repository"
)

// ErrDuplicateOrderNumber 订单号唯一约束冲突
var ErrDuplicateOrderNumber = errors.New("duplicate order number")

// PaymentRepository 订单与支付记录的数据访问层
type PaymentRepository interface {
	// CreateOrderWithPayment 在一个事务里写入订单、明细和支付记录
	CreateOrderWithPayment(ctx context.Context, order *model.Order) error
	GetOrderByID(ctx context.Context, id string) (*model.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]model.Order, error)
	GetPaymentByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error)
	// SetTransactionID 只在 transaction_id 为空时写入，已写过的不会被覆盖
	SetTransactionID(ctx context.Context, paymentID, transactionID string) error
	// CompletePayment 把 PENDING 的支付置为 COMPLETED，订单转 PROCESSING，
	// 并在同一事务内按明细扣减库存。返回 false 表示支付已处于终态（重复通知）
	CompletePayment(ctx context.Context, paymentID string) (bool, error)
	// FailPayment 把 PENDING 的支付置为 FAILED，订单转 CANCELLED，不动库存
	FailPayment(ctx context.Context, paymentID string, errMsg string) (bool, error)
}

type paymentRepository struct {
	db       *gorm.DB
	products productRepo.ProductRepository
}

func NewPaymentRepository(db *gorm.DB, products productRepo.ProductRepository) PaymentRepository {
	return &paymentRepository{db: db, products: products}
}

func (r *paymentRepository) CreateOrderWithPayment(ctx context.Context, order *model.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateOrderNumber
	}
	return err
}

func (r *paymentRepository) GetOrderByID(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payment").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *paymentRepository) ListOrdersByUserID(ctx context.Context, userID string) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Preload("Payment").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

func (r *paymentRepository) GetPaymentByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).
		First(&payment, "transaction_id = ?", transactionID).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) SetTransactionID(ctx context.Context, paymentID, transactionID string) error {
	return r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND transaction_id IS NULL", paymentID).
		Update("transaction_id", transactionID).Error
}

func (r *paymentRepository) CompletePayment(ctx context.Context, paymentID string) (bool, error) {
	transitioned := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// CAS：只有仍处于 PENDING 的支付才会被置为 COMPLETED
		res := tx.Model(&model.Payment{}).
			Where("id = ? AND status = ?", paymentID, model.PaymentStatusPending).
			Update("status", model.PaymentStatusCompleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		transitioned = true

		var payment model.Payment
		if err := tx.First(&payment, "id = ?", paymentID).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Order{}).
			Where("id = ?", payment.OrderID).
			Update("status", model.OrderStatusProcessing).Error; err != nil {
			return err
		}

		// 扣减库存必须和状态迁移同一事务；不足则整体回滚
		var items []model.OrderItem
		if err := tx.Find(&items, "order_id = ?", payment.OrderID).Error; err != nil {
			return err
		}
		for _, item := range items {
			if err := r.products.DecrementStockIfEnough(tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return transitioned, nil
}

func (r *paymentRepository) FailPayment(ctx context.Context, paymentID string, errMsg string) (bool, error) {
	transitioned := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Payment{}).
			Where("id = ? AND status = ?", paymentID, model.PaymentStatusPending).
			Updates(map[string]interface{}{
				"status":        model.PaymentStatusFailed,
				"error_message": errMsg,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		transitioned = true

		var payment model.Payment
		if err := tx.First(&payment, "id = ?", paymentID).Error; err != nil {
			return err
		}
		return tx.Model(&model.Order{}).
			Where("id = ?", payment.OrderID).
			Update("status", model.OrderStatusCancelled).Error
	})
	if err != nil {
		return false, err
	}
	return transitioned, nil
}

// isUniqueViolation 判断是否为 Postgres 唯一约束冲突（SQLSTATE 23505）
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
