package model

import (
	productModel "storefront/internal/domain/product/model"
	baseModel "storefront/pkg/model"
)

// Order 订单
// TotalAmount 在创建时等于 Σ(item.Price * item.Quantity)，之后不随商品价格变动
type Order struct {
	baseModel.BaseModel
	OrderNumber     string      `gorm:"uniqueIndex;not null" json:"orderNumber"`
	UserID          string      `gorm:"type:uuid;index;not null" json:"userId"`
	Status          string      `gorm:"not null;default:'PENDING'" json:"status"`
	TotalAmount     float64     `gorm:"not null" json:"totalAmount"`
	ShippingAddress string      `gorm:"type:jsonb" json:"shippingAddress"`
	BillingAddress  *string     `gorm:"type:jsonb" json:"billingAddress,omitempty"`
	Items           []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Payment         *Payment    `gorm:"foreignKey:OrderID" json:"payment,omitempty"`
}

// OrderItem 订单明细。Price 是下单时的快照，不是商品表的实时价格
type OrderItem struct {
	baseModel.BaseModel
	OrderID   string                `gorm:"type:uuid;index;not null" json:"orderId"`
	ProductID string                `gorm:"type:uuid;not null" json:"productId"`
	Quantity  int                   `gorm:"not null" json:"quantity"`
	Price     float64               `gorm:"not null" json:"price"`
	Product   *productModel.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// Payment 支付记录，每个订单恰好一条
// TransactionID 在网关受理后写入一次；状态只会 PENDING→COMPLETED 或 PENDING→FAILED
type Payment struct {
	baseModel.BaseModel
	OrderID       string  `gorm:"type:uuid;uniqueIndex;not null" json:"orderId"`
	Amount        float64 `gorm:"not null" json:"amount"`
	Status        string  `gorm:"not null;default:'PENDING'" json:"status"`
	TransactionID *string `gorm:"uniqueIndex" json:"transactionId"`
	PaymentMethod string  `gorm:"default:'pesapal'" json:"paymentMethod"`
	ErrorMessage  *string `json:"errorMessage,omitempty"`
}

// 订单状态
const (
	OrderStatusPending    = "PENDING"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusShipped    = "SHIPPED"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCancelled  = "CANCELLED"
)

// 支付状态（PENDING 之后只有两个终态）
const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
)
