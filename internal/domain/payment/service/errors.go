package service

import "errors"

// 结算与对账流程会返回的业务错误
var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrUserNotFound      = errors.New("user not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOrderNotFound     = errors.New("order not found")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrMissingTrackingID = errors.New("missing order tracking id")
	ErrIPNNotConfigured  = errors.New("ipn not registered")
	ErrAlreadySubmitted  = errors.New("order already submitted to gateway")
)
