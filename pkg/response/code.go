package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 用户模块错误 100xx
	ErrUserNotFound = 10001
	ErrTokenInvalid = 10002
	ErrNoPermission = 10003

	// 商品模块错误 200xx
	ErrProductNotFound = 20001
	ErrOutOfStock      = 20002

	// 购物车模块错误 300xx
	ErrCartEmpty        = 30001
	ErrCartItemNotFound = 30002

	// 订单/支付模块错误 400xx
	ErrOrderNotFound     = 40001
	ErrPaymentNotFound   = 40002
	ErrMissingTrackingID = 40003
	ErrGatewayAuth       = 40004
	ErrGatewaySubmit     = 40005
	ErrGatewayStatus     = 40006
	ErrIPNNotConfigured  = 40007

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003
)
