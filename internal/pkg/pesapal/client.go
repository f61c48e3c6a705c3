package pesapal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"storefront/pkg/metrics"
)

// Pesapal API v3 的基础地址
const (
	SandboxBaseURL    = "https://cybqa.pesapal.com/pesapalv3"
	ProductionBaseURL = "https://pay.pesapal.com/v3"

	// Token 实际有效期约 5 分钟，提前 30 秒过期以避免用到临界 Token
	tokenLifetime = 5 * time.Minute
	tokenMargin   = 30 * time.Second

	defaultTimeout = 15 * time.Second
)

// 错误种类：调用方用 errors.Is 区分 "凭证被拒" / "提交失败" / "查询失败"
var (
	ErrAuth       = errors.New("pesapal: authentication failed")
	ErrSubmission = errors.New("pesapal: order submission failed")
	ErrStatus     = errors.New("pesapal: status query failed")
)

// BaseURLForEnv 根据环境返回基础地址
func BaseURLForEnv(env string) string {
	if env == "production" {
		return ProductionBaseURL
	}
	return SandboxBaseURL
}

// Client Pesapal 支付网关客户端
// Token 缓存在进程内，并发刷新通过互斥锁合并为一次认证请求
type Client struct {
	consumerKey    string
	consumerSecret string
	baseURL        string
	httpClient     *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// New 创建网关客户端
func New(consumerKey, consumerSecret, baseURL string) *Client {
	return &Client{
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		baseURL:        baseURL,
		httpClient:     &http.Client{Timeout: defaultTimeout},
	}
}

// BillingAddress Pesapal 账单地址字段
type BillingAddress struct {
	EmailAddress string `json:"email_address"`
	PhoneNumber  string `json:"phone_number"`
	CountryCode  string `json:"country_code"`
	FirstName    string `json:"first_name"`
	MiddleName   string `json:"middle_name"`
	LastName     string `json:"last_name"`
	Line1        string `json:"line_1"`
	Line2        string `json:"line_2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	ZipCode      string `json:"zip_code"`
}

// OrderRequest SubmitOrderRequest 的请求体
type OrderRequest struct {
	ID             string         `json:"id"` // 商户侧订单号 (merchant reference)
	Currency       string         `json:"currency"`
	Amount         float64        `json:"amount"`
	Description    string         `json:"description"`
	CallbackURL    string         `json:"callback_url"`
	NotificationID string         `json:"notification_id"`
	BillingAddress BillingAddress `json:"billing_address"`
}

// OrderResponse 提交订单的返回
type OrderResponse struct {
	OrderTrackingID   string        `json:"order_tracking_id"`
	MerchantReference string        `json:"merchant_reference"`
	RedirectURL       string        `json:"redirect_url"`
	Status            string        `json:"status"`
	Error             *GatewayError `json:"error"`
}

// IPNRegistration RegisterIPN 的返回
type IPNRegistration struct {
	IPNID  string        `json:"ipn_id"`
	URL    string        `json:"url"`
	Status string        `json:"status"`
	Error  *GatewayError `json:"error"`
}

// TransactionStatus GetTransactionStatus 的返回
type TransactionStatus struct {
	PaymentMethod            string        `json:"payment_method"`
	Amount                   float64       `json:"amount"`
	PaymentStatusDescription string        `json:"payment_status_description"`
	Description              string        `json:"description"`
	ConfirmationCode         string        `json:"confirmation_code"`
	MerchantReference        string        `json:"merchant_reference"`
	Currency                 string        `json:"currency"`
	StatusCode               int           `json:"status_code"`
	Error                    *GatewayError `json:"error"`
}

// GatewayError Pesapal 错误对象
type GatewayError struct {
	ErrorType string `json:"error_type"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func (e *GatewayError) String() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type authResponse struct {
	Token  string        `json:"token"`
	Status string        `json:"status"`
	Error  *GatewayError `json:"error"`
}

// Authenticate 获取 Bearer Token
// 缓存有效时直接返回；需要刷新时并发调用方在锁上等待同一次认证
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	start := time.Now()
	body, err := json.Marshal(map[string]string{
		"consumer_key":    c.consumerKey,
		"consumer_secret": c.consumerSecret,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/Auth/RequestToken", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	defer resp.Body.Close()
	metrics.GetGlobalCollector().RecordGatewayCall("authenticate", time.Since(start))

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", fmt.Errorf("%w: malformed response: %v", ErrAuth, err)
	}
	if resp.StatusCode != http.StatusOK || auth.Token == "" {
		return "", fmt.Errorf("%w: %s", ErrAuth, auth.Error.String())
	}

	c.token = auth.Token
	c.tokenExpiry = time.Now().Add(tokenLifetime - tokenMargin)
	return c.token, nil
}

// InvalidateToken 清空缓存的 Token（测试和 401 恢复用）
func (c *Client) InvalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.tokenExpiry = time.Time{}
}

// RegisterIPN 注册 IPN 回调地址，返回网关分配的通知 ID
// 网关每次调用都可能发新 ID，调用方负责持久化返回值
func (c *Client) RegisterIPN(ctx context.Context, ipnURL, method string) (*IPNRegistration, error) {
	if method == "" {
		method = "GET"
	}

	payload := map[string]string{
		"url":                   ipnURL,
		"ipn_notification_type": method,
	}

	var reg IPNRegistration
	if err := c.doPost(ctx, "/api/URLSetup/RegisterIPN", "register_ipn", payload, &reg); err != nil {
		return nil, err
	}
	if reg.IPNID == "" {
		return nil, fmt.Errorf("%w: %s", ErrSubmission, reg.Error.String())
	}
	return &reg, nil
}

// SubmitOrder 提交订单，返回 tracking id / merchant reference 回显 / 跳转地址
// 失败时调用方必须把订单视为 "已创建、未发起支付"，可安全重试
func (c *Client) SubmitOrder(ctx context.Context, order *OrderRequest) (*OrderResponse, error) {
	var out OrderResponse
	if err := c.doPost(ctx, "/api/Transactions/SubmitOrderRequest", "submit_order", order, &out); err != nil {
		return nil, err
	}
	if out.OrderTrackingID == "" || out.RedirectURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrSubmission, out.Error.String())
	}
	return &out, nil
}

// GetTransactionStatus 查询交易状态。无副作用，可重复调用
func (c *Client) GetTransactionStatus(ctx context.Context, trackingID string) (*TransactionStatus, error) {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	endpoint := c.baseURL + "/api/Transactions/GetTransactionStatus?orderTrackingId=" + url.QueryEscape(trackingID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStatus, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStatus, err)
	}
	defer resp.Body.Close()
	metrics.GetGlobalCollector().RecordGatewayCall("get_status", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: http %d: %s", ErrStatus, resp.StatusCode, string(body))
	}

	var status TransactionStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrStatus, err)
	}
	return &status, nil
}

// doPost 带 Bearer Token 的 POST 请求
func (c *Client) doPost(ctx context.Context, path, operation string, payload interface{}, out interface{}) error {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSubmission, err)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	defer resp.Body.Close()
	metrics.GetGlobalCollector().RecordGatewayCall(operation, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: http %d: %s", ErrSubmission, resp.StatusCode, string(raw))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", ErrSubmission, err)
	}
	return nil
}
