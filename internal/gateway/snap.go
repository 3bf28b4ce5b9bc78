package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ignatzorin/crowdfunding-backend/internal/domain/valueobject"
)

const (
	sandboxRedirectBase    = "https://app.sandbox.midtrans.com/snap/v4/redirection/"
	productionRedirectBase = "https://app.midtrans.com/snap/v4/redirection/"
)

// ErrEmptyToken шлюз ответил без токена.
var ErrEmptyToken = errors.New("gateway: пустой snap token")

// Customer данные плательщика для страницы оплаты.
type Customer struct {
	FirstName string
	Email     string
	Phone     string
}

// TransactionRequest параметры создания транзакции.
type TransactionRequest struct {
	OrderID     string
	GrossAmount decimal.Decimal
	Customer    Customer
}

// Transaction ответ шлюза на создание транзакции.
type Transaction struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// SnapClient создаёт транзакции в Snap API платёжного шлюза.
type SnapClient struct {
	baseURL    string
	serverKey  string
	production bool
	httpClient *http.Client
}

// NewSnapClient создаёт клиент с ограничением времени на запрос.
func NewSnapClient(baseURL, serverKey string, production bool, timeout time.Duration) *SnapClient {
	return &SnapClient{
		baseURL:    baseURL,
		serverKey:  serverKey,
		production: production,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// RedirectURL возвращает адрес страницы оплаты для токена.
func (c *SnapClient) RedirectURL(token string) string {
	if c.production {
		return productionRedirectBase + token
	}
	return sandboxRedirectBase + token
}

// CreateTransaction регистрирует транзакцию и возвращает snap token.
func (c *SnapClient) CreateTransaction(ctx context.Context, req TransactionRequest) (*Transaction, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("gateway: baseURL не задан")
	}

	payload := map[string]any{
		"transaction_details": map[string]any{
			"order_id":     req.OrderID,
			"gross_amount": json.Number(valueobject.GrossAmount(req.GrossAmount)),
		},
		"customer_details": map[string]any{
			"first_name": req.Customer.FirstName,
			"email":      req.Customer.Email,
			"phone":      req.Customer.Phone,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.SetBasicAuth(c.serverKey, "")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway: запрос snap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errorBody struct {
			ErrorMessages []string `json:"error_messages"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errorBody)
		return nil, fmt.Errorf("gateway: код ответа %d: %s", resp.StatusCode, strings.Join(errorBody.ErrorMessages, "; "))
	}

	var tx Transaction
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return nil, fmt.Errorf("gateway: разбор ответа snap: %w", err)
	}
	if tx.Token == "" {
		return nil, ErrEmptyToken
	}
	if tx.RedirectURL == "" {
		tx.RedirectURL = c.RedirectURL(tx.Token)
	}

	return &tx, nil
}
