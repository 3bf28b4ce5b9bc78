package gateway

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
)

// Статусы транзакции, которые присылает шлюз.
const (
	StatusCapture    = "capture"
	StatusSettlement = "settlement"
	StatusPending    = "pending"
	StatusDeny       = "deny"
	StatusExpire     = "expire"
	StatusCancel     = "cancel"
)

// Статусы антифрод-проверки.
const (
	FraudAccept    = "accept"
	FraudChallenge = "challenge"
	FraudDeny      = "deny"
)

// Notification асинхронное уведомление шлюза о смене статуса оплаты.
type Notification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	TransactionID     string `json:"transaction_id"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
}

// Sign вычисляет подпись уведомления: hex(sha512(order_id + status_code + gross_amount + server_key)).
func Sign(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// Verifier проверяет подписи уведомлений ключом сервера.
type Verifier struct {
	serverKey string
}

func NewVerifier(serverKey string) *Verifier {
	return &Verifier{serverKey: serverKey}
}

// Verify сравнивает подпись за постоянное время.
func (v *Verifier) Verify(n Notification) bool {
	if v.serverKey == "" || n.SignatureKey == "" {
		return false
	}
	expected := Sign(n.OrderID, n.StatusCode, n.GrossAmount, v.serverKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) == 1
}
