package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignPayment 网关对支付回调的签名：HMAC-SHA256(order_id|payment_id, secret)，十六进制
func SignPayment(secret, orderID, paymentID string) string {
	return sign(secret, []byte(orderID+"|"+paymentID))
}

// VerifyPayment 常量时间比较回调签名
func VerifyPayment(secret, orderID, paymentID, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(SignPayment(secret, orderID, paymentID)), []byte(signature))
}

// SignWebhook webhook 签名：HMAC-SHA256(原始请求体, webhook secret)
func SignWebhook(secret string, body []byte) string {
	return sign(secret, body)
}

func VerifyWebhook(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(SignWebhook(secret, body)), []byte(signature))
}

func sign(secret string, msg []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}
