package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SubSh2004/CampusZon-sub000/config"
)

func TestVerifyPayment(t *testing.T) {
	sig := SignPayment("secret", "order_1", "pay_1")

	assert.True(t, VerifyPayment("secret", "order_1", "pay_1", sig))
	assert.False(t, VerifyPayment("secret", "order_1", "pay_2", sig))
	assert.False(t, VerifyPayment("other", "order_1", "pay_1", sig))
	assert.False(t, VerifyPayment("secret", "order_1", "pay_1", ""))
	assert.False(t, VerifyPayment("", "order_1", "pay_1", sig))
}

func TestVerifyWebhook(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	sig := SignWebhook("whsec", body)

	assert.True(t, VerifyWebhook("whsec", body, sig))
	assert.False(t, VerifyWebhook("whsec", []byte(`{"event":"payment.failed"}`), sig))
}

func TestClient_CreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)

		var req createOrderRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(1000), req.Amount)
		assert.Equal(t, "INR", req.Currency)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_abc","amount":1000,"currency":"INR","receipt":"r1","status":"created"}`))
	}))
	defer srv.Close()

	c := NewClient(config.PaymentConfig{BaseURL: srv.URL + "/v1/", KeyID: "key", KeySecret: "secret", Timeout: time.Second})
	order, err := c.CreateOrder(context.Background(), 1000, "INR", "r1")
	require.NoError(t, err)
	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, "key", c.KeyID())
}

func TestClient_CreateOrderGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	}))
	defer srv.Close()

	c := NewClient(config.PaymentConfig{BaseURL: srv.URL})
	_, err := c.CreateOrder(context.Background(), 1, "INR", "r1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount too small")
}

func TestClassifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		flagged := req["image_url"] == "https://img/bad.jpg"
		_ = json.NewEncoder(w).Encode(Verdict{Flagged: flagged, Label: "nsfw"})
	}))
	defer srv.Close()

	c := NewClassifier(config.ClassifierConfig{URL: srv.URL})
	v, err := c.Classify(context.Background(), "https://img/bad.jpg")
	require.NoError(t, err)
	assert.True(t, v.Flagged)

	v, err = c.Classify(context.Background(), "https://img/ok.jpg")
	require.NoError(t, err)
	assert.False(t, v.Flagged)
}

func TestClassifierUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClassifier(config.ClassifierConfig{URL: srv.URL}).Classify(context.Background(), "x")
	assert.Error(t, err)
}
