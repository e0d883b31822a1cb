// Package gateway implements the VNPay checkout integration: building the
// hosted-checkout URL, signing and verifying the HMAC-SHA512 secure hash,
// and normalizing redirect callbacks into a provider-independent envelope.
package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderVNPay = "vnpay"

	// ResponseCodeSuccess is VNPay's "transaction approved" code.
	ResponseCodeSuccess = "00"

	version = "2.1.0"
	command = "pay"
)

var (
	ErrInvalidSignature = errors.New("vnpay: secure hash verification failed")
	ErrMissingTxnRef    = errors.New("vnpay: callback is missing vnp_TxnRef")
)

// Client builds checkout URLs and parses callbacks for one VNPay terminal.
type Client struct {
	tmnCode    string
	hashSecret []byte
	payURL     string
	now        func() time.Time
}

func NewClient(tmnCode, hashSecret, payURL string) *Client {
	return &Client{
		tmnCode:    tmnCode,
		hashSecret: []byte(hashSecret),
		payURL:     payURL,
		now:        time.Now,
	}
}

// CheckoutRequest describes one payment to send a customer to the gateway for.
type CheckoutRequest struct {
	TransactionRef string
	AmountCents    int64
	OrderInfo      string
	ReturnURL      string
	ClientIP       string
	Currency       string
}

// BuildPaymentURL returns the hosted-checkout URL for the request. VNPay
// carries amounts multiplied by 100, so AmountCents is scaled up before it
// goes on the wire.
func (c *Client) BuildPaymentURL(req CheckoutRequest) string {
	params := map[string]string{
		"vnp_Version":    version,
		"vnp_Command":    command,
		"vnp_TmnCode":    c.tmnCode,
		"vnp_Amount":     strconv.FormatInt(req.AmountCents*100, 10),
		"vnp_CurrCode":   req.Currency,
		"vnp_TxnRef":     req.TransactionRef,
		"vnp_OrderInfo":  req.OrderInfo,
		"vnp_OrderType":  "other",
		"vnp_Locale":     "en",
		"vnp_ReturnUrl":  req.ReturnURL,
		"vnp_IpAddr":     req.ClientIP,
		"vnp_CreateDate": c.now().Format("20060102150405"),
	}

	query := encodeSorted(params)
	hash := c.sign(query)
	return fmt.Sprintf("%s?%s&vnp_SecureHash=%s", c.payURL, query, hash)
}

// CallbackResult is the canonical view of one gateway redirect.
type CallbackResult struct {
	TransactionRef    string
	Success           bool
	ResponseCode      string
	AmountCents       int64
	ProviderPaymentID string
}

// Envelope is the normalized callback summary returned to API clients
// alongside the raw provider fields.
type Envelope struct {
	TransactionRef    string `json:"transaction_ref"`
	Status            string `json:"status"`
	Provider          string `json:"provider"`
	AmountCents       int64  `json:"amount"`
	ProviderPaymentID string `json:"provider_payment_id"`
}

// ParseCallback verifies the secure hash on a redirect's query parameters and
// extracts the canonical outcome. Success is determined solely by
// vnp_ResponseCode; nothing the client asserts about its own redirect is
// trusted.
func (c *Client) ParseCallback(values url.Values) (*CallbackResult, error) {
	params := make(map[string]string, len(values))
	for k := range values {
		params[k] = values.Get(k)
	}

	if !c.VerifySignature(params) {
		return nil, ErrInvalidSignature
	}

	ref := params["vnp_TxnRef"]
	if ref == "" {
		return nil, ErrMissingTxnRef
	}

	var amountCents int64
	if raw := params["vnp_Amount"]; raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("vnpay: bad vnp_Amount %q: %w", raw, err)
		}
		amountCents = v / 100
	}

	code := params["vnp_ResponseCode"]
	return &CallbackResult{
		TransactionRef:    ref,
		Success:           code == ResponseCodeSuccess,
		ResponseCode:      code,
		AmountCents:       amountCents,
		ProviderPaymentID: params["vnp_TransactionNo"],
	}, nil
}

// Envelope builds the normalized summary for a parsed callback.
func (r *CallbackResult) Envelope() Envelope {
	status := "failed"
	if r.Success {
		status = "success"
	}
	return Envelope{
		TransactionRef:    r.TransactionRef,
		Status:            status,
		Provider:          ProviderVNPay,
		AmountCents:       r.AmountCents,
		ProviderPaymentID: r.ProviderPaymentID,
	}
}

// VerifySignature checks vnp_SecureHash against the remaining vnp_ fields.
func (c *Client) VerifySignature(params map[string]string) bool {
	received := params["vnp_SecureHash"]
	if received == "" {
		return false
	}

	filtered := make(map[string]string, len(params))
	for k, v := range params {
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		if strings.HasPrefix(k, "vnp_") {
			filtered[k] = v
		}
	}

	expected := c.sign(encodeSorted(filtered))
	return hmac.Equal([]byte(strings.ToLower(received)), []byte(expected))
}

// SignParams computes the secure hash for a parameter set. Exposed for tests
// that fabricate gateway callbacks.
func (c *Client) SignParams(params map[string]string) string {
	return c.sign(encodeSorted(params))
}

func (c *Client) sign(data string) string {
	mac := hmac.New(sha512.New, c.hashSecret)
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// encodeSorted renders params as key=value pairs sorted by key, URL-encoded
// the same way VNPay's reference implementations do before hashing.
func encodeSorted(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if params[k] == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}
