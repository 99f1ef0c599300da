package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// SignatureHeader 请求体 HMAC-SHA256 签名（hex）
const SignatureHeader = "X-SocietySync-Signature"

// WebhookNotifier 以 JSON POST 推送到外部地址，5xx 与网络错误会重试
type WebhookNotifier struct {
	client  *resty.Client
	url     string
	secret  string
	retries int
	backoff time.Duration
}

// NewWebhookNotifier 创建 webhook 通道
func NewWebhookNotifier(url, secret string, timeout time.Duration, retries int) *WebhookNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &WebhookNotifier{
		client:  client,
		url:     url,
		secret:  secret,
		retries: retries,
		backoff: 200 * time.Millisecond,
	}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

// Sign 计算载荷签名
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (w *WebhookNotifier) Notify(ctx context.Context, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= w.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.backoff * time.Duration(attempt)):
			}
		}
		retry, err := w.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return lastErr
}

// post 发送一次，返回是否值得重试
func (w *WebhookNotifier) post(ctx context.Context, body []byte) (bool, error) {
	req := w.client.R().SetContext(ctx).SetBody(body)
	if w.secret != "" {
		req.SetHeader(SignatureHeader, Sign(w.secret, body))
	}
	resp, err := req.Post(w.url)
	if err != nil {
		return true, fmt.Errorf("webhook call failed: %w", err)
	}
	if resp.IsError() {
		return resp.StatusCode() >= 500, fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	return false, nil
}
