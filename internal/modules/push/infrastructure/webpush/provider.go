package webpush

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"LiveDock/internal/modules/push/domain/entity"
	"LiveDock/internal/modules/push/domain/repository"

	webpush "github.com/SherClockHolmes/webpush-go"
)

type Config struct {
	VapidPublicKey  string
	VapidPrivateKey string
	Subscriber      string
	TTLSeconds      int
	HTTPClient      *http.Client
}

type webPushProvider struct {
	cfg    Config
	client *http.Client
}

// NewProvider 基于 VAPID 的 Web Push 通道
func NewProvider(cfg Config) (repository.PushProvider, error) {
	if strings.TrimSpace(cfg.VapidPublicKey) == "" || strings.TrimSpace(cfg.VapidPrivateKey) == "" {
		return nil, errors.New("vapid keys are empty")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	// 库内部会补 mailto: 前缀
	cfg.Subscriber = strings.TrimPrefix(strings.TrimSpace(cfg.Subscriber), "mailto:")
	if cfg.TTLSeconds <= 0 {
		cfg.TTLSeconds = 60
	}
	return &webPushProvider{cfg: cfg, client: client}, nil
}

func (p *webPushProvider) Send(ctx context.Context, sub *entity.Subscription, payload []byte) (entity.DeliveryStatus, error) {
	var s webpush.Subscription
	if err := json.Unmarshal(sub.Subscription, &s); err != nil {
		return entity.Failed, fmt.Errorf("decode subscription %d: %w", sub.ID, err)
	}
	if s.Endpoint == "" {
		return entity.Failed, fmt.Errorf("subscription %d has no endpoint", sub.ID)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &s, &webpush.Options{
		HTTPClient:      p.client,
		Subscriber:      p.cfg.Subscriber,
		TTL:             p.cfg.TTLSeconds,
		Urgency:         webpush.UrgencyHigh,
		VAPIDPublicKey:  p.cfg.VapidPublicKey,
		VAPIDPrivateKey: p.cfg.VapidPrivateKey,
	})
	if err != nil {
		return entity.Failed, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return entity.Gone, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return entity.Delivered, nil
	default:
		return entity.Failed, fmt.Errorf("push service responded %d", resp.StatusCode)
	}
}

// DecodePublicKey 浏览器 applicationServerKey 需要原始字节
func DecodePublicKey(key string) ([]byte, error) {
	return decodeBase64URL(strings.TrimSpace(key))
}
