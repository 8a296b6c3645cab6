package service

import (
	"context"
	"encoding/json"
	"strings"

	"LiveDock/internal/modules/push/application/dto/request"
	"LiveDock/internal/modules/push/application/dto/respond"
	"LiveDock/internal/modules/push/domain/entity"
	"LiveDock/internal/modules/push/domain/repository"
	"LiveDock/internal/modules/push/infrastructure/webpush"
	"LiveDock/pkg/xerr"
	"LiveDock/pkg/zlog"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type SubscriptionService interface {
	Subscribe(ctx context.Context, userID int64, req request.SubscriptionRequest) (*respond.SubscriptionRespond, error)
	Unsubscribe(ctx context.Context, userID int64, req request.SubscriptionRequest) (*respond.MessageRespond, error)
	PublicKey() (*respond.PublicKeyRespond, error)
}

type subscriptionServiceImpl struct {
	repo      repository.SubscriptionRepository
	publicKey string
}

func NewSubscriptionService(repo repository.SubscriptionRepository, vapidPublicKey string) SubscriptionService {
	return &subscriptionServiceImpl{repo: repo, publicKey: vapidPublicKey}
}

type pushSubscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// parseSubscription 兼容客户端把订阅序列化成字符串再提交的写法
func parseSubscription(raw json.RawMessage) ([]byte, *pushSubscription, error) {
	body := []byte(strings.TrimSpace(string(raw)))
	if len(body) > 0 && body[0] == '"' {
		var s string
		if err := json.Unmarshal(body, &s); err != nil {
			return nil, nil, xerr.BadRequestf("Subscription is invalid")
		}
		body = []byte(strings.TrimSpace(s))
	}
	if len(body) == 0 || string(body) == "null" {
		return nil, nil, xerr.BadRequestf("Subscription is required")
	}

	var sub pushSubscription
	if err := json.Unmarshal(body, &sub); err != nil {
		return nil, nil, xerr.BadRequestf("Subscription is invalid")
	}
	if strings.TrimSpace(sub.Endpoint) == "" {
		return nil, nil, xerr.BadRequestf("Subscription endpoint is required")
	}
	return body, &sub, nil
}

func (s *subscriptionServiceImpl) Subscribe(ctx context.Context, userID int64, req request.SubscriptionRequest) (*respond.SubscriptionRespond, error) {
	body, sub, err := parseSubscription(req.Subscription)
	if err != nil {
		return nil, err
	}
	if sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return nil, xerr.BadRequestf("Subscription keys are required")
	}

	existing, err := s.repo.FindActiveByUserAndEndpoint(ctx, userID, sub.Endpoint)
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}
	if existing != nil {
		return toSubscriptionRespond(existing), nil
	}

	record := &entity.Subscription{
		UserID:       userID,
		Endpoint:     sub.Endpoint,
		Subscription: datatypes.JSON(body),
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}
	zlog.Info("push subscription created", zap.Int64("userId", userID), zap.Int64("subscriptionId", record.ID))
	return toSubscriptionRespond(record), nil
}

func (s *subscriptionServiceImpl) Unsubscribe(ctx context.Context, userID int64, req request.SubscriptionRequest) (*respond.MessageRespond, error) {
	_, sub, err := parseSubscription(req.Subscription)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindActiveByUserAndEndpoint(ctx, userID, sub.Endpoint)
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}
	if existing == nil {
		zlog.Warn("subscription not found", zap.Int64("userId", userID))
		return &respond.MessageRespond{Message: "Subscription not found"}, nil
	}

	if err := s.repo.Deactivate(ctx, existing.ID); err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}
	return &respond.MessageRespond{Message: "Successfully unsubscribed"}, nil
}

func (s *subscriptionServiceImpl) PublicKey() (*respond.PublicKeyRespond, error) {
	if strings.TrimSpace(s.publicKey) == "" {
		return nil, xerr.NotFoundf("Push notifications are not configured")
	}
	raw, err := webpush.DecodePublicKey(s.publicKey)
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}
	data := make([]int, len(raw))
	for i, b := range raw {
		data[i] = int(b)
	}
	return &respond.PublicKeyRespond{PublicKey: s.publicKey, Data: data}, nil
}

func toSubscriptionRespond(s *entity.Subscription) *respond.SubscriptionRespond {
	return &respond.SubscriptionRespond{
		ID:        s.ID,
		UserID:    s.UserID,
		Endpoint:  s.Endpoint,
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt,
	}
}
