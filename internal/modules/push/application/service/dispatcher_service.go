package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"LiveDock/internal/modules/push/domain/entity"
	"LiveDock/internal/modules/push/domain/repository"
	userEntity "LiveDock/internal/modules/user/domain/entity"
	userRepository "LiveDock/internal/modules/user/domain/repository"
	"LiveDock/pkg/zlog"

	"go.uber.org/zap"
)

const defaultDeliveryTimeout = 8 * time.Second

// NotificationDispatcher 按流程下一个负责角色推送通知，每种通知一个方法
type NotificationDispatcher interface {
	NotifyArrival(ctx context.Context, ref entity.ProcessRef) (DispatchReport, error)
	NotifyPendingTest(ctx context.Context, ref entity.ProcessRef) (DispatchReport, error)
	NotifyPendingUnload(ctx context.Context, ref entity.ProcessRef) (DispatchReport, error)
	NotifyPendingWeightCapture(ctx context.Context, ref entity.ProcessRef) (DispatchReport, error)
	NotifyPendingRelease(ctx context.Context, ref entity.ProcessRef) (DispatchReport, error)
	NotifyRejected(ctx context.Context, ref entity.ProcessRef) (DispatchReport, error)
	NotifyFinished(ctx context.Context, ref entity.ProcessRef) (DispatchReport, error)
	// Resend 只推送给指定用户，用于通知过期或被忽略后的再次提醒
	Resend(ctx context.Context, kind entity.Kind, ref entity.ProcessRef, userIDs []int64) (DispatchReport, error)
}

// DispatchReport 一次推送的汇总
type DispatchReport struct {
	Kind          entity.Kind
	Recipients    int
	Subscriptions int
	Delivered     int
	Gone          int
	Failed        int
}

type DispatcherConfig struct {
	PublicBackendURL string
	AppKey           string
	Timeout          time.Duration
}

type kindSpec struct {
	roles              []string
	title              string
	typeNotification   string
	requireInteraction bool
	confirm            *entity.Action
}

var kinds = map[entity.Kind]kindSpec{
	entity.KindArrival: {
		roles:              []string{userEntity.RoleLogistica},
		title:              "Llegada de pipa 🚛➡️🏭",
		typeNotification:   "waiting",
		requireInteraction: true,
		confirm:            &entity.Action{Action: "confirm-logistic", Title: "Confirmar"},
	},
	entity.KindPendingTest: {
		roles:              []string{userEntity.RoleCalidad},
		title:              "Pendiente de análisis 🧪🔍",
		typeNotification:   "waiting",
		requireInteraction: true,
		confirm:            &entity.Action{Action: "confirm-quality", Title: "Confirmar"},
	},
	entity.KindPendingUnload: {
		roles:              []string{userEntity.RoleProduccion},
		title:              "Pendiente de descarga 📦⬇️",
		typeNotification:   "waiting",
		requireInteraction: true,
		confirm:            &entity.Action{Action: "confirm-production", Title: "Confirmar"},
	},
	entity.KindPendingWeightCapture: {
		roles:              []string{userEntity.RoleLogistica},
		title:              "Pendiente de peso en SAP ⚖️📦",
		typeNotification:   "waiting",
		requireInteraction: true,
		confirm:            &entity.Action{Action: "confirm-logistic-sap", Title: "Confirmar"},
	},
	entity.KindPendingRelease: {
		roles:              []string{userEntity.RoleCalidad},
		title:              "Pendiente de liberación en SAP ✅",
		typeNotification:   "waiting",
		requireInteraction: true,
		confirm:            &entity.Action{Action: "confirm-quality-sap", Title: "Confirmar"},
	},
	entity.KindRejected: {
		roles:            userEntity.OperativeRoles,
		title:            "Material rechazado por calidad ❌🧪",
		typeNotification: "info",
	},
	entity.KindFinished: {
		roles:            userEntity.OperativeRoles,
		title:            "Proceso finalizado ✅🎉",
		typeNotification: "info",
	},
}

type dispatcherImpl struct {
	users    userRepository.UserRepository
	subs     repository.SubscriptionRepository
	provider repository.PushProvider
	cfg      DispatcherConfig
	now      func() time.Time
}

func NewNotificationDispatcher(users userRepository.UserRepository, subs repository.SubscriptionRepository, provider repository.PushProvider, cfg DispatcherConfig) NotificationDispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultDeliveryTimeout
	}
	return &dispatcherImpl{
		users:    users,
		subs:     subs,
		provider: provider,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (d *dispatcherImpl) NotifyArrival(ctx context.Context, ref entity.ProcessRef) (DispatchReport, error) {
	return d.dispatch(ctx, entity.KindArrival, ref, nil)
}

func (d *dispatcherImpl) NotifyPendingTest(ctx context.Context, ref entity.ProcessRef) (DispatchReport, error) {
	return d.dispatch(ctx, entity.KindPendingTest, ref, nil)
}

func (d *dispatcherImpl) NotifyPendingUnload(ctx context.Context, ref entity.ProcessRef) (DispatchReport, error) {
	return d.dispatch(ctx, entity.KindPendingUnload, ref, nil)
}

func (d *dispatcherImpl) NotifyPendingWeightCapture(ctx context.Context, ref entity.ProcessRef) (DispatchReport, error) {
	return d.dispatch(ctx, entity.KindPendingWeightCapture, ref, nil)
}

func (d *dispatcherImpl) NotifyPendingRelease(ctx context.Context, ref entity.ProcessRef) (DispatchReport, error) {
	return d.dispatch(ctx, entity.KindPendingRelease, ref, nil)
}

func (d *dispatcherImpl) NotifyRejected(ctx context.Context, ref entity.ProcessRef) (DispatchReport, error) {
	return d.dispatch(ctx, entity.KindRejected, ref, nil)
}

func (d *dispatcherImpl) NotifyFinished(ctx context.Context, ref entity.ProcessRef) (DispatchReport, error) {
	return d.dispatch(ctx, entity.KindFinished, ref, nil)
}

func (d *dispatcherImpl) Resend(ctx context.Context, kind entity.Kind, ref entity.ProcessRef, userIDs []int64) (DispatchReport, error) {
	if len(userIDs) == 0 {
		return DispatchReport{Kind: kind}, nil
	}
	return d.dispatch(ctx, kind, ref, userIDs)
}

func (d *dispatcherImpl) dispatch(ctx context.Context, kind entity.Kind, ref entity.ProcessRef, userIDs []int64) (DispatchReport, error) {
	report := DispatchReport{Kind: kind}
	spec, ok := kinds[kind]
	if !ok {
		return report, fmt.Errorf("unknown notification kind %q", kind)
	}

	if userIDs == nil {
		ids, err := d.recipients(ctx, spec.roles)
		if err != nil {
			return report, err
		}
		userIDs = ids
	}
	report.Recipients = len(userIDs)
	if len(userIDs) == 0 {
		return report, nil
	}

	subs, err := d.subs.FindActiveByUserIDs(ctx, userIDs)
	if err != nil {
		return report, err
	}
	report.Subscriptions = len(subs)
	if len(subs) == 0 {
		return report, nil
	}
	if d.provider == nil {
		zlog.Warn("push provider not configured, skipping delivery", zap.String("kind", string(kind)), zap.Int64("processId", ref.ID))
		report.Failed = len(subs)
		return report, nil
	}

	eventTime := ref.EventTime
	if eventTime.IsZero() {
		eventTime = d.now()
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for i := range subs {
		sub := subs[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			status := d.deliver(ctx, kind, spec, ref, eventTime, &sub)
			mu.Lock()
			switch status {
			case entity.Delivered:
				report.Delivered++
			case entity.Gone:
				report.Gone++
			default:
				report.Failed++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	zlog.Debug("notification dispatched",
		zap.String("kind", string(kind)),
		zap.Int64("processId", ref.ID),
		zap.Int("subscriptions", report.Subscriptions),
		zap.Int("delivered", report.Delivered),
		zap.Int("gone", report.Gone),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// deliver 单个订阅的投递，失败只影响自己
func (d *dispatcherImpl) deliver(ctx context.Context, kind entity.Kind, spec kindSpec, ref entity.ProcessRef, eventTime time.Time, sub *entity.Subscription) entity.DeliveryStatus {
	body, err := json.Marshal(d.buildPayload(spec, ref, eventTime, sub.UserID))
	if err != nil {
		zlog.Error(err.Error())
		return entity.Failed
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	status, err := d.provider.Send(sendCtx, sub, body)
	cancel()

	switch status {
	case entity.Gone:
		zlog.Info("push endpoint gone, deactivating subscription", zap.Int64("subscriptionId", sub.ID), zap.Int64("userId", sub.UserID))
		if err := d.subs.Deactivate(ctx, sub.ID); err != nil {
			zlog.Error("deactivate subscription failed", zap.Int64("subscriptionId", sub.ID), zap.Error(err))
		}
	case entity.Failed:
		zlog.Warn("push delivery failed", zap.Int64("subscriptionId", sub.ID), zap.String("kind", string(kind)), zap.Error(err))
	}
	return status
}

func (d *dispatcherImpl) buildPayload(spec kindSpec, ref entity.ProcessRef, eventTime time.Time, userID int64) entity.Payload {
	lines := []string{
		fmt.Sprintf("Identificador: #%d", ref.ID),
		fmt.Sprintf("Tipo de material: %s", ref.TypeOfMaterial),
	}
	if ref.CreatedByName != "" {
		lines = append(lines, fmt.Sprintf("Creado por: %s", ref.CreatedByName))
	}

	p := entity.Payload{
		Title:              spec.title,
		Body:               strings.Join(lines, "\n"),
		TypeNotification:   spec.typeNotification,
		TagID:              fmt.Sprintf("reception-process-%d", ref.ID),
		EventTime:          eventTime.UTC().Format(time.RFC3339Nano),
		RequireInteraction: spec.requireInteraction,
		Vibrate:            []int{200},
		Data: entity.PayloadData{
			ID:               ref.ID,
			NotifiedUserID:   userID,
			PublicBackendURL: d.cfg.PublicBackendURL,
			AppKey:           d.cfg.AppKey,
			EventRole:        spec.roles[0],
			StatusProcess:    ref.Status,
			ActionConfirm:    ref.ActionConfirm,
		},
	}
	if spec.confirm != nil {
		p.Actions = []entity.Action{*spec.confirm}
	}
	if len(spec.roles) > 1 {
		p.Data.EventRole = userEntity.RoleSistema
	}
	return p
}

func (d *dispatcherImpl) recipients(ctx context.Context, roles []string) ([]int64, error) {
	seen := make(map[int64]struct{})
	ids := make([]int64, 0)
	for _, role := range roles {
		users, err := d.users.FindAllByRole(ctx, role)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			if _, ok := seen[u.ID]; ok {
				continue
			}
			seen[u.ID] = struct{}{}
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}
