package service

import (
	"context"
	"fmt"
	"time"

	"LiveDock/internal/modules/reception/domain/entity"
	"LiveDock/internal/modules/reception/domain/repository"
	"LiveDock/internal/modules/reception/domain/workflow"
	userEntity "LiveDock/internal/modules/user/domain/entity"
	"LiveDock/pkg/xerr"
	"LiveDock/pkg/zlog"

	"go.uber.org/zap"
)

// RaiseAlertCommand 为一组角色创建告警；DisableGroup 先使该流程所有有效告警失效
// ProcessEventID 大于 0 时，流程已有更新事件产生的告警则本次跳过
type RaiseAlertCommand struct {
	ProcessID      int64
	ProcessEventID int64
	Roles          []string
	Title          string
	Detail         string
	Severity       string
	DisableGroup   bool
	CreatedByID    int64
}

type AlertService interface {
	Raise(ctx context.Context, cmd RaiseAlertCommand) ([]entity.PriorityAlert, error)
	// RaiseForNotice 按通知类型生成对应角色的告警，没有对应告警时返回 nil
	RaiseForNotice(ctx context.Context, process *entity.ReceptionProcess, notice workflow.Notice, eventID, actorID int64) ([]entity.PriorityAlert, error)
	FindActiveByRole(ctx context.Context, role string, startDate *time.Time) ([]entity.PriorityAlert, error)
}

type alertSpec struct {
	roles    []string
	title    string
	severity string
	terminal bool
}

var alertSpecs = map[workflow.Notice]alertSpec{
	workflow.NoticeArrival:              {roles: []string{userEntity.RoleLogistica}, title: "Ingreso de pipa #%d 🚛➡️🏭", severity: entity.SeverityHigh},
	workflow.NoticePendingTest:          {roles: []string{userEntity.RoleCalidad}, title: "Pendiente de evaluacion #%d 🧪🔍", severity: entity.SeverityHigh},
	workflow.NoticePendingUnload:        {roles: []string{userEntity.RoleProduccion}, title: "Pendiente de descarga #%d 📦⬇️", severity: entity.SeverityHigh},
	workflow.NoticePendingWeightCapture: {roles: []string{userEntity.RoleLogistica}, title: "Pendiente de peso en SAP #%d ⚖️📦", severity: entity.SeverityHigh},
	workflow.NoticePendingRelease:       {roles: []string{userEntity.RoleCalidad}, title: "Pendiente de liberación en SAP #%d ⚖️📦", severity: entity.SeverityHigh},
	workflow.NoticeRejected:             {roles: userEntity.OperativeRoles, title: "Rechazado por calidad #%d ❌🧪", severity: entity.SeverityLow, terminal: true},
	workflow.NoticeFinished:             {roles: userEntity.OperativeRoles, title: "Proceso finalizado #%d ✅🎉", severity: entity.SeverityLow, terminal: true},
}

type alertServiceImpl struct {
	uow       repository.ReceptionUnitOfWork
	alerts    repository.PriorityAlertRepository
	realtime  RealtimePublisher
	supersede bool
	now       func() time.Time
}

// NewAlertService supersede 为 true 时新告警总是替换流程的旧告警；终态告警无论如何都会替换
func NewAlertService(uow repository.ReceptionUnitOfWork, alerts repository.PriorityAlertRepository, realtime RealtimePublisher, supersede bool) AlertService {
	if realtime == nil {
		realtime = nopRealtime{}
	}
	return &alertServiceImpl{
		uow:       uow,
		alerts:    alerts,
		realtime:  realtime,
		supersede: supersede,
		now:       time.Now,
	}
}

func (s *alertServiceImpl) Raise(ctx context.Context, cmd RaiseAlertCommand) ([]entity.PriorityAlert, error) {
	if cmd.ProcessID <= 0 || len(cmd.Roles) == 0 {
		return nil, xerr.ErrParam
	}
	now := s.now().UTC()
	created := make([]entity.PriorityAlert, 0, len(cmd.Roles))
	stale := false

	err := s.uow.Transaction(ctx, func(processRepo repository.ReceptionProcessRepository, _ repository.ProcessEventRepository, _ repository.NotificationMetricRepository, alertRepo repository.PriorityAlertRepository) error {
		if cmd.ProcessEventID > 0 {
			// 行锁保证同一流程的告警按事件顺序落库
			if _, err := processRepo.FindByIDForUpdate(ctx, cmd.ProcessID); err != nil {
				return err
			}
			latest, err := alertRepo.LatestEventID(ctx, cmd.ProcessID)
			if err != nil {
				return err
			}
			if latest > cmd.ProcessEventID {
				stale = true
				return nil
			}
		}
		if cmd.DisableGroup {
			n, err := alertRepo.DeactivateByProcessID(ctx, cmd.ProcessID, now)
			if err != nil {
				return err
			}
			if n > 0 {
				zlog.Debug("priority alerts superseded", zap.Int64("processId", cmd.ProcessID), zap.Int64("count", n))
			}
		}
		for _, role := range cmd.Roles {
			a := entity.PriorityAlert{
				ReceptionProcessID: cmd.ProcessID,
				ProcessEventID:     cmd.ProcessEventID,
				Role:               role,
				Title:              cmd.Title,
				Detail:             cmd.Detail,
				Severity:           cmd.Severity,
				IsActive:           true,
				CreatedByID:        cmd.CreatedByID,
				CreatedAt:          now,
				UpdatedAt:          now,
			}
			if err := alertRepo.Create(ctx, &a); err != nil {
				return err
			}
			created = append(created, a)
		}
		return nil
	})
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}
	if stale {
		zlog.Debug("priority alert skipped, newer event already alerted",
			zap.Int64("processId", cmd.ProcessID), zap.Int64("eventId", cmd.ProcessEventID))
		return nil, nil
	}

	for i := range created {
		a := created[i]
		if err := s.realtime.EmitToRole(ctx, a.Role, RoleAlertEvent(a.Role), a); err != nil {
			zlog.Warn("emit priority alert failed", zap.String("role", a.Role), zap.Error(err))
		}
	}
	return created, nil
}

func (s *alertServiceImpl) RaiseForNotice(ctx context.Context, process *entity.ReceptionProcess, notice workflow.Notice, eventID, actorID int64) ([]entity.PriorityAlert, error) {
	spec, ok := alertSpecs[notice]
	if !ok {
		return nil, nil
	}
	return s.Raise(ctx, RaiseAlertCommand{
		ProcessID:      process.ID,
		ProcessEventID: eventID,
		Roles:          spec.roles,
		Title:          fmt.Sprintf(spec.title, process.ID),
		Detail:         fmt.Sprintf("Tipo de Material: %s.", process.TypeOfMaterial),
		Severity:       spec.severity,
		DisableGroup:   spec.terminal || s.supersede,
		CreatedByID:    actorID,
	})
}

func (s *alertServiceImpl) FindActiveByRole(ctx context.Context, role string, startDate *time.Time) ([]entity.PriorityAlert, error) {
	if role == "" {
		return nil, xerr.New(xerr.Forbidden, "Role is required")
	}
	list, err := s.alerts.FindActiveByRole(ctx, role, startDate)
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}
	return list, nil
}
