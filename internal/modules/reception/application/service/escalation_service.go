package service

import (
	"context"
	"time"

	pushService "LiveDock/internal/modules/push/application/service"
	pushEntity "LiveDock/internal/modules/push/domain/entity"
	"LiveDock/internal/modules/reception/domain/repository"
	"LiveDock/internal/modules/reception/domain/workflow"
	userRepository "LiveDock/internal/modules/user/domain/repository"
	"LiveDock/pkg/zlog"

	"go.uber.org/zap"
)

// EscalationReport 一次扫描的结果
type EscalationReport struct {
	Scanned   int
	Pending   int
	Escalated int
}

// EscalationService 对停留在待确认状态超过阈值的流程重新通知负责角色，不写账本
type EscalationService interface {
	Escalate(ctx context.Context) (EscalationReport, error)
}

type escalationServiceImpl struct {
	graph      *workflow.Graph
	processes  repository.ReceptionProcessRepository
	events     repository.ProcessEventRepository
	users      userRepository.UserRepository
	dispatcher pushService.NotificationDispatcher
	threshold  time.Duration
	now        func() time.Time
}

func NewEscalationService(processes repository.ReceptionProcessRepository, events repository.ProcessEventRepository, users userRepository.UserRepository, dispatcher pushService.NotificationDispatcher, threshold time.Duration) EscalationService {
	return &escalationServiceImpl{
		graph:      workflow.Reception(),
		processes:  processes,
		events:     events,
		users:      users,
		dispatcher: dispatcher,
		threshold:  threshold,
		now:        time.Now,
	}
}

// ThresholdFromMinutes 配置中的分钟数（可为小数）转为时长
func ThresholdFromMinutes(minutes float64) time.Duration {
	return time.Duration(minutes * float64(time.Minute))
}

func (s *escalationServiceImpl) Escalate(ctx context.Context) (EscalationReport, error) {
	var report EscalationReport

	processes, err := s.processes.FindActiveInProgress(ctx)
	if err != nil {
		return report, err
	}
	report.Scanned = len(processes)
	if len(processes) == 0 {
		return report, nil
	}

	ids := make([]int64, 0, len(processes))
	for _, p := range processes {
		ids = append(ids, p.ID)
	}
	latest, err := s.events.LatestByProcessIDs(ctx, ids)
	if err != nil {
		return report, err
	}

	cutoff := s.now().Add(-s.threshold)
	type stalled struct {
		idx  int
		edge *workflow.Edge
	}
	var due []stalled
	actorIDs := make([]int64, 0)
	for i, p := range processes {
		ev, ok := latest[p.ID]
		if !ok {
			continue
		}
		state := workflow.State(ev.Status)
		if !workflow.IsPendingConfirmation(state) {
			continue
		}
		report.Pending++
		if ev.CreatedAt.After(cutoff) {
			continue
		}
		c, ok := s.graph.Confirmation(state)
		if !ok {
			continue
		}
		due = append(due, stalled{idx: i, edge: c})
		actorIDs = append(actorIDs, ev.CreatedByID)
	}
	if len(due) == 0 {
		return report, nil
	}

	names := s.userNames(ctx, actorIDs)
	for _, d := range due {
		p := processes[d.idx]
		ev := latest[p.ID]
		zlog.Warn("pending confirmation alert", zap.Int64("processId", p.ID), zap.String("status", ev.Status))
		dispatchNotice(ctx, s.dispatcher, d.edge.Prompt, pushEntity.ProcessRef{
			ID:             p.ID,
			TypeOfMaterial: p.TypeOfMaterial,
			Status:         ev.Status,
			ActionConfirm:  d.edge.Key(),
			CreatedByName:  names[ev.CreatedByID],
			EventTime:      s.now().UTC(),
		}, nil)
		report.Escalated++
	}
	return report, nil
}

func (s *escalationServiceImpl) userNames(ctx context.Context, ids []int64) map[int64]string {
	names := make(map[int64]string, len(ids))
	if s.users == nil || len(ids) == 0 {
		return names
	}
	users, err := s.users.FindAllByIDs(ctx, ids)
	if err != nil {
		zlog.Warn("load event actors failed", zap.Error(err))
		return names
	}
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names
}
