package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	pushService "LiveDock/internal/modules/push/application/service"
	pushEntity "LiveDock/internal/modules/push/domain/entity"
	"LiveDock/internal/modules/reception/application/dto/request"
	"LiveDock/internal/modules/reception/application/dto/respond"
	"LiveDock/internal/modules/reception/domain/entity"
	"LiveDock/internal/modules/reception/domain/repository"
	"LiveDock/internal/modules/reception/domain/workflow"
	userEntity "LiveDock/internal/modules/user/domain/entity"
	userRepository "LiveDock/internal/modules/user/domain/repository"
	"LiveDock/pkg/keylock"
	"LiveDock/pkg/xerr"
	"LiveDock/pkg/zlog"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReceptionService 收货流程状态机
type ReceptionService interface {
	Create(ctx context.Context, req request.CreateProcessRequest, actor *userEntity.User) (*respond.ReceptionProcessRespond, error)
	Advance(ctx context.Context, req request.ChangeStatusRequest, actor *userEntity.User) (*respond.ReceptionProcessRespond, error)
	RecordNotificationMetric(ctx context.Context, req request.NotifyMetricRequest) (*respond.MetricResult, error)
	FindAll(ctx context.Context, startDate *time.Time) ([]respond.ReceptionProcessRespond, error)
	FindOne(ctx context.Context, id int64) (*respond.ReceptionProcessRespond, error)
	FindPriorityAlerts(ctx context.Context, role string, startDate *time.Time) ([]entity.PriorityAlert, error)
}

// ReceptionDeps Now 与 Go 为空时分别使用 time.Now 与新 goroutine
type ReceptionDeps struct {
	UnitOfWork repository.ReceptionUnitOfWork
	Processes  repository.ReceptionProcessRepository
	Events     repository.ProcessEventRepository
	Metrics    repository.NotificationMetricRepository
	Users      userRepository.UserRepository
	Alerts     AlertService
	Dispatcher pushService.NotificationDispatcher
	Realtime   RealtimePublisher
	Stream     repository.ProcessEventStream
	Locks      *keylock.KeyedMutex
	Now        func() time.Time
	Go         func(fn func())
}

type receptionServiceImpl struct {
	graph      *workflow.Graph
	uow        repository.ReceptionUnitOfWork
	processes  repository.ReceptionProcessRepository
	events     repository.ProcessEventRepository
	metrics    repository.NotificationMetricRepository
	users      userRepository.UserRepository
	alerts     AlertService
	dispatcher pushService.NotificationDispatcher
	realtime   RealtimePublisher
	stream     repository.ProcessEventStream
	locks      *keylock.KeyedMutex
	now        func() time.Time
	goFn       func(fn func())
}

func NewReceptionService(deps ReceptionDeps) ReceptionService {
	s := &receptionServiceImpl{
		graph:      workflow.Reception(),
		uow:        deps.UnitOfWork,
		processes:  deps.Processes,
		events:     deps.Events,
		metrics:    deps.Metrics,
		users:      deps.Users,
		alerts:     deps.Alerts,
		dispatcher: deps.Dispatcher,
		realtime:   deps.Realtime,
		stream:     deps.Stream,
		locks:      deps.Locks,
		now:        deps.Now,
		goFn:       deps.Go,
	}
	if s.realtime == nil {
		s.realtime = nopRealtime{}
	}
	if s.locks == nil {
		s.locks = keylock.New()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.goFn == nil {
		s.goFn = func(fn func()) { go fn() }
	}
	return s
}

// transition 一次提交后的结果，用于提交后的副作用
type transition struct {
	process entity.ReceptionProcess
	plan    []*workflow.Edge
	events  []entity.ProcessEvent
	actor   *userEntity.User
	created bool
}

func (s *receptionServiceImpl) Create(ctx context.Context, req request.CreateProcessRequest, actor *userEntity.User) (*respond.ReceptionProcessRespond, error) {
	if !entity.IsValidMaterial(req.TypeOfMaterial) {
		return nil, xerr.BadRequestf("typeOfMaterial must be one of ALCOHOL, AGUA, LESS, COLGATE")
	}
	if actor == nil {
		return nil, xerr.ErrUnauthorized
	}

	initial := s.graph.Initial()
	now := s.now().UTC()
	t := transition{plan: []*workflow.Edge{initial}, actor: actor, created: true}

	err := s.uow.Transaction(ctx, func(processRepo repository.ReceptionProcessRepository, eventRepo repository.ProcessEventRepository, _ repository.NotificationMetricRepository, _ repository.PriorityAlertRepository) error {
		p := entity.ReceptionProcess{
			Status:         entity.StatusInProgress,
			TypeOfMaterial: req.TypeOfMaterial,
			IsActive:       true,
			CreatedByID:    actor.ID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := processRepo.Create(ctx, &p); err != nil {
			return err
		}
		ev := entity.ProcessEvent{
			ReceptionProcessID: p.ID,
			Event:              string(initial.Event),
			Status:             string(initial.To),
			Role:               initial.Role,
			CreatedByID:        actor.ID,
			CreatedAt:          now,
		}
		if err := eventRepo.Append(ctx, &ev); err != nil {
			return err
		}
		t.process = p
		t.events = []entity.ProcessEvent{ev}
		return nil
	})
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}

	zlog.Info("reception process created", zap.Int64("processId", t.process.ID), zap.String("typeOfMaterial", t.process.TypeOfMaterial), zap.Int64("actorId", actor.ID))
	return s.commit(ctx, t)
}

func (s *receptionServiceImpl) Advance(ctx context.Context, req request.ChangeStatusRequest, actor *userEntity.User) (*respond.ReceptionProcessRespond, error) {
	edge, ok := s.graph.Lookup(req.ActionRole)
	if !ok {
		return nil, xerr.BadRequestf("Unknown action %s", req.ActionRole)
	}
	if actor == nil {
		return nil, xerr.ErrUnauthorized
	}

	t, err := s.apply(ctx, req.ID, edge, actor, nil)
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, t)
}

// apply 在流程锁与事务内校验并追加事件
func (s *receptionServiceImpl) apply(ctx context.Context, processID int64, target *workflow.Edge, actor *userEntity.User, metadata map[string]interface{}) (transition, error) {
	unlock := s.locks.Lock(processID)
	defer unlock()

	t := transition{actor: actor}
	err := s.uow.Transaction(ctx, func(processRepo repository.ReceptionProcessRepository, eventRepo repository.ProcessEventRepository, _ repository.NotificationMetricRepository, _ repository.PriorityAlertRepository) error {
		p, err := processRepo.FindByIDForUpdate(ctx, processID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return xerr.NotFoundf("Reception process with id %d not found", processID)
			}
			return err
		}
		if !p.IsActive {
			return xerr.NotFoundf("Reception process with id %d not found", processID)
		}

		last, err := eventRepo.Latest(ctx, processID)
		if err != nil {
			return err
		}
		if last == nil {
			return xerr.Conflictf("The reception process %d has no registered events", processID)
		}
		current := workflow.State(last.Status)
		if current == target.To {
			return xerr.Conflictf("The reception process is already in status %s", current)
		}
		if p.IsTerminal() || s.graph.IsTerminal(current) {
			return xerr.Conflictf("The reception process %d is already %s", processID, p.Status)
		}

		plan, err := s.graph.Plan(current, workflow.Event(last.Event), target)
		if err != nil {
			var illegal *workflow.IllegalActionError
			if errors.As(err, &illegal) {
				return xerr.New(xerr.Conflict, illegal.Error())
			}
			return err
		}

		now := s.now().UTC()
		for _, e := range plan {
			meta := metadata
			if e != target {
				meta = map[string]interface{}{"implicit": true}
			}
			ev := entity.ProcessEvent{
				ReceptionProcessID: processID,
				Event:              string(e.Event),
				Status:             string(e.To),
				Role:               e.Role,
				Metadata:           encodeMetadata(meta),
				CreatedByID:        actor.ID,
				CreatedAt:          now,
			}
			if err := eventRepo.Append(ctx, &ev); err != nil {
				return err
			}
			t.events = append(t.events, ev)
		}

		if target.Terminal() {
			minutes := processingMinutes(p.CreatedAt, now)
			if err := processRepo.Finish(ctx, processID, target.ProcessStatus, minutes, now); err != nil {
				return err
			}
			p.Status = target.ProcessStatus
			p.ProcessingTimeMinutes = &minutes
			p.UpdatedAt = now
		}
		t.process = *p
		t.plan = plan
		return nil
	})
	if err != nil {
		if _, ok := xerr.As(err); ok {
			return t, err
		}
		zlog.Error(err.Error())
		return t, xerr.ErrServerError
	}

	zlog.Info("reception process advanced",
		zap.Int64("processId", processID),
		zap.String("event", string(target.Event)),
		zap.String("status", string(target.To)),
		zap.Int("appended", len(t.events)),
		zap.Int64("actorId", actor.ID),
	)
	return t, nil
}

// commit 提交后读取快照并异步执行副作用，副作用失败不影响调用方
func (s *receptionServiceImpl) commit(ctx context.Context, t transition) (*respond.ReceptionProcessRespond, error) {
	snapshot, err := s.FindOne(ctx, t.process.ID)
	if err != nil {
		return nil, err
	}
	s.goFn(func() {
		s.sideEffects(context.Background(), t)
	})
	return snapshot, nil
}

// sideEffects 告警与广播持有流程锁执行，广播的快照在发送时重新读取
func (s *receptionServiceImpl) sideEffects(ctx context.Context, t transition) {
	if s.stream != nil {
		for i := range t.events {
			if err := s.stream.Publish(ctx, &t.process, &t.events[i]); err != nil {
				zlog.Warn("publish process event failed", zap.Int64("processId", t.process.ID), zap.Error(err))
			}
		}
	}

	unlock := s.locks.Lock(t.process.ID)
	defer unlock()

	for i, e := range t.plan {
		if e.Notice == workflow.NoticeNone {
			continue
		}
		ref := s.processRef(&t.process, e, t.actor, t.events[i].CreatedAt)
		notice := e.Notice
		s.goFn(func() {
			dispatchNotice(ctx, s.dispatcher, notice, ref, nil)
		})
		if s.alerts != nil {
			if _, err := s.alerts.RaiseForNotice(ctx, &t.process, notice, t.events[i].ID, t.actor.ID); err != nil {
				zlog.Warn("raise priority alert failed", zap.Int64("processId", t.process.ID), zap.Error(err))
			}
		}
	}

	s.broadcastLocked(ctx, t.process.ID, t.created)
}

// broadcastLatest 广播流程当前快照
func (s *receptionServiceImpl) broadcastLatest(ctx context.Context, processID int64) {
	unlock := s.locks.Lock(processID)
	defer unlock()
	s.broadcastLocked(ctx, processID, false)
}

// broadcastLocked 调用方需持有流程锁
func (s *receptionServiceImpl) broadcastLocked(ctx context.Context, processID int64, created bool) {
	snapshot, err := s.FindOne(ctx, processID)
	if err != nil {
		zlog.Warn("load process snapshot failed", zap.Int64("processId", processID), zap.Error(err))
		return
	}
	if created {
		s.realtime.Broadcast(EventProcessCreated, snapshot)
	}
	s.realtime.Broadcast(EventProcessUpdated, snapshot)
}

// processRef 推送所需的流程信息，ActionConfirm 为新状态上的确认动作
func (s *receptionServiceImpl) processRef(p *entity.ReceptionProcess, e *workflow.Edge, actor *userEntity.User, at time.Time) pushEntity.ProcessRef {
	ref := pushEntity.ProcessRef{
		ID:             p.ID,
		TypeOfMaterial: p.TypeOfMaterial,
		Status:         string(e.To),
		EventTime:      at,
	}
	if c, ok := s.graph.Confirmation(e.To); ok {
		ref.ActionConfirm = c.Key()
	}
	if actor != nil {
		ref.CreatedByName = actor.Name
	}
	return ref
}

func (s *receptionServiceImpl) RecordNotificationMetric(ctx context.Context, req request.NotifyMetricRequest) (*respond.MetricResult, error) {
	if !entity.IsValidMetricType(req.EventType) {
		return nil, xerr.BadRequestf("Unknown event type %s", req.EventType)
	}

	process, err := s.processes.FindByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.NotFoundf("Reception process with id %d not found", req.ID)
		}
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}
	if !process.IsActive {
		return nil, xerr.NotFoundf("Reception process with id %d not found", req.ID)
	}
	user, err := s.users.FindByID(ctx, req.NotifiedUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.NotFoundf("User with id %d not found", req.NotifiedUserID)
		}
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}

	metric := s.buildMetric(req, user.ID)
	if err := s.metrics.Create(ctx, &metric); err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}

	switch req.EventType {
	case entity.MetricExpired, entity.MetricNotificationClickedNoAction:
		return s.reprompt(ctx, process, user, req)
	case entity.MetricActionClickedConfirm:
		return s.confirm(ctx, process, user, req)
	}

	snapshot, err := s.FindOne(ctx, process.ID)
	if err != nil {
		return nil, err
	}
	processID := process.ID
	s.goFn(func() {
		s.broadcastLatest(context.Background(), processID)
	})
	return &respond.MetricResult{Process: snapshot}, nil
}

func noActionTaken(req request.NotifyMetricRequest) *respond.MetricResult {
	return &respond.MetricResult{Action: &respond.ActionResult{
		Message: fmt.Sprintf("No action taken for event type %s with actionConfirm %s", req.EventType, req.ActionConfirm),
	}}
}

// reprompt 通知过期或被忽略时，流程仍停在该确认动作对应的待确认状态且无人确认过，则只给该用户重发
func (s *receptionServiceImpl) reprompt(ctx context.Context, process *entity.ReceptionProcess, user *userEntity.User, req request.NotifyMetricRequest) (*respond.MetricResult, error) {
	edge, ok := s.graph.Lookup(req.ActionConfirm)
	if !ok || !edge.Confirmation || process.IsTerminal() {
		return noActionTaken(req), nil
	}

	last, err := s.events.Latest(ctx, process.ID)
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}
	if last == nil || workflow.State(last.Status) != edge.From {
		return noActionTaken(req), nil
	}

	confirmed, err := s.metrics.ExistsSince(ctx, process.ID, entity.MetricActionClickedConfirm, last.CreatedAt)
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}
	if confirmed {
		return noActionTaken(req), nil
	}

	ref := pushEntity.ProcessRef{
		ID:             process.ID,
		TypeOfMaterial: process.TypeOfMaterial,
		Status:         last.Status,
		ActionConfirm:  edge.Key(),
		EventTime:      s.now().UTC(),
	}
	prompt := edge.Prompt
	userIDs := []int64{user.ID}
	s.goFn(func() {
		dispatchNotice(context.Background(), s.dispatcher, prompt, ref, userIDs)
	})
	zlog.Info("notification prompted again", zap.Int64("processId", process.ID), zap.Int64("userId", user.ID), zap.String("notice", prompt.String()))
	return noActionTaken(req), nil
}

// confirm 通知上的确认按钮，流程已到达或越过目标状态时不算错误
func (s *receptionServiceImpl) confirm(ctx context.Context, process *entity.ReceptionProcess, user *userEntity.User, req request.NotifyMetricRequest) (*respond.MetricResult, error) {
	edge, ok := s.graph.Lookup(req.ActionConfirm)
	if !ok || !edge.Confirmation {
		return nil, xerr.BadRequestf("Unknown actionConfirm %s", req.ActionConfirm)
	}
	if process.IsTerminal() {
		return noActionTaken(req), nil
	}

	last, err := s.events.Latest(ctx, process.ID)
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}
	if last == nil || s.graph.Rank(workflow.State(last.Status)) >= s.graph.Rank(edge.To) {
		return noActionTaken(req), nil
	}

	t, err := s.apply(ctx, process.ID, edge, user, map[string]interface{}{"source": "notification"})
	if err != nil {
		if xerr.IsCode(err, xerr.Conflict) {
			return noActionTaken(req), nil
		}
		return nil, err
	}
	snapshot, err := s.commit(ctx, t)
	if err != nil {
		return nil, err
	}
	return &respond.MetricResult{Process: snapshot}, nil
}

func (s *receptionServiceImpl) buildMetric(req request.NotifyMetricRequest, userID int64) entity.NotificationMetric {
	now := s.now().UTC()
	meta, fields := normalizeJSON(req.Metadata)
	actionAt := req.ActionTime()

	m := entity.NotificationMetric{
		ReceptionProcessID: req.ID,
		EventType:          req.EventType,
		ActionConfirm:      req.ActionConfirm,
		VisibleAt:          utcPtr(req.VisibleAt),
		ActionAt:           utcPtr(actionAt),
		ReactionTimeSec:    req.ReactionTimeSec,
		SystemDelaySec:     req.SystemDelaySec,
		Metadata:           meta,
		CreatedByID:        userID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if m.ReactionTimeSec == nil && req.VisibleAt != nil && actionAt != nil {
		m.ReactionTimeSec = seconds(actionAt.Sub(*req.VisibleAt))
	}
	if m.SystemDelaySec == nil && req.VisibleAt != nil {
		if raw, ok := fields["eventTime"].(string); ok {
			if eventTime, err := time.Parse(time.RFC3339Nano, raw); err == nil {
				m.SystemDelaySec = seconds(req.VisibleAt.Sub(eventTime))
			}
		}
	}
	return m
}

func (s *receptionServiceImpl) FindAll(ctx context.Context, startDate *time.Time) ([]respond.ReceptionProcessRespond, error) {
	processes, err := s.processes.FindActive(ctx, startDate)
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}
	list, err := s.assemble(ctx, processes)
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}
	return list, nil
}

func (s *receptionServiceImpl) FindOne(ctx context.Context, id int64) (*respond.ReceptionProcessRespond, error) {
	p, err := s.processes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.NotFoundf("Reception process with id %d not found", id)
		}
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}
	if !p.IsActive {
		return nil, xerr.NotFoundf("Reception process with id %d not found", id)
	}
	list, err := s.assemble(ctx, []entity.ReceptionProcess{*p})
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}
	return &list[0], nil
}

func (s *receptionServiceImpl) FindPriorityAlerts(ctx context.Context, role string, startDate *time.Time) ([]entity.PriorityAlert, error) {
	if s.alerts == nil {
		return []entity.PriorityAlert{}, nil
	}
	return s.alerts.FindActiveByRole(ctx, role, startDate)
}

// assemble 批量加载事件与指标，避免逐条查询
func (s *receptionServiceImpl) assemble(ctx context.Context, processes []entity.ReceptionProcess) ([]respond.ReceptionProcessRespond, error) {
	result := make([]respond.ReceptionProcessRespond, 0, len(processes))
	if len(processes) == 0 {
		return result, nil
	}
	ids := make([]int64, 0, len(processes))
	for _, p := range processes {
		ids = append(ids, p.ID)
	}

	events, err := s.events.AllByProcessIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	metrics, err := s.metrics.FindByProcessIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	eventsByID := make(map[int64][]respond.ProcessEventRespond, len(processes))
	for _, ev := range events {
		eventsByID[ev.ReceptionProcessID] = append(eventsByID[ev.ReceptionProcessID], respond.ProcessEventRespond{
			ID:          ev.ID,
			Event:       ev.Event,
			Status:      ev.Status,
			Role:        ev.Role,
			Metadata:    rawJSON(ev.Metadata),
			CreatedByID: ev.CreatedByID,
			CreatedAt:   ev.CreatedAt,
		})
	}
	metricsByID := make(map[int64][]respond.NotificationMetricRespond, len(processes))
	for _, m := range metrics {
		metricsByID[m.ReceptionProcessID] = append(metricsByID[m.ReceptionProcessID], respond.NotificationMetricRespond{
			ID:              m.ID,
			EventType:       m.EventType,
			ActionConfirm:   m.ActionConfirm,
			VisibleAt:       m.VisibleAt,
			ActionAt:        m.ActionAt,
			ReactionTimeSec: m.ReactionTimeSec,
			SystemDelaySec:  m.SystemDelaySec,
			Metadata:        rawJSON(m.Metadata),
			CreatedByID:     m.CreatedByID,
			CreatedAt:       m.CreatedAt,
		})
	}

	for _, p := range processes {
		item := respond.ReceptionProcessRespond{
			ID:                    p.ID,
			Status:                p.Status,
			TypeOfMaterial:        p.TypeOfMaterial,
			ProcessingTimeMinutes: p.ProcessingTimeMinutes,
			IsActive:              p.IsActive,
			CreatedByID:           p.CreatedByID,
			CreatedAt:             p.CreatedAt,
			UpdatedAt:             p.UpdatedAt,
			Events:                eventsByID[p.ID],
			Metrics:               metricsByID[p.ID],
		}
		if item.Events == nil {
			item.Events = []respond.ProcessEventRespond{}
		}
		if item.Metrics == nil {
			item.Metrics = []respond.NotificationMetricRespond{}
		}
		if n := len(item.Events); n > 0 {
			item.CurrentStatus = item.Events[n-1].Status
			item.LastEvent = item.Events[n-1].Event
		}
		result = append(result, item)
	}
	return result, nil
}

// processingMinutes 四舍五入到分钟，不为负
func processingMinutes(createdAt, finishedAt time.Time) int {
	ms := finishedAt.Sub(createdAt).Milliseconds()
	minutes := int(math.Round(float64(ms) / 60000))
	if minutes < 0 {
		return 0
	}
	return minutes
}

func seconds(d time.Duration) *float64 {
	v := d.Seconds()
	return &v
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func encodeMetadata(meta map[string]interface{}) datatypes.JSON {
	if len(meta) == 0 {
		return nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// normalizeJSON 客户端可能把 metadata 序列化成字符串提交
func normalizeJSON(raw json.RawMessage) (datatypes.JSON, map[string]interface{}) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	body := []byte(raw)
	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		if s == "" {
			return nil, nil
		}
		body = []byte(s)
	}
	fields := map[string]interface{}{}
	if err := json.Unmarshal(body, &fields); err != nil {
		// 非对象内容原样保存为字符串
		wrapped, _ := json.Marshal(map[string]string{"raw": string(body)})
		return datatypes.JSON(wrapped), nil
	}
	return datatypes.JSON(body), fields
}

func rawJSON(v datatypes.JSON) json.RawMessage {
	if len(v) == 0 {
		return nil
	}
	return json.RawMessage(v)
}
