package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	pushService "LiveDock/internal/modules/push/application/service"
	pushEntity "LiveDock/internal/modules/push/domain/entity"
	"LiveDock/internal/modules/reception/application/dto/request"
	"LiveDock/internal/modules/reception/application/dto/respond"
	"LiveDock/internal/modules/reception/domain/entity"
	"LiveDock/internal/modules/reception/domain/workflow"
	"LiveDock/internal/modules/reception/infrastructure/persistence"
	userEntity "LiveDock/internal/modules/user/domain/entity"
	userPersistence "LiveDock/internal/modules/user/infrastructure/persistence"
	"LiveDock/pkg/xerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))
}

type dispatchCall struct {
	kind    pushEntity.Kind
	ref     pushEntity.ProcessRef
	userIDs []int64
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
}

func (f *fakeDispatcher) record(kind pushEntity.Kind, ref pushEntity.ProcessRef, userIDs []int64) (pushService.DispatchReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dispatchCall{kind: kind, ref: ref, userIDs: userIDs})
	return pushService.DispatchReport{Kind: kind, Delivered: 1}, nil
}

func (f *fakeDispatcher) NotifyArrival(_ context.Context, ref pushEntity.ProcessRef) (pushService.DispatchReport, error) {
	return f.record(pushEntity.KindArrival, ref, nil)
}

func (f *fakeDispatcher) NotifyPendingTest(_ context.Context, ref pushEntity.ProcessRef) (pushService.DispatchReport, error) {
	return f.record(pushEntity.KindPendingTest, ref, nil)
}

func (f *fakeDispatcher) NotifyPendingUnload(_ context.Context, ref pushEntity.ProcessRef) (pushService.DispatchReport, error) {
	return f.record(pushEntity.KindPendingUnload, ref, nil)
}

func (f *fakeDispatcher) NotifyPendingWeightCapture(_ context.Context, ref pushEntity.ProcessRef) (pushService.DispatchReport, error) {
	return f.record(pushEntity.KindPendingWeightCapture, ref, nil)
}

func (f *fakeDispatcher) NotifyPendingRelease(_ context.Context, ref pushEntity.ProcessRef) (pushService.DispatchReport, error) {
	return f.record(pushEntity.KindPendingRelease, ref, nil)
}

func (f *fakeDispatcher) NotifyRejected(_ context.Context, ref pushEntity.ProcessRef) (pushService.DispatchReport, error) {
	return f.record(pushEntity.KindRejected, ref, nil)
}

func (f *fakeDispatcher) NotifyFinished(_ context.Context, ref pushEntity.ProcessRef) (pushService.DispatchReport, error) {
	return f.record(pushEntity.KindFinished, ref, nil)
}

func (f *fakeDispatcher) Resend(_ context.Context, kind pushEntity.Kind, ref pushEntity.ProcessRef, userIDs []int64) (pushService.DispatchReport, error) {
	return f.record(kind, ref, userIDs)
}

func (f *fakeDispatcher) Calls() []dispatchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dispatchCall(nil), f.calls...)
}

func (f *fakeDispatcher) Count(kind pushEntity.Kind) int {
	n := 0
	for _, c := range f.Calls() {
		if c.kind == kind {
			n++
		}
	}
	return n
}

type roleEmit struct {
	role  string
	event string
}

type fakeRealtime struct {
	mu         sync.Mutex
	broadcasts []string
	payloads   []interface{}
	roleEmits  []roleEmit
}

func (f *fakeRealtime) Broadcast(event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, event)
	f.payloads = append(f.payloads, payload)
}

func (f *fakeRealtime) EmitToRole(_ context.Context, role, event string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roleEmits = append(f.roleEmits, roleEmit{role: role, event: event})
	return nil
}

func (f *fakeRealtime) Broadcasts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.broadcasts...)
}

// LastPayload 最后一次广播的内容
func (f *fakeRealtime) LastPayload() interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		return nil
	}
	return f.payloads[len(f.payloads)-1]
}

// deferredGo 先收集异步任务，由测试决定执行顺序
type deferredGo struct {
	mu  sync.Mutex
	fns []func()
}

func (d *deferredGo) Go(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fns = append(d.fns, fn)
}

// RunLIFO 后入队的先执行，执行过程中新入队的任务同样处理
func (d *deferredGo) RunLIFO() {
	for {
		d.mu.Lock()
		if len(d.fns) == 0 {
			d.mu.Unlock()
			return
		}
		fn := d.fns[len(d.fns)-1]
		d.fns = d.fns[:len(d.fns)-1]
		d.mu.Unlock()
		fn()
	}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type receptionFixture struct {
	db         *gorm.DB
	svc        ReceptionService
	alerts     AlertService
	dispatcher *fakeDispatcher
	realtime   *fakeRealtime
	clock      *testClock
	users      map[string]*userEntity.User
}

func setupReceptionTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&userEntity.User{},
		&entity.ReceptionProcess{},
		&entity.ProcessEvent{},
		&entity.NotificationMetric{},
		&entity.PriorityAlert{},
	))
	return db
}

// newReceptionFixture 副作用同步执行，便于断言
func newReceptionFixture(t *testing.T) *receptionFixture {
	t.Helper()
	return newReceptionFixtureWith(t, func(fn func()) { fn() }, false)
}

func newReceptionFixtureWith(t *testing.T, goFn func(fn func()), supersede bool) *receptionFixture {
	t.Helper()
	db := setupReceptionTestDB(t)

	f := &receptionFixture{
		db:         db,
		dispatcher: &fakeDispatcher{},
		realtime:   &fakeRealtime{},
		clock:      &testClock{now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)},
		users:      make(map[string]*userEntity.User),
	}
	for _, role := range []string{userEntity.RoleVigilancia, userEntity.RoleLogistica, userEntity.RoleCalidad, userEntity.RoleProduccion} {
		u := &userEntity.User{Name: "user " + role, Email: role + "@example.com", Role: role, IsActive: true}
		require.NoError(t, db.Create(u).Error)
		f.users[role] = u
	}

	uow := persistence.NewReceptionUnitOfWork(db)
	f.alerts = NewAlertService(uow, persistence.NewPriorityAlertRepository(db), f.realtime, supersede)
	f.svc = NewReceptionService(ReceptionDeps{
		UnitOfWork: uow,
		Processes:  persistence.NewReceptionProcessRepository(db),
		Events:     persistence.NewProcessEventRepository(db),
		Metrics:    persistence.NewNotificationMetricRepository(db),
		Users:      userPersistence.NewUserRepository(db),
		Alerts:     f.alerts,
		Dispatcher: f.dispatcher,
		Realtime:   f.realtime,
		Now:        f.clock.Now,
		Go:         goFn,
	})
	return f
}

func (f *receptionFixture) create(t *testing.T, material string) int64 {
	t.Helper()
	p, err := f.svc.Create(context.Background(), request.CreateProcessRequest{TypeOfMaterial: material}, f.users[userEntity.RoleVigilancia])
	require.NoError(t, err)
	return p.ID
}

func (f *receptionFixture) advance(id int64, action, role string) error {
	_, err := f.svc.Advance(context.Background(), request.ChangeStatusRequest{ID: id, ActionRole: action}, f.users[role])
	return err
}

func TestReceptionService_CreateRegistersArrival(t *testing.T) {
	f := newReceptionFixture(t)

	p, err := f.svc.Create(context.Background(), request.CreateProcessRequest{TypeOfMaterial: entity.MaterialAlcohol}, f.users[userEntity.RoleVigilancia])
	require.NoError(t, err)

	assert.Equal(t, entity.StatusInProgress, p.Status)
	assert.Equal(t, entity.MaterialAlcohol, p.TypeOfMaterial)
	require.Len(t, p.Events, 1)
	assert.Equal(t, string(workflow.VigilanciaRegistraIngreso), p.Events[0].Event)
	assert.Equal(t, string(workflow.LogisticaPendienteDeConfirmacionIngreso), p.Events[0].Status)
	assert.Equal(t, userEntity.RoleVigilancia, p.Events[0].Role)
	assert.Equal(t, string(workflow.LogisticaPendienteDeConfirmacionIngreso), p.CurrentStatus)
	assert.Empty(t, p.Metrics)

	calls := f.dispatcher.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, pushEntity.KindArrival, calls[0].kind)
	assert.Equal(t, p.ID, calls[0].ref.ID)
	assert.Equal(t, "logistica_confirma_ingreso", calls[0].ref.ActionConfirm)
	assert.Equal(t, "user VIGILANCIA", calls[0].ref.CreatedByName)

	assert.Equal(t, []string{EventProcessCreated, EventProcessUpdated}, f.realtime.Broadcasts())

	alerts, err := f.svc.FindPriorityAlerts(context.Background(), userEntity.RoleLogistica, nil)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, entity.SeverityHigh, alerts[0].Severity)
	assert.Equal(t, "Tipo de Material: ALCOHOL.", alerts[0].Detail)
}

func TestReceptionService_CreateRejectsUnknownMaterial(t *testing.T) {
	f := newReceptionFixture(t)

	_, err := f.svc.Create(context.Background(), request.CreateProcessRequest{TypeOfMaterial: "ACEITE"}, f.users[userEntity.RoleVigilancia])
	require.Error(t, err)
	assert.True(t, xerr.IsCode(err, xerr.BadRequest))
	assert.Empty(t, f.dispatcher.Calls())
}

func TestReceptionService_AdvanceInsertsImplicitConfirmation(t *testing.T) {
	f := newReceptionFixture(t)
	id := f.create(t, entity.MaterialAgua)

	p, err := f.svc.Advance(context.Background(), request.ChangeStatusRequest{ID: id, ActionRole: "logistica-autorizo-ingreso"}, f.users[userEntity.RoleLogistica])
	require.NoError(t, err)

	require.Len(t, p.Events, 3)
	assert.Equal(t, string(workflow.LogisticaConfirmaPendienteDeIngreso), p.Events[1].Event)
	assert.JSONEq(t, `{"implicit":true}`, string(p.Events[1].Metadata))
	assert.Equal(t, string(workflow.LogisticaAutorizaIngreso), p.Events[2].Event)
	assert.Empty(t, p.Events[2].Metadata)
	assert.Equal(t, string(workflow.CalidadPendienteDeConfirmacionDeAnalisis), p.CurrentStatus)
	assert.Equal(t, entity.StatusInProgress, p.Status)

	assert.Equal(t, 1, f.dispatcher.Count(pushEntity.KindPendingTest))
}

func TestReceptionService_AdvanceRejectsRepeatedStatus(t *testing.T) {
	f := newReceptionFixture(t)
	id := f.create(t, entity.MaterialAgua)
	require.NoError(t, f.advance(id, "logistica-autorizo-ingreso", userEntity.RoleLogistica))

	err := f.advance(id, "logistica-autorizo-ingreso", userEntity.RoleLogistica)
	require.Error(t, err)
	ce, ok := xerr.As(err)
	require.True(t, ok)
	assert.Equal(t, xerr.Conflict, ce.Code)
	assert.Contains(t, ce.Message, "already in status")
}

func TestReceptionService_AdvanceRejectsOutOfOrderAction(t *testing.T) {
	f := newReceptionFixture(t)
	id := f.create(t, entity.MaterialLess)

	err := f.advance(id, "calidad-aprobo-material", userEntity.RoleCalidad)
	require.Error(t, err)
	ce, ok := xerr.As(err)
	require.True(t, ok)
	assert.Equal(t, xerr.Conflict, ce.Code)
	assert.Contains(t, ce.Message, string(workflow.LogisticaConfirmaPendienteDeIngreso))

	p, err := f.svc.FindOne(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, p.Events, 1)
}

func TestReceptionService_AdvanceUnknownActionAndProcess(t *testing.T) {
	f := newReceptionFixture(t)

	err := f.advance(1, "logistica-hace-algo", userEntity.RoleLogistica)
	assert.True(t, xerr.IsCode(err, xerr.BadRequest))

	err = f.advance(99, "logistica_confirma_ingreso", userEntity.RoleLogistica)
	assert.True(t, xerr.IsCode(err, xerr.NotFound))
}

func TestReceptionService_RejectFinishesProcess(t *testing.T) {
	f := newReceptionFixture(t)
	id := f.create(t, entity.MaterialColgate)
	require.NoError(t, f.advance(id, "logistica-autorizo-ingreso", userEntity.RoleLogistica))

	f.clock.Advance(90 * time.Second)
	p, err := f.svc.Advance(context.Background(), request.ChangeStatusRequest{ID: id, ActionRole: "calidad-rechazo-material"}, f.users[userEntity.RoleCalidad])
	require.NoError(t, err)

	assert.Equal(t, entity.StatusRejected, p.Status)
	assert.Equal(t, string(workflow.FinalizoProcesoPorRechazo), p.CurrentStatus)
	require.NotNil(t, p.ProcessingTimeMinutes)
	assert.Equal(t, 2, *p.ProcessingTimeMinutes)
	require.Len(t, p.Events, 5)
	assert.Equal(t, string(workflow.CalidadConfirmaPendienteDeAnalisis), p.Events[3].Event)
	assert.Equal(t, 1, f.dispatcher.Count(pushEntity.KindRejected))

	for _, role := range userEntity.OperativeRoles {
		alerts, err := f.svc.FindPriorityAlerts(context.Background(), role, nil)
		require.NoError(t, err)
		require.Len(t, alerts, 1, role)
		assert.Equal(t, entity.SeverityLow, alerts[0].Severity)
		assert.Contains(t, alerts[0].Title, "Rechazado por calidad")
	}

	err = f.advance(id, "calidad-libero-sap", userEntity.RoleCalidad)
	assert.True(t, xerr.IsCode(err, xerr.Conflict))
}

func TestReceptionService_ReorderedSideEffectsKeepLatestAlerts(t *testing.T) {
	q := &deferredGo{}
	f := newReceptionFixtureWith(t, q.Go, true)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, request.CreateProcessRequest{TypeOfMaterial: entity.MaterialAlcohol}, f.users[userEntity.RoleVigilancia])
	require.NoError(t, err)
	require.NoError(t, f.advance(p.ID, "logistica-autorizo-ingreso", userEntity.RoleLogistica))
	require.NoError(t, f.advance(p.ID, "calidad-rechazo-material", userEntity.RoleCalidad))
	q.RunLIFO()

	for _, role := range userEntity.OperativeRoles {
		alerts, err := f.svc.FindPriorityAlerts(ctx, role, nil)
		require.NoError(t, err)
		require.Len(t, alerts, 1, role)
		assert.Equal(t, fmt.Sprintf("Rechazado por calidad #%d ❌🧪", p.ID), alerts[0].Title, role)
	}

	last, ok := f.realtime.LastPayload().(*respond.ReceptionProcessRespond)
	require.True(t, ok)
	assert.Equal(t, entity.StatusRejected, last.Status)
	assert.Equal(t, string(workflow.FinalizoProcesoPorRechazo), last.CurrentStatus)
	assert.Equal(t, 1, f.dispatcher.Count(pushEntity.KindRejected))
	assert.Equal(t, 1, f.dispatcher.Count(pushEntity.KindPendingTest))
}

func TestReceptionService_ReorderedSideEffectsKeepIntermediateAlert(t *testing.T) {
	q := &deferredGo{}
	f := newReceptionFixtureWith(t, q.Go, true)
	ctx := context.Background()

	id := f.create(t, entity.MaterialAgua)
	require.NoError(t, f.advance(id, "logistica-autorizo-ingreso", userEntity.RoleLogistica))
	require.NoError(t, f.advance(id, "calidad_confirma_test", userEntity.RoleCalidad))
	q.RunLIFO()

	alerts, err := f.svc.FindPriorityAlerts(ctx, userEntity.RoleCalidad, nil)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, fmt.Sprintf("Pendiente de evaluacion #%d 🧪🔍", id), alerts[0].Title)

	alerts, err = f.svc.FindPriorityAlerts(ctx, userEntity.RoleLogistica, nil)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestReceptionService_FullHappyPath(t *testing.T) {
	f := newReceptionFixture(t)
	id := f.create(t, entity.MaterialAlcohol)

	steps := []struct {
		action string
		role   string
	}{
		{"logistica_confirma_ingreso", userEntity.RoleLogistica},
		{"logistica-autorizo-ingreso", userEntity.RoleLogistica},
		{"calidad_confirma_test", userEntity.RoleCalidad},
		{"calidad-aprobo-material", userEntity.RoleCalidad},
		{"produccion_confirma_descarga", userEntity.RoleProduccion},
		{"produccion-descargando", userEntity.RoleProduccion},
		{"descargado", userEntity.RoleProduccion},
		{"logistica_confirma_pendiente_peso_en_sap", userEntity.RoleLogistica},
		{"logistica-capturo-peso-sap", userEntity.RoleLogistica},
		{"calidad_confima_liberacion_en_sap", userEntity.RoleCalidad},
		{"calidad-libero-sap", userEntity.RoleCalidad},
	}
	for _, s := range steps {
		f.clock.Advance(time.Minute)
		require.NoError(t, f.advance(id, s.action, s.role), s.action)
	}

	p, err := f.svc.FindOne(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusFinished, p.Status)
	assert.Equal(t, string(workflow.FinalizoProceso), p.CurrentStatus)
	assert.Len(t, p.Events, 12)
	require.NotNil(t, p.ProcessingTimeMinutes)
	assert.Equal(t, 11, *p.ProcessingTimeMinutes)

	for i := 1; i < len(p.Events); i++ {
		assert.Less(t, p.Events[i-1].ID, p.Events[i].ID)
	}
	assert.Equal(t, 1, f.dispatcher.Count(pushEntity.KindFinished))
}

func TestReceptionService_ConcurrentAdvanceAppendsOnce(t *testing.T) {
	f := newReceptionFixture(t)
	id := f.create(t, entity.MaterialAgua)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.advance(id, "logistica_confirma_ingreso", userEntity.RoleLogistica)
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			assert.True(t, xerr.IsCode(err, xerr.Conflict))
		}
	}
	assert.Equal(t, 1, failed)

	p, err := f.svc.FindOne(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, p.Events, 2)
}

func TestReceptionService_ExpiredRepromptsWithoutAppending(t *testing.T) {
	f := newReceptionFixture(t)
	id := f.create(t, entity.MaterialAlcohol)
	logistica := f.users[userEntity.RoleLogistica]

	f.clock.Advance(time.Minute)
	res, err := f.svc.RecordNotificationMetric(context.Background(), request.NotifyMetricRequest{
		ID:             id,
		EventType:      entity.MetricExpired,
		NotifiedUserID: logistica.ID,
		ActionConfirm:  "logistica_confirma_ingreso",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Action)
	assert.Equal(t, "No action taken for event type EXPIRED with actionConfirm logistica_confirma_ingreso", res.Action.Message)

	calls := f.dispatcher.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, pushEntity.KindArrival, calls[1].kind)
	assert.Equal(t, []int64{logistica.ID}, calls[1].userIDs)

	p, err := f.svc.FindOne(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, p.Events, 1)
	assert.Len(t, p.Metrics, 1)
}

func TestReceptionService_RepromptSkippedAfterConfirmClick(t *testing.T) {
	f := newReceptionFixture(t)
	id := f.create(t, entity.MaterialAlcohol)
	logistica := f.users[userEntity.RoleLogistica]

	f.clock.Advance(time.Minute)
	require.NoError(t, f.db.Create(&entity.NotificationMetric{
		ReceptionProcessID: id,
		EventType:          entity.MetricActionClickedConfirm,
		ActionConfirm:      "logistica_confirma_ingreso",
		CreatedByID:        logistica.ID,
		CreatedAt:          f.clock.Now(),
		UpdatedAt:          f.clock.Now(),
	}).Error)

	f.clock.Advance(time.Minute)
	res, err := f.svc.RecordNotificationMetric(context.Background(), request.NotifyMetricRequest{
		ID:             id,
		EventType:      entity.MetricNotificationClickedNoAction,
		NotifiedUserID: logistica.ID,
		ActionConfirm:  "logistica_confirma_ingreso",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Action)
	assert.Len(t, f.dispatcher.Calls(), 1)
}

func TestReceptionService_ConfirmFromNotification(t *testing.T) {
	f := newReceptionFixture(t)
	id := f.create(t, entity.MaterialAlcohol)
	logistica := f.users[userEntity.RoleLogistica]

	confirm := request.NotifyMetricRequest{
		ID:             id,
		EventType:      entity.MetricActionClickedConfirm,
		NotifiedUserID: logistica.ID,
		ActionConfirm:  "logistica_confirma_ingreso",
	}
	res, err := f.svc.RecordNotificationMetric(context.Background(), confirm)
	require.NoError(t, err)
	require.NotNil(t, res.Process)
	assert.Nil(t, res.Action)
	assert.Equal(t, string(workflow.LogisticaPendienteDeAutorizacion), res.Process.CurrentStatus)
	require.Len(t, res.Process.Events, 2)
	assert.JSONEq(t, `{"source":"notification"}`, string(res.Process.Events[1].Metadata))
	assert.Equal(t, logistica.ID, res.Process.Events[1].CreatedByID)

	// 重复点击不再推进，也不报错
	res, err = f.svc.RecordNotificationMetric(context.Background(), confirm)
	require.NoError(t, err)
	require.NotNil(t, res.Action)

	// 已离开待确认状态，过期事件不再重发
	res, err = f.svc.RecordNotificationMetric(context.Background(), request.NotifyMetricRequest{
		ID:             id,
		EventType:      entity.MetricExpired,
		NotifiedUserID: logistica.ID,
		ActionConfirm:  "logistica_confirma_ingreso",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Action)
	assert.Equal(t, 0, countResends(f.dispatcher.Calls()))

	p, err := f.svc.FindOne(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, p.Events, 2)
	assert.Len(t, p.Metrics, 3)
}

func TestReceptionService_ConfirmUnknownAction(t *testing.T) {
	f := newReceptionFixture(t)
	id := f.create(t, entity.MaterialAlcohol)

	_, err := f.svc.RecordNotificationMetric(context.Background(), request.NotifyMetricRequest{
		ID:             id,
		EventType:      entity.MetricActionClickedConfirm,
		NotifiedUserID: f.users[userEntity.RoleLogistica].ID,
		ActionConfirm:  "logistica-autorizo-ingreso",
	})
	assert.True(t, xerr.IsCode(err, xerr.BadRequest))
}

func TestReceptionService_MetricDerivesTimings(t *testing.T) {
	f := newReceptionFixture(t)
	id := f.create(t, entity.MaterialAlcohol)

	eventTime := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	visible := eventTime.Add(3 * time.Second)
	action := visible.Add(2500 * time.Millisecond)
	meta, err := json.Marshal(`{"eventTime":"` + eventTime.Format(time.RFC3339Nano) + `"}`)
	require.NoError(t, err)

	res, err := f.svc.RecordNotificationMetric(context.Background(), request.NotifyMetricRequest{
		ID:             id,
		EventType:      entity.MetricNotificationShown,
		NotifiedUserID: f.users[userEntity.RoleLogistica].ID,
		VisibleAt:      &visible,
		AccionAt:       &action,
		Metadata:       meta,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Process)
	require.Len(t, res.Process.Metrics, 1)

	m := res.Process.Metrics[0]
	require.NotNil(t, m.ReactionTimeSec)
	assert.InDelta(t, 2.5, *m.ReactionTimeSec, 0.001)
	require.NotNil(t, m.SystemDelaySec)
	assert.InDelta(t, 3.0, *m.SystemDelaySec, 0.001)
	assert.JSONEq(t, `{"eventTime":"2026-03-02T08:00:00Z"}`, string(m.Metadata))
	assert.Contains(t, f.realtime.Broadcasts(), EventProcessUpdated)
}

func TestReceptionService_MetricNotFound(t *testing.T) {
	f := newReceptionFixture(t)
	id := f.create(t, entity.MaterialAlcohol)

	_, err := f.svc.RecordNotificationMetric(context.Background(), request.NotifyMetricRequest{
		ID: 404, EventType: entity.MetricNotificationShown, NotifiedUserID: f.users[userEntity.RoleLogistica].ID,
	})
	assert.True(t, xerr.IsCode(err, xerr.NotFound))

	_, err = f.svc.RecordNotificationMetric(context.Background(), request.NotifyMetricRequest{
		ID: id, EventType: entity.MetricNotificationShown, NotifiedUserID: 404,
	})
	assert.True(t, xerr.IsCode(err, xerr.NotFound))
}

func TestReceptionService_MetricRejectsInactiveProcess(t *testing.T) {
	f := newReceptionFixture(t)
	id := f.create(t, entity.MaterialAlcohol)
	require.NoError(t, f.db.Model(&entity.ReceptionProcess{}).Where("id = ?", id).Update("is_active", false).Error)

	_, err := f.svc.RecordNotificationMetric(context.Background(), request.NotifyMetricRequest{
		ID: id, EventType: entity.MetricExpired, ActionConfirm: "logistica_confirma_ingreso",
		NotifiedUserID: f.users[userEntity.RoleLogistica].ID,
	})
	assert.True(t, xerr.IsCode(err, xerr.NotFound))

	var n int64
	require.NoError(t, f.db.Model(&entity.NotificationMetric{}).Where("reception_process_id = ?", id).Count(&n).Error)
	assert.Zero(t, n)
	assert.Equal(t, 0, countResends(f.dispatcher.Calls()))
}

func TestReceptionService_FindAllFiltersByStartDate(t *testing.T) {
	f := newReceptionFixture(t)
	first := f.create(t, entity.MaterialAlcohol)
	f.clock.Advance(48 * time.Hour)
	second := f.create(t, entity.MaterialAgua)

	all, err := f.svc.FindAll(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second, all[0].ID)
	assert.Equal(t, first, all[1].ID)

	since := f.clock.Now().Add(-time.Hour)
	recent, err := f.svc.FindAll(context.Background(), &since)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, second, recent[0].ID)
}

func TestReceptionService_FindPriorityAlertsRequiresRole(t *testing.T) {
	f := newReceptionFixture(t)

	_, err := f.svc.FindPriorityAlerts(context.Background(), "", nil)
	assert.True(t, xerr.IsCode(err, xerr.Forbidden))
}

func TestProcessingMinutes(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	cases := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 0},
		{29 * time.Second, 0},
		{30 * time.Second, 1},
		{90 * time.Second, 2},
		{47*time.Minute + 10*time.Second, 47},
		{-5 * time.Minute, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, processingMinutes(start, start.Add(c.elapsed)), c.elapsed.String())
	}
}

func TestNormalizeJSON(t *testing.T) {
	meta, fields := normalizeJSON(json.RawMessage(`"{\"eventTime\":\"x\"}"`))
	assert.JSONEq(t, `{"eventTime":"x"}`, string(meta))
	assert.Equal(t, "x", fields["eventTime"])

	meta, fields = normalizeJSON(json.RawMessage(`[1,2]`))
	assert.JSONEq(t, `{"raw":"[1,2]"}`, string(meta))
	assert.Nil(t, fields)

	meta, _ = normalizeJSON(json.RawMessage(`null`))
	assert.Nil(t, meta)
}

func countResends(calls []dispatchCall) int {
	n := 0
	for _, c := range calls {
		if c.userIDs != nil {
			n++
		}
	}
	return n
}
