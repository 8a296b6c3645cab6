package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"LiveDock/internal/modules/reception/application/service"
	"LiveDock/pkg/util"
	"LiveDock/pkg/zlog"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SweepLockKey 多实例部署时只允许一个实例执行同一轮扫描
const SweepLockKey = "livedock:sweeper:lock"

// Locker 集群锁，到期自动释放
type Locker interface {
	TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
}

// Sweeper 周期扫描停留在待确认状态的流程，上一轮未结束时跳过本轮
type Sweeper struct {
	cron    *cron.Cron
	svc     service.EscalationService
	spec    string
	locker  Locker
	lockTTL time.Duration
	running atomic.Bool
}

// NewSweeper spec 为带秒字段的 cron 表达式；locker 为空时只做进程内互斥
func NewSweeper(svc service.EscalationService, spec string, locker Locker, lockTTL time.Duration) *Sweeper {
	logger := cronLogger{}
	return &Sweeper{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		svc:     svc,
		spec:    spec,
		locker:  locker,
		lockTTL: lockTTL,
	}
}

func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() {
		_, _, _ = s.RunOnce(context.Background())
	}); err != nil {
		return err
	}
	s.cron.Start()
	zlog.Info("reception sweeper started", zap.String("spec", s.spec))
	return nil
}

// Stop 停止调度并等待正在执行的扫描结束
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		zlog.Warn("reception sweeper stop timed out")
	}
}

// RunOnce 执行一轮扫描，ran 为 false 表示被跳过
func (s *Sweeper) RunOnce(ctx context.Context) (report service.EscalationReport, ran bool, err error) {
	if !s.running.CompareAndSwap(false, true) {
		zlog.Debug("reception sweep skipped, previous run still in progress")
		return report, false, nil
	}
	defer s.running.Store(false)

	if s.locker != nil {
		ok, lockErr := s.locker.TryLock(ctx, SweepLockKey, util.GenerateUUID(), s.lockTTL)
		switch {
		case lockErr != nil:
			// 锁服务不可用时退化为单实例互斥
			zlog.Warn("sweeper lock unavailable", zap.Error(lockErr))
		case !ok:
			zlog.Debug("reception sweep skipped, another instance holds the lock")
			return report, false, nil
		}
	}

	start := time.Now()
	report, err = s.svc.Escalate(ctx)
	if err != nil {
		zlog.Error("reception sweep failed", zap.Error(err))
		return report, true, err
	}
	if report.Escalated > 0 {
		zlog.Info("reception sweep finished",
			zap.Int("scanned", report.Scanned),
			zap.Int("pending", report.Pending),
			zap.Int("escalated", report.Escalated),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return report, true, nil
}

// cronLogger 把 cron 的日志接到 zlog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	zlog.L().Sugar().Debugw(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	zlog.L().Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
