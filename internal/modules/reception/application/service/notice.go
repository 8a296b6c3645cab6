package service

import (
	"context"

	pushService "LiveDock/internal/modules/push/application/service"
	pushEntity "LiveDock/internal/modules/push/domain/entity"
	"LiveDock/internal/modules/reception/domain/workflow"
	"LiveDock/pkg/zlog"

	"go.uber.org/zap"
)

// dispatchNotice 按通知类型推送；userIDs 非空时只推给这些用户。失败只记日志
func dispatchNotice(ctx context.Context, d pushService.NotificationDispatcher, n workflow.Notice, ref pushEntity.ProcessRef, userIDs []int64) {
	if d == nil || n == workflow.NoticeNone {
		return
	}

	var (
		report pushService.DispatchReport
		err    error
	)
	switch {
	case userIDs != nil:
		report, err = d.Resend(ctx, pushEntity.Kind(n.String()), ref, userIDs)
	case n == workflow.NoticeArrival:
		report, err = d.NotifyArrival(ctx, ref)
	case n == workflow.NoticePendingTest:
		report, err = d.NotifyPendingTest(ctx, ref)
	case n == workflow.NoticePendingUnload:
		report, err = d.NotifyPendingUnload(ctx, ref)
	case n == workflow.NoticePendingWeightCapture:
		report, err = d.NotifyPendingWeightCapture(ctx, ref)
	case n == workflow.NoticePendingRelease:
		report, err = d.NotifyPendingRelease(ctx, ref)
	case n == workflow.NoticeRejected:
		report, err = d.NotifyRejected(ctx, ref)
	case n == workflow.NoticeFinished:
		report, err = d.NotifyFinished(ctx, ref)
	}
	if err != nil {
		zlog.Warn("notification dispatch failed", zap.String("notice", n.String()), zap.Int64("processId", ref.ID), zap.Error(err))
		return
	}
	zlog.Debug("notification dispatch finished",
		zap.String("notice", n.String()),
		zap.Int64("processId", ref.ID),
		zap.Int("delivered", report.Delivered),
		zap.Int("failed", report.Failed),
	)
}
