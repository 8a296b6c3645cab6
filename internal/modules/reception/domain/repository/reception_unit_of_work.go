package repository

import "context"

type ReceptionUnitOfWork interface {
	Transaction(ctx context.Context, fn func(processRepo ReceptionProcessRepository, eventRepo ProcessEventRepository, metricRepo NotificationMetricRepository, alertRepo PriorityAlertRepository) error) error
}
