package service_test

import (
	"context"
	"testing"

	"supplylink/internal/model"
	"supplylink/internal/queue"
	"supplylink/internal/repository"
	"supplylink/internal/service"
	"supplylink/internal/testutil"
	"supplylink/pkg/apperror"
	"supplylink/pkg/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationService_DeliverListAndRead(t *testing.T) {
	db := testutil.NewDB(t)
	svc := service.NewNotificationService(repository.NewNotificationRepository(db))
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, model.RoleFactory)
	other := testutil.CreateUser(t, db, model.RoleSupplier)

	for _, title := range []string{"first", "second", "third"} {
		require.NoError(t, svc.Deliver(ctx, queue.NotificationJob(owner.ID.String(), model.NotificationQuoteAnswered, title, "body")))
	}
	require.NoError(t, svc.Deliver(ctx, queue.NotificationJob(other.ID.String(), model.NotificationNewQuote, "theirs", "body")))
	assert.Error(t, svc.Deliver(ctx, queue.NotificationJob("not-a-uuid", model.NotificationNewQuote, "x", "y")))

	items, total, unread, err := svc.List(ctx, callerOf(owner), pagination.New(1, 2))
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.EqualValues(t, 3, unread)
	assert.Len(t, items, 2)

	_, err = svc.MarkAsRead(ctx, items[0].ID, callerOf(other))
	assert.ErrorIs(t, err, apperror.ErrNotFound, "someone else's notification")

	read, err := svc.MarkAsRead(ctx, items[0].ID, callerOf(owner))
	require.NoError(t, err)
	assert.True(t, read.Read)

	_, _, unread, err = svc.List(ctx, callerOf(owner), pagination.New(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 2, unread)

	res, err := svc.MarkAllAsRead(ctx, callerOf(owner))
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.MarkedAsRead)

	res, err = svc.MarkAllAsRead(ctx, callerOf(owner))
	require.NoError(t, err)
	assert.Zero(t, res.MarkedAsRead)

	_, _, unread, err = svc.List(ctx, callerOf(other), pagination.New(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread, "other users untouched")
}

func TestAdminService_MetricsLogsAndAudit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	notifications := repository.NewNotificationRepository(e.db)
	admin := service.NewAdminService(repository.NewMetricsRepository(e.db), notifications, repository.NewAuditRepository(e.db))

	empty, err := admin.Metrics(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty.OrdersByStatus)
	assert.NotNil(t, empty.UsersByRole)

	factory, _, requestID, view := e.negotiated(t)
	_, err = e.quotes.Accept(ctx, requestID, callerOf(factory))
	require.NoError(t, err)
	_, err = e.orders.Create(ctx, callerOf(factory), service.CreateOrderRequest{QuoteResponseID: view.ID})
	require.NoError(t, err)

	deliver := service.NewNotificationService(notifications)
	for _, job := range e.jobs.byType(queue.JobNotification) {
		require.NoError(t, deliver.Deliver(ctx, job))
	}

	m, err := admin.Metrics(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, m.TotalUsers)
	assert.EqualValues(t, 1, m.TotalDemands)
	assert.EqualValues(t, 1, m.TotalOrders)
	assert.Equal(t, []model.StatusCount{{Status: model.OrderConfirmed, Count: 1}}, m.OrdersByStatus)
	assert.EqualValues(t, 3, m.RecentActivityCount, "new quote, quote answered, new order")

	logs, total, err := admin.Logs(ctx, pagination.New(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	for _, l := range logs {
		assert.NotNil(t, l.User, "recipient preloaded")
	}

	audits, total, err := admin.AuditLogs(ctx, model.ActionRespondQuote, pagination.New(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, audits, 1)
	assert.Equal(t, "5250", audits[0].Details["total_price"])
	assert.Equal(t, requestID, audits[0].EntityID)

	_, total, err = admin.AuditLogs(ctx, "", pagination.New(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 4, total, "request, respond, accept, create order")
}
