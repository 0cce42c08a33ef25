package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/slot-watch/internal/notify"
	"github.com/wolfman30/slot-watch/internal/slots"
	"github.com/wolfman30/slot-watch/internal/store"
)

func TestNotificationStorePushInsertsReversedAndTrims(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	notifications := []notify.Notification{
		{ID: "n1", UserID: "u1", CreatedAt: created, Title: "t1", Message: "m1", Channel: notify.ChannelInApp},
		{ID: "n2", UserID: "u1", CreatedAt: created, Title: "t2", Message: "m2", Channel: notify.ChannelInApp},
		{ID: "n3", UserID: "u2", CreatedAt: created, Title: "t3", Message: "m3", Channel: notify.ChannelTelegram},
	}

	mock.ExpectBegin()
	batch := mock.ExpectBatch()
	batch.ExpectExec("INSERT INTO user_notifications").
		WithArgs("n3", "u2", created, "t3", "m3", pgxmock.AnyArg(), "telegram").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	batch.ExpectExec("INSERT INTO user_notifications").
		WithArgs("n2", "u1", created, "t2", "m2", pgxmock.AnyArg(), "in_app").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	batch.ExpectExec("INSERT INTO user_notifications").
		WithArgs("n1", "u1", created, "t1", "m1", pgxmock.AnyArg(), "in_app").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	batch.ExpectExec("DELETE FROM user_notifications").
		WithArgs("u2", store.MaxNotificationsPerUser).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	batch.ExpectExec("DELETE FROM user_notifications").
		WithArgs("u1", store.MaxNotificationsPerUser).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCommit()

	require.NoError(t, NewNotificationStore(mock).PushNotifications(context.Background(), notifications))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationStorePushEmptySkipsTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	require.NoError(t, NewNotificationStore(mock).PushNotifications(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationStorePushBeginFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("connection reset"))

	err = NewNotificationStore(mock).PushNotifications(context.Background(), []notify.Notification{
		{ID: "n1", UserID: "u1", Title: "t1", Message: "m1", Channel: notify.ChannelInApp},
	})
	assert.ErrorContains(t, err, "postgres: push notifications")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationStoreGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	payload := []byte(`{"key":"INTERNA KLINIKA::Reumatoloska ambulanta","section":"INTERNA KLINIKA","specialist":"Reumatoloska ambulanta","reason":"OPENED_SLOTS","previousStatus":"NO_SLOTS","currentStatus":"HAS_SLOTS","previousFirstAvailable":null,"currentFirstAvailable":"03.11.2026. 09:00"}`)
	mock.ExpectQuery("SELECT (.+) FROM user_notifications").
		WithArgs("u1", store.MaxNotificationsPerUser).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "created_at", "title", "message", "payload", "channel"}).
			AddRow("n1", "u1", created, "Slot update: Reumatoloska ambulanta", "Slots opened. First available: 03.11.2026. 09:00", payload, "telegram"))

	got, err := NewNotificationStore(mock).Notifications(context.Background(), "u1", 9999)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, notify.ChannelTelegram, got[0].Channel)
	assert.Equal(t, slots.ReasonOpenedSlots, got[0].Payload.Reason)
	require.NotNil(t, got[0].Payload.PreviousStatus)
	assert.Equal(t, slots.StatusNoSlots, *got[0].Payload.PreviousStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}
