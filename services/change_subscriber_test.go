package services

import (
	"context"
	"encoding/json"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zedbites/backoffice/models"
	"github.com/zedbites/backoffice/realtime"
)

func TestSubscriberAppliesChangesFromOtherInstances(t *testing.T) {
	db := newTestDB(t)
	writer := NewGormOrderStore(db)
	hub := &recordingHub{}
	local := NewOrderSync(NewGormOrderStore(db), nil, hub, nil, quietLogger())
	sub := &ChangeSubscriber{instance: "b", handler: local, log: quietLogger()}
	ctx := context.Background()

	// Instance "a" wrote the order and its monitor already claimed the journal row.
	order := seedOrder(t, writer)
	body, err := json.Marshal(models.DBChange{ID: 1, TableName: "orders", RecordID: int64(order.ID), ActionType: models.ActionInsert})
	require.NoError(t, err)

	require.NoError(t, sub.handleDelivery(ctx, amqp.Delivery{AppId: "a", Body: body}))
	got, ok := local.Order(order.ID)
	require.True(t, ok)
	assert.Len(t, got.OrderItems, len(order.OrderItems))
	assert.Equal(t, []string{realtime.EventOrderCreated}, hub.names())
}

func TestSubscriberSkipsOwnChanges(t *testing.T) {
	var seen []models.DBChange
	record := handlerFunc(func(ctx context.Context, c models.DBChange) error {
		seen = append(seen, c)
		return nil
	})
	sub := &ChangeSubscriber{instance: "a", handler: record, log: quietLogger()}

	require.NoError(t, sub.handleDelivery(context.Background(), amqp.Delivery{AppId: "a", Body: []byte(`{"id":1}`)}))
	assert.Empty(t, seen)
	assert.Error(t, sub.handleDelivery(context.Background(), amqp.Delivery{AppId: "b", Body: []byte(`not json`)}))
	assert.Empty(t, seen)
}
