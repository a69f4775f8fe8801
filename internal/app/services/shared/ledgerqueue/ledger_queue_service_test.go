package ledgerqueue

import (
	"context"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

func TestAwaitConfirm(t *testing.T) {
	t.Run("discards stale confirmations from abandoned publishes", func(t *testing.T) {
		confirms := make(chan amqp.Confirmation, 2)
		confirms <- amqp.Confirmation{DeliveryTag: 1, Ack: true}
		confirms <- amqp.Confirmation{DeliveryTag: 2, Ack: false}

		// The stale ack for tag 1 must not be taken as the answer for tag 2.
		confirmation, err := awaitConfirm(context.Background(), confirms, 2)
		assert.NoError(t, err)
		assert.Equal(t, uint64(2), confirmation.DeliveryTag)
		assert.False(t, confirmation.Ack)
	})

	t.Run("returns the matching confirmation", func(t *testing.T) {
		confirms := make(chan amqp.Confirmation, 1)
		confirms <- amqp.Confirmation{DeliveryTag: 7, Ack: true}

		confirmation, err := awaitConfirm(context.Background(), confirms, 7)
		assert.NoError(t, err)
		assert.True(t, confirmation.Ack)
		assert.Equal(t, uint64(7), confirmation.DeliveryTag)
	})

	t.Run("cancelled context stops the wait", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := awaitConfirm(ctx, make(chan amqp.Confirmation), 1)
		assert.Error(t, err)
	})
}
