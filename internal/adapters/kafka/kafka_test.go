package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"chat-realtime/internal/models"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishMessageEvent(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	pub := NewEventPublisher(producer, "chat.message-events")

	event := models.MessageEvent{
		Kind:      models.MessageEventStatus,
		ChatID:    42,
		MessageID: 7,
		SenderID:  1,
		Status:    models.MessageStatusRead,
		At:        time.Unix(1700000000, 0).UTC(),
	}

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "chat.message-events" {
			return errors.New("wrong topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "42" {
			return errors.New("wrong key " + string(key))
		}
		raw, _ := msg.Value.Encode()
		var got models.MessageEvent
		if err := json.Unmarshal(raw, &got); err != nil {
			return err
		}
		if got.MessageID != 7 || got.Status != models.MessageStatusRead {
			return errors.New("unexpected payload")
		}
		return nil
	})

	require.NoError(t, pub.PublishMessageEvent(context.Background(), event))
	require.NoError(t, pub.Close())
}

func TestPublishMessageEventFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	pub := NewEventPublisher(producer, "events")

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	err := pub.PublishMessageEvent(context.Background(), models.MessageEvent{Kind: models.MessageEventCreated, ChatID: 1})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, pub.Close())
}

func TestPublishMessageEventCancelledContext(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	pub := NewEventPublisher(producer, "events")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pub.PublishMessageEvent(ctx, models.MessageEvent{}), context.Canceled)
	require.NoError(t, pub.Close())
}
