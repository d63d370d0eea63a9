package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	appkafka "example.com/engagefeed/internal/broker"
	"example.com/engagefeed/internal/models"
	"example.com/engagefeed/internal/store"
	"github.com/segmentio/kafka-go"
)

// runWorkerOnce processes a single Kafka message for testing.
func runWorkerOnce(ctx context.Context, w *Worker, kafkaReader appkafka.KafkaReader) error {
	msg, err := kafkaReader.ReadMessage(ctx)
	if err != nil {
		return err
	}
	if len(msg.Value) == 0 {
		return nil
	}

	var ev models.EngagementEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return err
	}

	return w.Process(ev)
}

func eventMessage(t *testing.T, ev models.EngagementEvent) kafka.Message {
	t.Helper()
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}
	return kafka.Message{Key: []byte(ev.Type), Value: data}
}

// ---------- Positive tests ----------

func TestWorker_LikeNotification(t *testing.T) {
	mockStore := store.NewMock()

	actorID, _ := mockStore.CreateUser("almaz", "hash")
	targetID, _ := mockStore.CreateUser("nur", "hash")

	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{eventMessage(t, models.EngagementEvent{
			Type:         models.EventLike,
			ActorID:      actorID,
			TargetUserID: targetID,
			PostID:       "p1",
			Created:      time.Now(),
		})},
	}

	w := New(mockStore, mockKafka, 1, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := runWorkerOnce(ctx, w, mockKafka); err != nil {
		t.Fatalf("worker failed: %v", err)
	}

	notifications, _ := mockStore.GetNotifications(targetID, 10)
	if len(notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifications))
	}
	if notifications[0].Message != "almaz liked your post" {
		t.Fatalf("unexpected message: %q", notifications[0].Message)
	}
	if notifications[0].PostID != "p1" {
		t.Fatalf("expected post reference p1, got %q", notifications[0].PostID)
	}
}

func TestWorker_FollowAndCommentNotifications(t *testing.T) {
	mockStore := store.NewMock()

	actorID, _ := mockStore.CreateUser("almaz", "hash")
	targetID, _ := mockStore.CreateUser("nur", "hash")

	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{
			eventMessage(t, models.EngagementEvent{
				Type: models.EventFollow, ActorID: actorID, TargetUserID: targetID, Created: time.Now(),
			}),
			eventMessage(t, models.EngagementEvent{
				Type: models.EventComment, ActorID: actorID, TargetUserID: targetID, PostID: "p1", Created: time.Now(),
			}),
		},
	}

	w := New(mockStore, mockKafka, 1, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 2; i++ {
		if err := runWorkerOnce(ctx, w, mockKafka); err != nil {
			t.Fatalf("worker failed on message %d: %v", i, err)
		}
	}

	notifications, _ := mockStore.GetNotifications(targetID, 10)
	if len(notifications) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notifications))
	}
}

// Engaging with your own content produces no notification
func TestWorker_SelfEngagementSkipped(t *testing.T) {
	mockStore := store.NewMock()
	actorID, _ := mockStore.CreateUser("almaz", "hash")

	w := New(mockStore, &appkafka.MockKafka{}, 1, 1)

	err := w.Process(models.EngagementEvent{
		Type:         models.EventLike,
		ActorID:      actorID,
		TargetUserID: actorID,
		PostID:       "p1",
	})
	if err != nil {
		t.Fatalf("expected self-engagement to be dropped silently, got: %v", err)
	}

	notifications, _ := mockStore.GetNotifications(actorID, 10)
	if len(notifications) != 0 {
		t.Fatalf("expected no notifications, got %d", len(notifications))
	}
}

func TestWorker_UnknownEventTypeSkipped(t *testing.T) {
	mockStore := store.NewMock()
	actorID, _ := mockStore.CreateUser("almaz", "hash")
	targetID, _ := mockStore.CreateUser("nur", "hash")

	w := New(mockStore, &appkafka.MockKafka{}, 1, 1)

	err := w.Process(models.EngagementEvent{
		Type:         "reshare",
		ActorID:      actorID,
		TargetUserID: targetID,
	})
	if err != nil {
		t.Fatalf("expected unknown type to be skipped, got: %v", err)
	}

	notifications, _ := mockStore.GetNotifications(targetID, 10)
	if len(notifications) != 0 {
		t.Fatalf("expected no notifications, got %d", len(notifications))
	}
}

// ---------- Negative tests ----------

// Simulate Kafka read error
func TestWorker_KafkaReadError(t *testing.T) {
	mockStore := store.NewMock()
	mockKafka := &appkafka.MockKafkaFail{}

	w := New(mockStore, mockKafka, 1, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := runWorkerOnce(ctx, w, mockKafka); err == nil {
		t.Fatalf("expected error from Kafka read")
	}
}

// Simulate invalid event JSON
func TestWorker_InvalidEventJSON(t *testing.T) {
	mockStore := store.NewMock()
	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{
			{Value: []byte("{invalid-json}")},
		},
	}

	w := New(mockStore, mockKafka, 1, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := runWorkerOnce(ctx, w, mockKafka); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}

// Simulate store failure when loading the actor
func TestWorker_StoreFailure(t *testing.T) {
	w := New(&store.MockStoreFail{}, &appkafka.MockKafka{}, 1, 1)

	err := w.Process(models.EngagementEvent{
		Type:         models.EventLike,
		ActorID:      "actor",
		TargetUserID: "target",
		PostID:       "p1",
	})
	if err == nil {
		t.Fatalf("expected error from store, got nil")
	}
}

func TestWorker_EmptyKafkaMessage(t *testing.T) {
	mockStore := store.NewMock()
	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{{Value: nil}},
	}

	w := New(mockStore, mockKafka, 1, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := runWorkerOnce(ctx, w, mockKafka); err != nil {
		t.Fatalf("expected no error for empty Kafka message, got: %v", err)
	}
}
