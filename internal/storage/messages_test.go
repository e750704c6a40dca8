package storage

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/rajivgeraev/bazar-api/internal/models"
)

func messageStore(t *testing.T) *MessageStore {
	db := testDatabase(t)
	return NewMessageStore(db.Collection("messages"), db.Collection("users"))
}

func TestCreateForcesUnread(t *testing.T) {
	store := messageStore(t)
	ctx := testContext(t)

	msg, err := store.Create(ctx, &models.Message{
		Sender:   bson.NewObjectID(),
		Receiver: bson.NewObjectID(),
		Product:  bson.NewObjectID(),
		Content:  "привет",
		IsRead:   true, // попытка создать прочитанное сообщение игнорируется
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	saved, err := store.GetByID(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if saved.IsRead {
		t.Error("новое сообщение всегда сохраняется непрочитанным")
	}
	if saved.CreatedAt.IsZero() {
		t.Error("CreatedAt должен проставляться при создании")
	}
}

func TestGetBetweenUsersOrderAndDirections(t *testing.T) {
	store := messageStore(t)
	ctx := testContext(t)

	userA := bson.NewObjectID()
	userB := bson.NewObjectID()
	outsider := bson.NewObjectID()
	product := bson.NewObjectID()

	for _, m := range []struct {
		sender, receiver bson.ObjectID
		content          string
	}{
		{userA, userB, "первое"},
		{userB, userA, "второе"},
		{userA, userB, "третье"},
		{userA, outsider, "постороннее"},
	} {
		if _, err := store.Create(ctx, &models.Message{
			Sender: m.sender, Receiver: m.receiver, Product: product, Content: m.content,
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}
		// Время в BSON хранится с точностью до миллисекунды,
		// разносим сообщения, чтобы порядок был детерминирован
		time.Sleep(5 * time.Millisecond)
	}

	page, err := store.GetBetweenUsers(ctx, userA, userB, 1, 50)
	if err != nil {
		t.Fatalf("GetBetweenUsers: %v", err)
	}

	if page.Total != 3 {
		t.Fatalf("в переписке должно быть 3 сообщения, получено %d", page.Total)
	}

	// Сообщения идут в хронологическом порядке, оба направления вместе
	want := []string{"первое", "второе", "третье"}
	for i, msg := range page.Messages {
		if msg.Content != want[i] {
			t.Errorf("позиция %d: ожидалось %q, получено %q", i, want[i], msg.Content)
		}
	}
}

func TestMarkAsReadAndUnreadCount(t *testing.T) {
	store := messageStore(t)
	ctx := testContext(t)

	userA := bson.NewObjectID()
	userB := bson.NewObjectID()
	product := bson.NewObjectID()

	for i := 0; i < 3; i++ {
		if _, err := store.Create(ctx, &models.Message{
			Sender: userA, Receiver: userB, Product: product, Content: "привет",
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	count, err := store.UnreadCount(ctx, userB)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 3 {
		t.Fatalf("ожидалось 3 непрочитанных, получено %d", count)
	}

	modified, err := store.MarkAsRead(ctx, userB, userA)
	if err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}
	if modified != 3 {
		t.Errorf("должно быть помечено 3 сообщения, получено %d", modified)
	}

	count, err = store.UnreadCount(ctx, userB)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 0 {
		t.Errorf("после прочтения счетчик должен быть 0, получено %d", count)
	}

	// Повторная пометка ничего не меняет
	modified, err = store.MarkAsRead(ctx, userB, userA)
	if err != nil {
		t.Fatalf("повторный MarkAsRead: %v", err)
	}
	if modified != 0 {
		t.Errorf("повторный вызов должен изменить 0 документов, получено %d", modified)
	}
}

func TestDeleteMessage(t *testing.T) {
	store := messageStore(t)
	ctx := testContext(t)

	msg, err := store.Create(ctx, &models.Message{
		Sender: bson.NewObjectID(), Receiver: bson.NewObjectID(),
		Product: bson.NewObjectID(), Content: "удалить",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.Delete(ctx, msg.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := store.GetByID(ctx, msg.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("удаленное сообщение не должно находиться, получено: %v", err)
	}

	if err := store.Delete(ctx, msg.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторное удаление должно вернуть ErrNotFound, получено: %v", err)
	}
}

func TestConversationsGrouping(t *testing.T) {
	store := messageStore(t)
	ctx := testContext(t)

	me := bson.NewObjectID()
	friend := bson.NewObjectID()
	stranger := bson.NewObjectID()
	product := bson.NewObjectID()

	// Переписка с friend: два входящих, одно исходящее
	seed := []struct {
		sender, receiver bson.ObjectID
		content          string
	}{
		{friend, me, "привет"},
		{me, friend, "здравствуй"},
		{friend, me, "как дела"},
		{stranger, me, "продается?"},
	}
	for _, m := range seed {
		if _, err := store.Create(ctx, &models.Message{
			Sender: m.sender, Receiver: m.receiver, Product: product, Content: m.content,
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	page, err := store.Conversations(ctx, me, 1, 20)
	if err != nil {
		t.Fatalf("Conversations: %v", err)
	}

	if len(page.Conversations) != 2 {
		t.Fatalf("ожидалось 2 переписки, получено %d", len(page.Conversations))
	}

	// Свежая переписка первой
	first := page.Conversations[0]
	if first.OtherUserID != stranger {
		t.Errorf("первой должна идти переписка со свежим сообщением")
	}
	if first.UnreadCount != 1 {
		t.Errorf("у переписки со stranger должно быть 1 непрочитанное, получено %d", first.UnreadCount)
	}

	second := page.Conversations[1]
	if second.OtherUserID != friend {
		t.Errorf("второй должна идти переписка с friend")
	}
	if second.UnreadCount != 2 {
		t.Errorf("у переписки с friend должно быть 2 непрочитанных, получено %d", second.UnreadCount)
	}
	if second.LastMessage == nil || second.LastMessage.Content != "как дела" {
		t.Error("lastMessage должен быть самым свежим сообщением переписки")
	}
}
