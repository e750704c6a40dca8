package websocket

import (
	"encoding/json"
	"testing"

	"github.com/rajivgeraev/bazar-api/internal/messaging"
)

// testClient создает клиента без сетевого соединения —
// для проверки реестра достаточно очереди отправки
func testClient(m *Manager, userID string) *Client {
	return NewClient(userID, nil, m, nil)
}

func TestIsOnlineAfterConnect(t *testing.T) {
	m := NewManager()

	if m.IsOnline("user1") {
		t.Error("пользователь не должен быть онлайн до подключения")
	}

	c := testClient(m, "user1")
	m.AddClient(c)

	if !m.IsOnline("user1") {
		t.Error("пользователь должен быть онлайн после подключения")
	}
}

func TestRemoveClientLastConnection(t *testing.T) {
	m := NewManager()

	c1 := testClient(m, "user1")
	c2 := testClient(m, "user1")
	m.AddClient(c1)
	m.AddClient(c2)

	// После закрытия одной из двух вкладок пользователь остается онлайн
	if wasLast := m.RemoveClient(c1.ID); wasLast {
		t.Error("первое из двух соединений не должно считаться последним")
	}
	if !m.IsOnline("user1") {
		t.Error("пользователь с оставшимся соединением должен быть онлайн")
	}

	// Закрытие последнего соединения переводит пользователя в оффлайн
	if wasLast := m.RemoveClient(c2.ID); !wasLast {
		t.Error("последнее соединение должно быть помечено как последнее")
	}
	if m.IsOnline("user1") {
		t.Error("пользователь без соединений не должен быть онлайн")
	}
}

func TestRemoveUnknownClient(t *testing.T) {
	m := NewManager()
	c := testClient(m, "user1")

	if wasLast := m.RemoveClient(c.ID); wasLast {
		t.Error("удаление незарегистрированного клиента не должно считаться последним")
	}
}

func TestSendToUserDeliversToAllConnections(t *testing.T) {
	m := NewManager()

	c1 := testClient(m, "user1")
	c2 := testClient(m, "user1")
	other := testClient(m, "user2")
	m.AddClient(c1)
	m.AddClient(c2)
	m.AddClient(other)

	event := messaging.NewEvent(messaging.EventUnreadCountUpdate, messaging.UnreadCountPayload{UnreadCount: 3})
	m.SendToUser("user1", event)

	for _, c := range []*Client{c1, c2} {
		select {
		case raw := <-c.send:
			var got messaging.Event
			if err := json.Unmarshal(raw, &got); err != nil {
				t.Fatalf("ошибка разбора события: %v", err)
			}
			if got.Type != messaging.EventUnreadCountUpdate {
				t.Errorf("ожидался тип %s, получен %s", messaging.EventUnreadCountUpdate, got.Type)
			}
		default:
			t.Error("событие не доставлено на соединение пользователя")
		}
	}

	select {
	case <-other.send:
		t.Error("событие не должно доставляться другому пользователю")
	default:
	}
}

func TestSendToOfflineUserIsNoop(t *testing.T) {
	m := NewManager()
	// Доставка несуществующему пользователю не должна паниковать
	m.SendToUser("ghost", messaging.NewEvent(messaging.EventMessagesRead, messaging.MessagesReadPayload{ReadBy: "x"}))
}

func TestBroadcastExcludesUser(t *testing.T) {
	m := NewManager()

	sender := testClient(m, "user1")
	receiver := testClient(m, "user2")
	m.AddClient(sender)
	m.AddClient(receiver)

	event := messaging.NewEvent(messaging.EventUserStatusChange, messaging.UserStatusChangePayload{
		UserID:   "user1",
		IsOnline: true,
	})
	m.Broadcast(event, "user1")

	select {
	case <-receiver.send:
	default:
		t.Error("остальные пользователи должны получить событие")
	}

	select {
	case <-sender.send:
		t.Error("исключенный пользователь не должен получить событие")
	default:
	}
}

func TestOverflowLeavesTeardownAuthoritative(t *testing.T) {
	m := NewManager()
	c := testClient(m, "user1")
	m.AddClient(c)

	// Забиваем очередь отправки до отказа
	for i := 0; i < sendBufferSize; i++ {
		c.send <- []byte("{}")
	}

	// Переполнение закрывает соединение, но клиент остается на учете
	m.SendToUser("user1", messaging.NewEvent(messaging.EventUnreadCountUpdate, messaging.UnreadCountPayload{UnreadCount: 1}))

	if !m.IsOnline("user1") {
		t.Fatal("до завершения readPump клиент должен числиться в реестре")
	}

	// Завершение readPump снимает клиента с учета и видит,
	// что это было последнее соединение — иначе переход в оффлайн
	// не сохранился бы и не был разослан
	if wasLast := m.RemoveClient(c.ID); !wasLast {
		t.Error("teardown должен увидеть последнее соединение пользователя")
	}
	if m.IsOnline("user1") {
		t.Error("после teardown пользователь не должен быть онлайн")
	}
}

func TestShutdownClearsRegistry(t *testing.T) {
	m := NewManager()
	m.AddClient(testClient(m, "user1"))
	m.AddClient(testClient(m, "user2"))

	m.Shutdown()

	if m.IsOnline("user1") || m.IsOnline("user2") {
		t.Error("после Shutdown реестр должен быть пуст")
	}
}
