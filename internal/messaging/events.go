package messaging

import (
	"encoding/json"
	"time"

	"github.com/rajivgeraev/bazar-api/internal/models"
)

// EventType определяет тип события realtime-канала
type EventType string

// События клиент → сервер
const (
	EventSendMessage EventType = "send_message"
	EventMarkAsRead  EventType = "mark_as_read"
	EventTypingStart EventType = "typing_start"
	EventTypingStop  EventType = "typing_stop"
	EventUserOnline  EventType = "user_online"
)

// События сервер → клиент
const (
	EventReceiveMessage    EventType = "receive_message"
	EventMessageSent       EventType = "message_sent"
	EventMessageError      EventType = "message_error"
	EventMessagesRead      EventType = "messages_read"
	EventUserTyping        EventType = "user_typing"
	EventUserStatusChange  EventType = "user_status_change"
	EventUnreadCountUpdate EventType = "unread_count_update"
)

// Event представляет сообщение realtime-канала
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEvent создает событие с сериализованной полезной нагрузкой
func NewEvent(eventType EventType, payload any) Event {
	data, _ := json.Marshal(payload)
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   data,
	}
}

// SendMessagePayload — полезная нагрузка события send_message
type SendMessagePayload struct {
	ReceiverID   string `json:"receiverId"`
	ProductID    string `json:"productId"`
	Content      string `json:"content"`
	ProductTitle string `json:"productTitle,omitempty"`
}

// MarkAsReadPayload — полезная нагрузка события mark_as_read
type MarkAsReadPayload struct {
	SenderID string `json:"senderId"`
}

// TypingPayload — полезная нагрузка событий typing_start и typing_stop
type TypingPayload struct {
	ReceiverID     string `json:"receiverId"`
	ConversationID string `json:"conversationId"`
}

// ReceiveMessagePayload — полезная нагрузка receive_message и message_sent
type ReceiveMessagePayload struct {
	Message     *models.Message `json:"message"`
	UnreadCount int64           `json:"unreadCount"`
}

// MessageErrorPayload — полезная нагрузка message_error
type MessageErrorPayload struct {
	Error string `json:"error"`
}

// MessagesReadPayload — полезная нагрузка messages_read
type MessagesReadPayload struct {
	ReadBy string `json:"readBy"`
}

// UserTypingPayload — полезная нагрузка user_typing
type UserTypingPayload struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
	IsTyping       bool   `json:"isTyping"`
}

// UserStatusChangePayload — полезная нагрузка user_status_change
type UserStatusChangePayload struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

// UnreadCountPayload — полезная нагрузка unread_count_update
type UnreadCountPayload struct {
	UnreadCount int64 `json:"unreadCount"`
}
