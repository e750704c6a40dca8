package messaging

import (
	"context"
	"log"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/rajivgeraev/bazar-api/internal/models"
	"github.com/rajivgeraev/bazar-api/internal/storage"
)

// Notifier доставляет события подключенным клиентам.
// Реализуется менеджером WebSocket-соединений.
type Notifier interface {
	SendToUser(userID string, event Event)
	Broadcast(event Event, excludeUserID string)
	IsOnline(userID string) bool
}

// MessageStore описывает операции хранилища сообщений, нужные движку доставки
type MessageStore interface {
	Create(ctx context.Context, msg *models.Message) (*models.Message, error)
	GetByID(ctx context.Context, id bson.ObjectID) (*models.Message, error)
	GetBetweenUsers(ctx context.Context, user1, user2 bson.ObjectID, page, limit int) (*storage.MessagePage, error)
	GetByProduct(ctx context.Context, productID bson.ObjectID, page, limit int) (*storage.MessagePage, error)
	Delete(ctx context.Context, id bson.ObjectID) error
	MarkAsRead(ctx context.Context, receiver, sender bson.ObjectID) (int64, error)
	UnreadCount(ctx context.Context, userID bson.ObjectID) (int64, error)
	Conversations(ctx context.Context, userID bson.ObjectID, page, limit int) (*storage.ConversationPage, error)
}

// UserStore описывает операции хранилища пользователей, нужные для статуса присутствия
type UserStore interface {
	SetOnlineStatus(ctx context.Context, id bson.ObjectID, online bool) error
}

// ValidationError описывает отсутствие обязательного поля запроса
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return "отсутствует обязательное поле: " + e.Field
}

// Service — движок доставки сообщений: сохранение, realtime-доставка
// подключенным получателям, уведомления о прочтении и статусе присутствия.
// Сохранение в базе первично, доставка — best-effort.
type Service struct {
	messages MessageStore
	users    UserStore
	notifier Notifier
}

// NewService создает новый экземпляр Service
func NewService(messages MessageStore, users UserStore, notifier Notifier) *Service {
	return &Service{messages: messages, users: users, notifier: notifier}
}

// SendMessageInput описывает данные нового сообщения
type SendMessageInput struct {
	Receiver     bson.ObjectID
	Product      bson.ObjectID
	Content      string
	ProductTitle string
}

// SendMessage сохраняет сообщение и доставляет его получателю, если тот подключен.
// Побочный эффект: все непрочитанные сообщения от получателя к отправителю
// помечаются прочитанными — ответ означает, что отправитель их видел.
// Ошибки доставки не прерывают операцию: сообщение уже сохранено.
func (s *Service) SendMessage(ctx context.Context, sender bson.ObjectID, in SendMessageInput) (*models.Message, error) {
	if in.Receiver.IsZero() {
		return nil, &ValidationError{Field: "receiver"}
	}
	if in.Product.IsZero() {
		return nil, &ValidationError{Field: "product"}
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, &ValidationError{Field: "content"}
	}

	msg := &models.Message{
		Sender:       sender,
		Receiver:     in.Receiver,
		Product:      in.Product,
		ProductTitle: in.ProductTitle,
		Content:      in.Content,
	}

	msg, err := s.messages.Create(ctx, msg)
	if err != nil {
		return nil, err
	}

	// Помечаем прочитанной предыдущую входящую часть переписки.
	// Отдельная запись без транзакции: при сбое сообщение уже сохранено,
	// а флаг прочтения — вспомогательное состояние интерфейса.
	if _, err := s.messages.MarkAsRead(ctx, sender, in.Receiver); err != nil {
		log.Printf("⚠️ Ошибка пометки переписки прочитанной: %v", err)
	}

	s.pushNewMessage(ctx, msg)

	return msg, nil
}

// pushNewMessage доставляет событие о новом сообщении получателю
// и подтверждение отправителю. Счетчики непрочитанных пересчитываются,
// чтобы клиенты получили актуальные значения.
func (s *Service) pushNewMessage(ctx context.Context, msg *models.Message) {
	receiverID := msg.Receiver.Hex()
	if s.notifier.IsOnline(receiverID) {
		count, err := s.messages.UnreadCount(ctx, msg.Receiver)
		if err != nil {
			log.Printf("⚠️ Ошибка подсчета непрочитанных получателя: %v", err)
		}
		s.notifier.SendToUser(receiverID, NewEvent(EventReceiveMessage, ReceiveMessagePayload{
			Message:     msg,
			UnreadCount: count,
		}))
	}

	// Подтверждение уходит во все вкладки отправителя
	senderID := msg.Sender.Hex()
	count, err := s.messages.UnreadCount(ctx, msg.Sender)
	if err != nil {
		log.Printf("⚠️ Ошибка подсчета непрочитанных отправителя: %v", err)
	}
	s.notifier.SendToUser(senderID, NewEvent(EventMessageSent, ReceiveMessagePayload{
		Message:     msg,
		UnreadCount: count,
	}))
}

// MarkAsRead помечает прочитанными все сообщения от otherParty к reader
// и уведомляет отправителя о прочтении, если он подключен.
// Повторный вызов без новых сообщений — не ошибка.
func (s *Service) MarkAsRead(ctx context.Context, reader, otherParty bson.ObjectID) (int64, error) {
	modified, err := s.messages.MarkAsRead(ctx, reader, otherParty)
	if err != nil {
		return 0, err
	}

	// Уведомление о прочтении — собеседнику
	otherID := otherParty.Hex()
	if s.notifier.IsOnline(otherID) {
		s.notifier.SendToUser(otherID, NewEvent(EventMessagesRead, MessagesReadPayload{
			ReadBy: reader.Hex(),
		}))
	}

	// Обновленный счетчик — самому читателю
	count, err := s.messages.UnreadCount(ctx, reader)
	if err != nil {
		log.Printf("⚠️ Ошибка подсчета непрочитанных: %v", err)
		return modified, nil
	}
	s.notifier.SendToUser(reader.Hex(), NewEvent(EventUnreadCountUpdate, UnreadCountPayload{
		UnreadCount: count,
	}))

	return modified, nil
}

// UnreadCount возвращает количество непрочитанных сообщений пользователя
func (s *Service) UnreadCount(ctx context.Context, userID bson.ObjectID) (int64, error) {
	return s.messages.UnreadCount(ctx, userID)
}

// MessagesBetween возвращает переписку двух пользователей
func (s *Service) MessagesBetween(ctx context.Context, user1, user2 bson.ObjectID, page, limit int) (*storage.MessagePage, error) {
	return s.messages.GetBetweenUsers(ctx, user1, user2, page, limit)
}

// MessagesByProduct возвращает сообщения по товару
func (s *Service) MessagesByProduct(ctx context.Context, productID bson.ObjectID, page, limit int) (*storage.MessagePage, error) {
	return s.messages.GetByProduct(ctx, productID, page, limit)
}

// DeleteMessage удаляет сообщение по ID
func (s *Service) DeleteMessage(ctx context.Context, id bson.ObjectID) error {
	return s.messages.Delete(ctx, id)
}

// Conversations возвращает переписки пользователя
func (s *Service) Conversations(ctx context.Context, userID bson.ObjectID, page, limit int) (*storage.ConversationPage, error) {
	return s.messages.Conversations(ctx, userID, page, limit)
}

// SetPresence сохраняет статус присутствия пользователя и рассылает
// событие user_status_change всем остальным подключенным клиентам
func (s *Service) SetPresence(ctx context.Context, userID bson.ObjectID, online bool) error {
	if err := s.users.SetOnlineStatus(ctx, userID, online); err != nil {
		return err
	}

	s.notifier.Broadcast(NewEvent(EventUserStatusChange, UserStatusChangePayload{
		UserID:   userID.Hex(),
		IsOnline: online,
	}), userID.Hex())

	return nil
}

// Typing пересылает индикатор набора текста собеседнику.
// Событие эфемерно и нигде не сохраняется.
func (s *Service) Typing(senderID, receiverID, conversationID string, isTyping bool) {
	if receiverID == "" || !s.notifier.IsOnline(receiverID) {
		return
	}
	s.notifier.SendToUser(receiverID, NewEvent(EventUserTyping, UserTypingPayload{
		UserID:         senderID,
		ConversationID: conversationID,
		IsTyping:       isTyping,
	}))
}
