package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/rajivgeraev/bazar-api/internal/models"
)

// ErrNotFound возвращается, когда документ не найден
var ErrNotFound = errors.New("документ не найден")

// MessageStore предоставляет операции с коллекцией сообщений
type MessageStore struct {
	coll  *mongo.Collection
	users *mongo.Collection
}

// NewMessageStore создает новый экземпляр MessageStore
func NewMessageStore(coll, users *mongo.Collection) *MessageStore {
	return &MessageStore{coll: coll, users: users}
}

// MessagePage представляет страницу сообщений
type MessagePage struct {
	Messages []*models.Message `json:"messages"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	Pages    int               `json:"pages"`
}

// Create сохраняет новое сообщение. Флаг isRead всегда false при создании.
func (s *MessageStore) Create(ctx context.Context, msg *models.Message) (*models.Message, error) {
	msg.IsRead = false
	msg.CreatedAt = time.Now()

	result, err := s.coll.InsertOne(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания сообщения: %w", err)
	}

	msg.ID = result.InsertedID.(bson.ObjectID)
	return msg, nil
}

// GetByID возвращает сообщение по ID
func (s *MessageStore) GetByID(ctx context.Context, id bson.ObjectID) (*models.Message, error) {
	var msg models.Message
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения сообщения: %w", err)
	}
	return &msg, nil
}

// GetBetweenUsers возвращает переписку двух пользователей,
// отсортированную по возрастанию времени создания
func (s *MessageStore) GetBetweenUsers(ctx context.Context, user1, user2 bson.ObjectID, page, limit int) (*MessagePage, error) {
	page, limit, skip := normalizePaging(page, limit, 50)

	filter := bson.M{
		"$or": bson.A{
			bson.M{"sender": user1, "receiver": user2},
			bson.M{"sender": user2, "receiver": user1},
		},
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса переписки: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []*models.Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("ошибка декодирования сообщений: %w", err)
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчета сообщений: %w", err)
	}

	if err := s.attachUserInfo(ctx, messages); err != nil {
		return nil, err
	}

	return &MessagePage{
		Messages: messages,
		Total:    total,
		Page:     page,
		Pages:    totalPages(total, limit),
	}, nil
}

// GetByProduct возвращает сообщения по конкретному товару
func (s *MessageStore) GetByProduct(ctx context.Context, productID bson.ObjectID, page, limit int) (*MessagePage, error) {
	page, limit, skip := normalizePaging(page, limit, 50)

	filter := bson.M{"product": productID}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса сообщений товара: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []*models.Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("ошибка декодирования сообщений: %w", err)
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчета сообщений: %w", err)
	}

	if err := s.attachUserInfo(ctx, messages); err != nil {
		return nil, err
	}

	return &MessagePage{
		Messages: messages,
		Total:    total,
		Page:     page,
		Pages:    totalPages(total, limit),
	}, nil
}

// Delete удаляет сообщение по ID
func (s *MessageStore) Delete(ctx context.Context, id bson.ObjectID) error {
	result, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("ошибка удаления сообщения: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAsRead помечает прочитанными все непрочитанные сообщения
// от sender к receiver и возвращает количество измененных документов.
// Повторный вызов без новых сообщений изменит ноль документов и не является ошибкой.
func (s *MessageStore) MarkAsRead(ctx context.Context, receiver, sender bson.ObjectID) (int64, error) {
	result, err := s.coll.UpdateMany(ctx,
		bson.M{"receiver": receiver, "sender": sender, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("ошибка пометки сообщений прочитанными: %w", err)
	}
	return result.ModifiedCount, nil
}

// UnreadCount возвращает количество непрочитанных сообщений пользователя
func (s *MessageStore) UnreadCount(ctx context.Context, userID bson.ObjectID) (int64, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{"receiver": userID, "isRead": false})
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета непрочитанных: %w", err)
	}
	return count, nil
}

// ConversationPage представляет страницу переписок
type ConversationPage struct {
	Conversations []*models.Conversation `json:"conversations"`
	Total         int                    `json:"total"`
	Page          int                    `json:"page"`
	Pages         int                    `json:"pages"`
}

// Conversations собирает список переписок пользователя: группировка по собеседнику,
// последнее сообщение и число непрочитанных в каждой группе
func (s *MessageStore) Conversations(ctx context.Context, userID bson.ObjectID, page, limit int) (*ConversationPage, error) {
	page, limit, skip := normalizePaging(page, limit, 20)

	pipeline := mongo.Pipeline{
		// Все сообщения, где пользователь отправитель или получатель
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "$or", Value: bson.A{
				bson.D{{Key: "sender", Value: userID}},
				bson.D{{Key: "receiver", Value: userID}},
			}},
		}}},

		// Сортируем по времени, чтобы $last в группе был самым свежим
		bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}}}},

		// Группируем по собеседнику
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$eq", Value: bson.A{"$sender", userID}}},
					"$receiver",
					"$sender",
				}},
			}},
			{Key: "lastMessage", Value: bson.D{{Key: "$last", Value: "$$ROOT"}}},
			{Key: "unreadCount", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$and", Value: bson.A{
						bson.D{{Key: "$eq", Value: bson.A{"$receiver", userID}}},
						bson.D{{Key: "$eq", Value: bson.A{"$isRead", false}}},
					}}},
					1,
					0,
				}},
			}}}},
		}}},

		// Свежие переписки первыми
		bson.D{{Key: "$sort", Value: bson.D{{Key: "lastMessage.createdAt", Value: -1}}}},

		bson.D{{Key: "$skip", Value: skip}},
		bson.D{{Key: "$limit", Value: limit}},

		// Подставляем данные собеседника
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "users"},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "otherUser"},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 1},
			{Key: "lastMessage", Value: 1},
			{Key: "unreadCount", Value: 1},
			{Key: "otherUser", Value: bson.D{{Key: "$arrayElemAt", Value: bson.A{"$otherUser", 0}}}},
		}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("ошибка агрегации переписок: %w", err)
	}
	defer cursor.Close(ctx)

	var conversations []*models.Conversation
	if err = cursor.All(ctx, &conversations); err != nil {
		return nil, fmt.Errorf("ошибка декодирования переписок: %w", err)
	}

	return &ConversationPage{
		Conversations: conversations,
		Total:         len(conversations),
		Page:          page,
		Pages:         totalPages(int64(len(conversations)), limit),
	}, nil
}

// attachUserInfo подставляет карточки отправителя и получателя в сообщения
func (s *MessageStore) attachUserInfo(ctx context.Context, messages []*models.Message) error {
	if len(messages) == 0 {
		return nil
	}

	// Собираем уникальные ID участников
	idSet := make(map[bson.ObjectID]struct{})
	for _, msg := range messages {
		idSet[msg.Sender] = struct{}{}
		idSet[msg.Receiver] = struct{}{}
	}
	ids := make([]bson.ObjectID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	cursor, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return fmt.Errorf("ошибка запроса участников: %w", err)
	}
	defer cursor.Close(ctx)

	var summaries []*models.UserSummary
	if err = cursor.All(ctx, &summaries); err != nil {
		return fmt.Errorf("ошибка декодирования участников: %w", err)
	}

	byID := make(map[bson.ObjectID]*models.UserSummary, len(summaries))
	for _, u := range summaries {
		byID[u.ID] = u
	}

	for _, msg := range messages {
		msg.SenderInfo = byID[msg.Sender]
		msg.ReceiverInfo = byID[msg.Receiver]
	}
	return nil
}

// normalizePaging приводит параметры пагинации к допустимым значениям
func normalizePaging(page, limit, defaultLimit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	return page, limit, (page - 1) * limit
}

// totalPages считает количество страниц
func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
