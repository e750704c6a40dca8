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

// ErrDuplicate возвращается при нарушении уникального индекса
var ErrDuplicate = errors.New("документ уже существует")

// UserStore предоставляет операции с коллекцией пользователей
type UserStore struct {
	coll *mongo.Collection
}

// NewUserStore создает новый экземпляр UserStore
func NewUserStore(coll *mongo.Collection) *UserStore {
	return &UserStore{coll: coll}
}

// Create сохраняет нового пользователя
func (s *UserStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.LastSeen = now
	if user.Role == "" {
		user.Role = "user"
	}

	result, err := s.coll.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пользователя: %w", err)
	}

	user.ID = result.InsertedID.(bson.ObjectID)
	return user, nil
}

// GetByID возвращает пользователя по ID
func (s *UserStore) GetByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	var user models.User
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return &user, nil
}

// GetByEmail возвращает пользователя по email
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return &user, nil
}

// UpdateProfile обновляет поля профиля и возвращает новую версию
func (s *UserStore) UpdateProfile(ctx context.Context, id bson.ObjectID, update bson.M) (*models.User, error) {
	update["updatedAt"] = time.Now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.User
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": update},
		opts,
	).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления профиля: %w", err)
	}
	return &user, nil
}

// SetOnlineStatus сохраняет статус присутствия пользователя
// и обновляет отметку lastSeen
func (s *UserStore) SetOnlineStatus(ctx context.Context, id bson.ObjectID, online bool) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isOnline": online, "lastSeen": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса присутствия: %w", err)
	}
	return nil
}
