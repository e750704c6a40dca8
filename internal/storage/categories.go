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

// CategoryStore предоставляет операции с коллекцией категорий
type CategoryStore struct {
	coll *mongo.Collection
}

// NewCategoryStore создает новый экземпляр CategoryStore
func NewCategoryStore(coll *mongo.Collection) *CategoryStore {
	return &CategoryStore{coll: coll}
}

// Create сохраняет новую категорию
func (s *CategoryStore) Create(ctx context.Context, category *models.Category) (*models.Category, error) {
	now := time.Now()
	category.CreatedAt = now
	category.UpdatedAt = now
	category.IsActive = true

	result, err := s.coll.InsertOne(ctx, category)
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка создания категории: %w", err)
	}

	category.ID = result.InsertedID.(bson.ObjectID)
	return category, nil
}

// List возвращает активные категории в заданном порядке
func (s *CategoryStore) List(ctx context.Context) ([]*models.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "name", Value: 1}})

	cursor, err := s.coll.Find(ctx, bson.M{"isActive": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса категорий: %w", err)
	}
	defer cursor.Close(ctx)

	var categories []*models.Category
	if err = cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("ошибка декодирования категорий: %w", err)
	}
	return categories, nil
}

// GetBySlug возвращает категорию по slug
func (s *CategoryStore) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	err := s.coll.FindOne(ctx, bson.M{"slug": slug}).Decode(&category)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения категории: %w", err)
	}
	return &category, nil
}
