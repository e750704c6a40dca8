package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/rajivgeraev/bazar-api/internal/models"
)

// FavoriteStore предоставляет операции с коллекцией избранного
type FavoriteStore struct {
	coll     *mongo.Collection
	products *mongo.Collection
}

// NewFavoriteStore создает новый экземпляр FavoriteStore
func NewFavoriteStore(coll, products *mongo.Collection) *FavoriteStore {
	return &FavoriteStore{coll: coll, products: products}
}

// Add добавляет товар в избранное. Пара пользователь+товар уникальна.
func (s *FavoriteStore) Add(ctx context.Context, userID, productID bson.ObjectID) (*models.Favorite, error) {
	now := time.Now()
	favorite := &models.Favorite{
		User:      userID,
		Product:   productID,
		AddedAt:   now,
		CreatedAt: now,
	}

	result, err := s.coll.InsertOne(ctx, favorite)
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка добавления в избранное: %w", err)
	}

	favorite.ID = result.InsertedID.(bson.ObjectID)
	return favorite, nil
}

// Remove удаляет товар из избранного пользователя
func (s *FavoriteStore) Remove(ctx context.Context, userID, productID bson.ObjectID) error {
	result, err := s.coll.DeleteOne(ctx, bson.M{"user": userID, "product": productID})
	if err != nil {
		return fmt.Errorf("ошибка удаления из избранного: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Exists проверяет, находится ли товар в избранном пользователя
func (s *FavoriteStore) Exists(ctx context.Context, userID, productID bson.ObjectID) (bool, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{"user": userID, "product": productID})
	if err != nil {
		return false, fmt.Errorf("ошибка проверки избранного: %w", err)
	}
	return count > 0, nil
}

// List возвращает избранные товары пользователя, свежие первыми
func (s *FavoriteStore) List(ctx context.Context, userID bson.ObjectID, page, limit int) ([]*models.Favorite, int64, error) {
	_, limit, skip := normalizePaging(page, limit, 20)

	filter := bson.M{"user": userID}

	opts := options.Find().
		SetSort(bson.D{{Key: "addedAt", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка запроса избранного: %w", err)
	}
	defer cursor.Close(ctx)

	var favorites []*models.Favorite
	if err = cursor.All(ctx, &favorites); err != nil {
		return nil, 0, fmt.Errorf("ошибка декодирования избранного: %w", err)
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчета избранного: %w", err)
	}

	// Подставляем товары
	if len(favorites) > 0 {
		ids := make([]bson.ObjectID, 0, len(favorites))
		for _, f := range favorites {
			ids = append(ids, f.Product)
		}

		prodCursor, err := s.products.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return nil, 0, fmt.Errorf("ошибка запроса товаров избранного: %w", err)
		}
		defer prodCursor.Close(ctx)

		var products []*models.Product
		if err = prodCursor.All(ctx, &products); err != nil {
			return nil, 0, fmt.Errorf("ошибка декодирования товаров: %w", err)
		}

		byID := make(map[bson.ObjectID]*models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}
		for _, f := range favorites {
			f.ProductInfo = byID[f.Product]
		}
	}

	return favorites, total, nil
}
