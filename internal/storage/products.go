package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/rajivgeraev/bazar-api/internal/models"
)

// ProductStore предоставляет операции с коллекцией товаров
type ProductStore struct {
	coll       *mongo.Collection
	categories *mongo.Collection
	users      *mongo.Collection
}

// NewProductStore создает новый экземпляр ProductStore
func NewProductStore(coll, categories, users *mongo.Collection) *ProductStore {
	return &ProductStore{coll: coll, categories: categories, users: users}
}

// Coords представляет координаты точки поиска
type Coords struct {
	Lat float64
	Lon float64
}

// SearchFilter описывает необязательные фильтры поиска товаров.
// Все заполненные поля объединяются по "И".
type SearchFilter struct {
	Category  *bson.ObjectID
	MinPrice  *float64
	MaxPrice  *float64
	Keywords  string // подстрока в названии или описании, без учета регистра
	City      string // точное совпадение с location.city
	Condition string
	Seller    *bson.ObjectID
	Coords    *Coords  // если заданы — поиск с ранжированием по расстоянию
	RadiusKm  *float64 // nil означает поиск без ограничения радиуса
}

// SearchOptions описывает параметры пагинации поиска
type SearchOptions struct {
	Page  int
	Limit int
}

// SearchResult представляет результат поиска товаров.
// Оба пути поиска (обычный и гео) возвращают одинаковую форму.
type SearchResult struct {
	Products []*models.Product `json:"products"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	Pages    int               `json:"pages"`
}

// Create сохраняет новый товар
func (s *ProductStore) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	if product.PostedAt.IsZero() {
		product.PostedAt = now
	}

	result, err := s.coll.InsertOne(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания товара: %w", err)
	}

	product.ID = result.InsertedID.(bson.ObjectID)
	return product, nil
}

// GetByID возвращает товар по ID с данными категории и продавца
func (s *ProductStore) GetByID(ctx context.Context, id bson.ObjectID) (*models.Product, error) {
	var product models.Product
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения товара: %w", err)
	}

	if err := s.attachRelated(ctx, []*models.Product{&product}); err != nil {
		return nil, err
	}
	return &product, nil
}

// Update обновляет поля товара и возвращает новую версию
func (s *ProductStore) Update(ctx context.Context, id bson.ObjectID, update bson.M) (*models.Product, error) {
	update["updatedAt"] = time.Now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var product models.Product
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": update},
		opts,
	).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления товара: %w", err)
	}
	return &product, nil
}

// Delete удаляет товар по ID и возвращает удаленный документ
// (нужен вызывающему для очистки изображений)
func (s *ProductStore) Delete(ctx context.Context, id bson.ObjectID) (*models.Product, error) {
	var product models.Product
	err := s.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка удаления товара: %w", err)
	}
	return &product, nil
}

// IncrementViews увеличивает счетчик просмотров товара
func (s *ProductStore) IncrementViews(ctx context.Context, id bson.ObjectID) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views": 1}})
	if err != nil {
		return fmt.Errorf("ошибка обновления просмотров: %w", err)
	}
	return nil
}

// MarkAsSold помечает товар проданным
func (s *ProductStore) MarkAsSold(ctx context.Context, id bson.ObjectID) (*models.Product, error) {
	return s.Update(ctx, id, bson.M{"status": models.ProductStatusSold})
}

// GetBySeller возвращает товары продавца, новые первыми
func (s *ProductStore) GetBySeller(ctx context.Context, sellerID bson.ObjectID, opts SearchOptions) (*SearchResult, error) {
	page, limit, skip := normalizePaging(opts.Page, opts.Limit, 20)

	filter := bson.M{"seller": sellerID}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cursor, err := s.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса товаров продавца: %w", err)
	}
	defer cursor.Close(ctx)

	var products []*models.Product
	if err = cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("ошибка декодирования товаров: %w", err)
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчета товаров: %w", err)
	}

	if err := s.attachRelated(ctx, products); err != nil {
		return nil, err
	}

	return &SearchResult{Products: products, Total: total, Page: page, Pages: totalPages(total, limit)}, nil
}

// Search выполняет поиск товаров. Если заданы координаты, используется
// гео-путь с ранжированием по расстоянию, иначе обычный индексированный запрос.
// Непубличные товары (не approved) исключаются всегда.
func (s *ProductStore) Search(ctx context.Context, filter SearchFilter, opts SearchOptions) (*SearchResult, error) {
	page, limit, skip := normalizePaging(opts.Page, opts.Limit, 20)

	query := s.buildQuery(filter)

	if filter.Coords == nil {
		return s.searchPlain(ctx, query, page, limit, skip)
	}
	return s.searchGeo(ctx, filter, query, page, limit, skip)
}

// buildQuery собирает предикат из заполненных полей фильтра.
// Базовое условие status=approved применяется безусловно.
func (s *ProductStore) buildQuery(filter SearchFilter) bson.M {
	query := bson.M{"status": models.ProductStatusApproved}

	if filter.Category != nil {
		query["category"] = *filter.Category
	}
	if filter.MinPrice != nil || filter.MaxPrice != nil {
		price := bson.M{}
		if filter.MinPrice != nil {
			price["$gte"] = *filter.MinPrice
		}
		if filter.MaxPrice != nil {
			price["$lte"] = *filter.MaxPrice
		}
		query["price"] = price
	}
	if filter.Keywords != "" {
		// Запрос пользователя — обычный текст, а не регулярное выражение
		pattern := regexp.QuoteMeta(filter.Keywords)
		query["$or"] = bson.A{
			bson.M{"title": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"description": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}
	if filter.City != "" {
		query["location.city"] = filter.City
	}
	if filter.Condition != "" {
		query["condition"] = filter.Condition
	}
	if filter.Seller != nil {
		query["seller"] = *filter.Seller
	}

	return query
}

// searchPlain — обычный путь без координат: один запрос с фильтром,
// сортировка по убыванию даты создания
func (s *ProductStore) searchPlain(ctx context.Context, query bson.M, page, limit, skip int) (*SearchResult, error) {
	findOpts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cursor, err := s.coll.Find(ctx, query, findOpts)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска товаров: %w", err)
	}
	defer cursor.Close(ctx)

	var products []*models.Product
	if err = cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("ошибка декодирования товаров: %w", err)
	}

	total, err := s.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчета товаров: %w", err)
	}

	if err := s.attachRelated(ctx, products); err != nil {
		return nil, err
	}

	return &SearchResult{Products: products, Total: total, Page: page, Pages: totalPages(total, limit)}, nil
}

// searchGeo — гео-путь: $geoNear считает сферическое расстояние от точки поиска,
// ближние товары идут первыми, при равном расстоянии новые первыми
func (s *ProductStore) searchGeo(ctx context.Context, filter SearchFilter, query bson.M, page, limit, skip int) (*SearchResult, error) {
	geoStage := s.geoNearStage(filter)

	pipeline := mongo.Pipeline{
		geoStage,
		bson.D{{Key: "$match", Value: query}},
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "distance", Value: 1},
			{Key: "createdAt", Value: -1},
		}}},
		bson.D{{Key: "$skip", Value: skip}},
		bson.D{{Key: "$limit", Value: limit}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("ошибка гео-поиска товаров: %w", err)
	}
	defer cursor.Close(ctx)

	var products []*models.Product
	if err = cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("ошибка декодирования товаров: %w", err)
	}

	// Общее количество считаем тем же конвейером без пагинации
	countPipeline := mongo.Pipeline{
		geoStage,
		bson.D{{Key: "$match", Value: query}},
		bson.D{{Key: "$count", Value: "total"}},
	}

	countCursor, err := s.coll.Aggregate(ctx, countPipeline)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчета гео-поиска: %w", err)
	}
	defer countCursor.Close(ctx)

	var countDocs []struct {
		Total int64 `bson:"total"`
	}
	if err = countCursor.All(ctx, &countDocs); err != nil {
		return nil, fmt.Errorf("ошибка декодирования подсчета: %w", err)
	}

	var total int64
	if len(countDocs) > 0 {
		total = countDocs[0].Total
	}

	if err := s.attachRelated(ctx, products); err != nil {
		return nil, err
	}

	return &SearchResult{Products: products, Total: total, Page: page, Pages: totalPages(total, limit)}, nil
}

// geoNearStage собирает стадию $geoNear: сферическое расстояние от точки поиска
// по индексу location.geo, радиус в километрах переводится в метры
func (s *ProductStore) geoNearStage(filter SearchFilter) bson.D {
	near := bson.D{
		{Key: "near", Value: bson.D{
			{Key: "type", Value: "Point"},
			{Key: "coordinates", Value: bson.A{filter.Coords.Lon, filter.Coords.Lat}},
		}},
		{Key: "distanceField", Value: "distance"},
		{Key: "key", Value: "location.geo"},
		{Key: "spherical", Value: true},
	}
	if filter.RadiusKm != nil {
		near = append(near, bson.E{Key: "maxDistance", Value: *filter.RadiusKm * 1000})
	}
	return bson.D{{Key: "$geoNear", Value: near}}
}

// attachRelated подставляет категорию и карточку продавца в товары
func (s *ProductStore) attachRelated(ctx context.Context, products []*models.Product) error {
	if len(products) == 0 {
		return nil
	}

	categoryIDs := make(map[bson.ObjectID]struct{})
	sellerIDs := make(map[bson.ObjectID]struct{})
	for _, p := range products {
		categoryIDs[p.Category] = struct{}{}
		sellerIDs[p.Seller] = struct{}{}
	}

	categories, err := s.loadCategories(ctx, keys(categoryIDs))
	if err != nil {
		return err
	}

	sellers, err := s.loadSellers(ctx, keys(sellerIDs))
	if err != nil {
		return err
	}

	for _, p := range products {
		p.CategoryInfo = categories[p.Category]
		p.SellerInfo = sellers[p.Seller]
	}
	return nil
}

func (s *ProductStore) loadCategories(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]*models.Category, error) {
	cursor, err := s.categories.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса категорий: %w", err)
	}
	defer cursor.Close(ctx)

	var categories []*models.Category
	if err = cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("ошибка декодирования категорий: %w", err)
	}

	byID := make(map[bson.ObjectID]*models.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	return byID, nil
}

func (s *ProductStore) loadSellers(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]*models.UserSummary, error) {
	cursor, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса продавцов: %w", err)
	}
	defer cursor.Close(ctx)

	var sellers []*models.UserSummary
	if err = cursor.All(ctx, &sellers); err != nil {
		return nil, fmt.Errorf("ошибка декодирования продавцов: %w", err)
	}

	byID := make(map[bson.ObjectID]*models.UserSummary, len(sellers))
	for _, u := range sellers {
		byID[u.ID] = u
	}
	return byID, nil
}

func keys(set map[bson.ObjectID]struct{}) []bson.ObjectID {
	ids := make([]bson.ObjectID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}
