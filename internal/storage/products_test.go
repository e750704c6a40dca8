package storage

import (
	"regexp"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/rajivgeraev/bazar-api/internal/models"
)

// Координаты для гео-тестов: точка поиска в центре Лимасола
// и товары на известном удалении от нее.
const (
	searchLat = 34.7071
	searchLon = 33.0226
)

func productStore(t *testing.T) *ProductStore {
	db := testDatabase(t)

	ctx := testContext(t)
	_, err := db.Collection("products").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "location.geo", Value: "2dsphere"}},
	})
	if err != nil {
		t.Fatalf("ошибка создания гео-индекса: %v", err)
	}

	return NewProductStore(db.Collection("products"), db.Collection("categories"), db.Collection("users"))
}

func seedProduct(t *testing.T, store *ProductStore, p *models.Product) *models.Product {
	t.Helper()
	if p.Status == "" {
		p.Status = models.ProductStatusApproved
	}
	created, err := store.Create(testContext(t), p)
	if err != nil {
		t.Fatalf("ошибка создания товара: %v", err)
	}
	return created
}

func TestSearchApprovedOnly(t *testing.T) {
	store := productStore(t)
	ctx := testContext(t)

	category := bson.NewObjectID()
	seller := bson.NewObjectID()

	seedProduct(t, store, &models.Product{Title: "опубликованный", Category: category, Seller: seller, Status: models.ProductStatusApproved})
	seedProduct(t, store, &models.Product{Title: "на модерации", Category: category, Seller: seller, Status: models.ProductStatusPending})
	seedProduct(t, store, &models.Product{Title: "отклоненный", Category: category, Seller: seller, Status: models.ProductStatusRejected})
	seedProduct(t, store, &models.Product{Title: "проданный", Category: category, Seller: seller, Status: models.ProductStatusSold})

	result, err := store.Search(ctx, SearchFilter{}, SearchOptions{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if result.Total != 1 {
		t.Fatalf("поиск должен видеть только approved, получено %d", result.Total)
	}
	if result.Products[0].Title != "опубликованный" {
		t.Errorf("найден не тот товар: %s", result.Products[0].Title)
	}
}

func TestSearchFilters(t *testing.T) {
	store := productStore(t)
	ctx := testContext(t)

	electronics := bson.NewObjectID()
	furniture := bson.NewObjectID()
	seller := bson.NewObjectID()

	seedProduct(t, store, &models.Product{Title: "Ноутбук Lenovo", Price: 500, Category: electronics, Seller: seller, Condition: models.ConditionUsed})
	seedProduct(t, store, &models.Product{Title: "Телефон", Price: 900, Category: electronics, Seller: seller, Condition: models.ConditionNew})
	seedProduct(t, store, &models.Product{Title: "Диван", Price: 300, Category: furniture, Seller: seller, Condition: models.ConditionUsed})

	minPrice, maxPrice := 400.0, 1000.0
	result, err := store.Search(ctx, SearchFilter{
		Category: &electronics,
		MinPrice: &minPrice,
		MaxPrice: &maxPrice,
	}, SearchOptions{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Total != 2 {
		t.Errorf("фильтр категория+цена должен найти 2 товара, получено %d", result.Total)
	}

	// Подстрока в названии без учета регистра
	result, err = store.Search(ctx, SearchFilter{Keywords: "ноутбук"}, SearchOptions{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Total != 1 {
		t.Errorf("поиск по ключевому слову должен найти 1 товар, получено %d", result.Total)
	}

	result, err = store.Search(ctx, SearchFilter{Condition: models.ConditionUsed}, SearchOptions{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Total != 2 {
		t.Errorf("фильтр по состоянию должен найти 2 товара, получено %d", result.Total)
	}

	// Спецсимволы регулярных выражений в запросе — обычный текст
	result, err = store.Search(ctx, SearchFilter{Keywords: "(Lenovo"}, SearchOptions{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("поиск со спецсимволами не должен падать: %v", err)
	}
	if result.Total != 0 {
		t.Errorf("подстрока с открытой скобкой не встречается в товарах, получено %d", result.Total)
	}
}

func TestBuildQueryEscapesKeywords(t *testing.T) {
	store := &ProductStore{}

	query := store.buildQuery(SearchFilter{Keywords: "цена (торг)"})

	or, ok := query["$or"].(bson.A)
	if !ok || len(or) != 2 {
		t.Fatal("фильтр по ключевым словам должен искать в названии и описании")
	}

	title := or[0].(bson.M)["title"].(bson.M)
	if title["$regex"] != regexp.QuoteMeta("цена (торг)") {
		t.Errorf("спецсимволы должны экранироваться, получено %v", title["$regex"])
	}
	if title["$options"] != "i" {
		t.Error("поиск по подстроке должен быть без учета регистра")
	}
}

func TestGeoSearchOrderedByDistance(t *testing.T) {
	store := productStore(t)
	ctx := testContext(t)

	category := bson.NewObjectID()
	seller := bson.NewObjectID()

	// Товары на возрастающем удалении от точки поиска
	near := seedProduct(t, store, &models.Product{
		Title: "рядом", Category: category, Seller: seller,
		Location: models.Location{Geo: models.NewGeoPoint(searchLat+0.001, searchLon)},
	})
	middle := seedProduct(t, store, &models.Product{
		Title: "подальше", Category: category, Seller: seller,
		Location: models.Location{Geo: models.NewGeoPoint(searchLat+0.05, searchLon)},
	})
	far := seedProduct(t, store, &models.Product{
		Title: "далеко", Category: category, Seller: seller,
		Location: models.Location{Geo: models.NewGeoPoint(searchLat+0.5, searchLon)},
	})

	result, err := store.Search(ctx, SearchFilter{
		Coords: &Coords{Lat: searchLat, Lon: searchLon},
	}, SearchOptions{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if result.Total != 3 {
		t.Fatalf("гео-поиск без радиуса должен найти все 3 товара, получено %d", result.Total)
	}

	wantOrder := []bson.ObjectID{near.ID, middle.ID, far.ID}
	for i, p := range result.Products {
		if p.ID != wantOrder[i] {
			t.Errorf("позиция %d: товары должны идти по возрастанию расстояния", i)
		}
		if p.Distance == nil {
			t.Errorf("позиция %d: в гео-поиске расстояние должно заполняться", i)
		}
	}

	// Расстояния неубывающие
	for i := 1; i < len(result.Products); i++ {
		prev, cur := result.Products[i-1].Distance, result.Products[i].Distance
		if prev != nil && cur != nil && *cur < *prev {
			t.Errorf("расстояние на позиции %d меньше предыдущего", i)
		}
	}
}

func TestGeoSearchRadiusBound(t *testing.T) {
	store := productStore(t)
	ctx := testContext(t)

	category := bson.NewObjectID()
	seller := bson.NewObjectID()

	seedProduct(t, store, &models.Product{
		Title: "в радиусе", Category: category, Seller: seller,
		// ~1.1 км к северу
		Location: models.Location{Geo: models.NewGeoPoint(searchLat+0.01, searchLon)},
	})
	seedProduct(t, store, &models.Product{
		Title: "за радиусом", Category: category, Seller: seller,
		// ~55 км к северу
		Location: models.Location{Geo: models.NewGeoPoint(searchLat+0.5, searchLon)},
	})

	radius := 5.0
	result, err := store.Search(ctx, SearchFilter{
		Coords:   &Coords{Lat: searchLat, Lon: searchLon},
		RadiusKm: &radius,
	}, SearchOptions{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if result.Total != 1 {
		t.Fatalf("в радиусе 5 км должен быть 1 товар, получено %d", result.Total)
	}
	if result.Products[0].Title != "в радиусе" {
		t.Errorf("найден не тот товар: %s", result.Products[0].Title)
	}
	if d := result.Products[0].Distance; d == nil || *d > 5000 {
		t.Error("расстояние найденного товара должно быть в пределах радиуса в метрах")
	}
}

func TestGeoAndPlainSearchSameSet(t *testing.T) {
	store := productStore(t)
	ctx := testContext(t)

	category := bson.NewObjectID()
	seller := bson.NewObjectID()

	for i := 0; i < 3; i++ {
		seedProduct(t, store, &models.Product{
			Title: "товар", Category: category, Seller: seller,
			Location: models.Location{Geo: models.NewGeoPoint(searchLat+float64(i)*0.01, searchLon)},
		})
	}

	plain, err := store.Search(ctx, SearchFilter{Category: &category}, SearchOptions{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("обычный Search: %v", err)
	}

	geo, err := store.Search(ctx, SearchFilter{
		Category: &category,
		Coords:   &Coords{Lat: searchLat, Lon: searchLon},
	}, SearchOptions{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("гео Search: %v", err)
	}

	// Оба пути видят одно и то же множество, различается только порядок
	if plain.Total != geo.Total {
		t.Errorf("обычный и гео-поиск должны возвращать одинаковый total: %d != %d", plain.Total, geo.Total)
	}

	plainIDs := make(map[bson.ObjectID]bool)
	for _, p := range plain.Products {
		plainIDs[p.ID] = true
	}
	for _, p := range geo.Products {
		if !plainIDs[p.ID] {
			t.Errorf("товар %s найден гео-поиском, но не обычным", p.ID.Hex())
		}
	}
}

func TestUpdateAndMarkAsSold(t *testing.T) {
	store := productStore(t)
	ctx := testContext(t)

	p := seedProduct(t, store, &models.Product{
		Title: "велосипед", Price: 150,
		Category: bson.NewObjectID(), Seller: bson.NewObjectID(),
	})

	updated, err := store.Update(ctx, p.ID, bson.M{"price": 120.0})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Price != 120 {
		t.Errorf("цена должна обновиться до 120, получено %v", updated.Price)
	}

	sold, err := store.MarkAsSold(ctx, p.ID)
	if err != nil {
		t.Fatalf("MarkAsSold: %v", err)
	}
	if sold.Status != models.ProductStatusSold {
		t.Errorf("статус должен быть sold, получено %s", sold.Status)
	}

	// Проданный товар пропадает из поиска
	result, err := store.Search(ctx, SearchFilter{}, SearchOptions{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Total != 0 {
		t.Errorf("проданный товар не должен находиться поиском, получено %d", result.Total)
	}
}

func TestDeleteReturnsDocument(t *testing.T) {
	store := productStore(t)
	ctx := testContext(t)

	p := seedProduct(t, store, &models.Product{
		Title:    "с картинками",
		Category: bson.NewObjectID(), Seller: bson.NewObjectID(),
		Images: []models.ProductImage{{URL: "https://example.com/1.jpg", PublicID: "bazar/p1"}},
	})

	deleted, err := store.Delete(ctx, p.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(deleted.Images) != 1 || deleted.Images[0].PublicID != "bazar/p1" {
		t.Error("удаление должно возвращать документ с изображениями для очистки")
	}

	if _, err := store.GetByID(ctx, p.ID); err == nil {
		t.Error("удаленный товар не должен находиться")
	}
}
