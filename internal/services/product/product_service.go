package product

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/rajivgeraev/bazar-api/internal/config"
	"github.com/rajivgeraev/bazar-api/internal/db"
	"github.com/rajivgeraev/bazar-api/internal/models"
	"github.com/rajivgeraev/bazar-api/internal/services/cloudinary"
	"github.com/rajivgeraev/bazar-api/internal/storage"
	"github.com/rajivgeraev/bazar-api/internal/utils"
)

// ProductService представляет сервис для работы с товарами
type ProductService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	products   *storage.ProductStore
	images     *cloudinary.CloudinaryService
}

// NewProductService создает новый экземпляр ProductService
func NewProductService(cfg *config.Config, images *cloudinary.CloudinaryService) *ProductService {
	return &ProductService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		products:   storage.NewProductStore(db.Products(), db.Categories(), db.Users()),
		images:     images,
	}
}

// productPayload — тело запроса создания и обновления товара
type productPayload struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Price       float64               `json:"price"`
	CategoryID  string                `json:"category_id"`
	Condition   string                `json:"condition"`
	Images      []models.ProductImage `json:"images"`
	City        string                `json:"city"`
	Area        string                `json:"area"`
	Lat         *float64              `json:"lat"`
	Lon         *float64              `json:"lon"`
	PhoneNumber string                `json:"phone_number"`
	Tags        []string              `json:"tags"`
	Negotiable  bool                  `json:"negotiable"`
}

// SearchProducts выполняет поиск товаров. Если переданы координаты lat/lon,
// результаты ранжируются по расстоянию, иначе новые первыми.
func (s *ProductService) SearchProducts(c fiber.Ctx) error {
	filter, opts, err := parseSearchQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	result, err := s.products.Search(ctx, filter, opts)
	if err != nil {
		log.Printf("Ошибка поиска товаров: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка поиска товаров"})
	}

	return c.JSON(result)
}

// parseSearchQuery собирает фильтр поиска из query-параметров запроса
func parseSearchQuery(c fiber.Ctx) (storage.SearchFilter, storage.SearchOptions, error) {
	var filter storage.SearchFilter

	if categoryStr := c.Query("category"); categoryStr != "" {
		categoryID, err := bson.ObjectIDFromHex(categoryStr)
		if err != nil {
			return filter, storage.SearchOptions{}, errors.New("Неверный формат ID категории")
		}
		filter.Category = &categoryID
	}

	if sellerStr := c.Query("seller"); sellerStr != "" {
		sellerID, err := bson.ObjectIDFromHex(sellerStr)
		if err != nil {
			return filter, storage.SearchOptions{}, errors.New("Неверный формат ID продавца")
		}
		filter.Seller = &sellerID
	}

	if minStr := c.Query("minPrice"); minStr != "" {
		minPrice, err := strconv.ParseFloat(minStr, 64)
		if err != nil {
			return filter, storage.SearchOptions{}, errors.New("Неверный формат minPrice")
		}
		filter.MinPrice = &minPrice
	}

	if maxStr := c.Query("maxPrice"); maxStr != "" {
		maxPrice, err := strconv.ParseFloat(maxStr, 64)
		if err != nil {
			return filter, storage.SearchOptions{}, errors.New("Неверный формат maxPrice")
		}
		filter.MaxPrice = &maxPrice
	}

	filter.Keywords = c.Query("keywords")
	filter.City = c.Query("location")
	filter.Condition = c.Query("condition")

	// Гео-режим включается только когда заданы обе координаты
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr != "" && lonStr != "" {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lon, errLon := strconv.ParseFloat(lonStr, 64)
		if errLat != nil || errLon != nil {
			return filter, storage.SearchOptions{}, errors.New("Неверный формат координат")
		}
		filter.Coords = &storage.Coords{Lat: lat, Lon: lon}

		// Радиус в километрах; поддерживаем прежнее имя параметра
		radiusStr := c.Query("radiusKm")
		if radiusStr == "" {
			radiusStr = c.Query("radius")
		}
		if radiusStr != "" {
			radius, err := strconv.ParseFloat(radiusStr, 64)
			if err != nil || radius <= 0 {
				return filter, storage.SearchOptions{}, errors.New("Неверный формат радиуса")
			}
			filter.RadiusKm = &radius
		}
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	return filter, storage.SearchOptions{Page: page, Limit: limit}, nil
}

// GetProduct возвращает товар по ID и увеличивает счетчик просмотров
func (s *ProductService) GetProduct(c fiber.Ctx) error {
	productID, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID товара"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	product, err := s.products.GetByID(ctx, productID)
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Товар не найден"})
	}
	if err != nil {
		log.Printf("Ошибка получения товара: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения товара"})
	}

	// Просмотр считаем как побочный эффект, ошибку только логируем
	if err := s.products.IncrementViews(ctx, productID); err != nil {
		log.Printf("⚠️ Ошибка счетчика просмотров: %v", err)
	}

	return c.JSON(fiber.Map{"product": product})
}

// CreateProduct создает новый товар. Товар попадает в статус pending
// и становится видимым в поиске только после модерации.
func (s *ProductService) CreateProduct(c fiber.Ctx) error {
	sellerID, err := bson.ObjectIDFromHex(c.Locals("userID").(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	var payload productPayload
	if err := c.Bind().Body(&payload); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if payload.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Название товара обязательно"})
	}
	if payload.Price < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Цена не может быть отрицательной"})
	}

	categoryID, err := bson.ObjectIDFromHex(payload.CategoryID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID категории"})
	}

	location := models.Location{City: payload.City, Area: payload.Area}
	if payload.Lat != nil && payload.Lon != nil {
		location.Geo = models.NewGeoPoint(*payload.Lat, *payload.Lon)
	}

	product := &models.Product{
		Title:       payload.Title,
		Description: payload.Description,
		Price:       payload.Price,
		Category:    categoryID,
		Condition:   payload.Condition,
		Images:      payload.Images,
		Location:    location,
		Seller:      sellerID,
		PhoneNumber: payload.PhoneNumber,
		Tags:        payload.Tags,
		Negotiable:  payload.Negotiable,
		Status:      models.ProductStatusPending,
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	product, err = s.products.Create(ctx, product)
	if err != nil {
		log.Printf("Ошибка создания товара: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка создания товара"})
	}

	log.Printf("✅ Товар %s создан пользователем %s", product.ID.Hex(), sellerID.Hex())

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"product": product,
	})
}

// UpdateProduct обновляет товар. Доступно только владельцу.
func (s *ProductService) UpdateProduct(c fiber.Ctx) error {
	product, status, errMsg := s.ownedProduct(c)
	if product == nil {
		return c.Status(status).JSON(fiber.Map{"error": errMsg})
	}

	var payload productPayload
	if err := c.Bind().Body(&payload); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	update := bson.M{}
	if payload.Title != "" {
		update["title"] = payload.Title
	}
	if payload.Description != "" {
		update["description"] = payload.Description
	}
	if payload.Price > 0 {
		update["price"] = payload.Price
	}
	if payload.CategoryID != "" {
		categoryID, err := bson.ObjectIDFromHex(payload.CategoryID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID категории"})
		}
		update["category"] = categoryID
	}
	if payload.Condition != "" {
		update["condition"] = payload.Condition
	}
	if payload.Images != nil {
		update["images"] = payload.Images
	}
	if payload.City != "" || payload.Area != "" || (payload.Lat != nil && payload.Lon != nil) {
		location := models.Location{City: payload.City, Area: payload.Area}
		if payload.Lat != nil && payload.Lon != nil {
			location.Geo = models.NewGeoPoint(*payload.Lat, *payload.Lon)
		}
		update["location"] = location
	}
	if payload.PhoneNumber != "" {
		update["phoneNumber"] = payload.PhoneNumber
	}
	if payload.Tags != nil {
		update["tags"] = payload.Tags
	}

	// Отредактированный товар возвращается на модерацию
	update["status"] = models.ProductStatusPending

	ctx, cancel := db.GetContext()
	defer cancel()

	updated, err := s.products.Update(ctx, product.ID, update)
	if err != nil {
		log.Printf("Ошибка обновления товара: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления товара"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"product": updated,
	})
}

// DeleteProduct удаляет товар вместе с его изображениями в Cloudinary.
// Доступно только владельцу.
func (s *ProductService) DeleteProduct(c fiber.Ctx) error {
	product, status, errMsg := s.ownedProduct(c)
	if product == nil {
		return c.Status(status).JSON(fiber.Map{"error": errMsg})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	deleted, err := s.products.Delete(ctx, product.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Товар не найден"})
	}
	if err != nil {
		log.Printf("Ошибка удаления товара: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка удаления товара"})
	}

	// Чистим изображения после удаления документа
	if len(deleted.Images) > 0 {
		publicIDs := make([]string, 0, len(deleted.Images))
		for _, img := range deleted.Images {
			publicIDs = append(publicIDs, img.PublicID)
		}
		s.images.DeleteImages(ctx, publicIDs)
	}

	log.Printf("✅ Товар %s удален", deleted.ID.Hex())

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Товар удален",
	})
}

// MarkAsSold помечает товар проданным. Доступно только владельцу.
func (s *ProductService) MarkAsSold(c fiber.Ctx) error {
	product, status, errMsg := s.ownedProduct(c)
	if product == nil {
		return c.Status(status).JSON(fiber.Map{"error": errMsg})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	updated, err := s.products.MarkAsSold(ctx, product.ID)
	if err != nil {
		log.Printf("Ошибка пометки товара проданным: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления товара"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"product": updated,
	})
}

// GetMyProducts возвращает товары текущего пользователя во всех статусах
func (s *ProductService) GetMyProducts(c fiber.Ctx) error {
	sellerID, err := bson.ObjectIDFromHex(c.Locals("userID").(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	ctx, cancel := db.GetContext()
	defer cancel()

	result, err := s.products.GetBySeller(ctx, sellerID, storage.SearchOptions{Page: page, Limit: limit})
	if err != nil {
		log.Printf("Ошибка запроса товаров пользователя: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения товаров"})
	}

	return c.JSON(result)
}

// ownedProduct загружает товар из URL и проверяет, что он принадлежит
// текущему пользователю. При ошибке возвращает nil и готовый статус с текстом.
func (s *ProductService) ownedProduct(c fiber.Ctx) (*models.Product, int, string) {
	userID, err := bson.ObjectIDFromHex(c.Locals("userID").(string))
	if err != nil {
		return nil, fiber.StatusUnauthorized, "Пользователь не авторизован"
	}

	productID, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return nil, fiber.StatusBadRequest, "Неверный формат ID товара"
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	product, err := s.products.GetByID(ctx, productID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fiber.StatusNotFound, "Товар не найден"
	}
	if err != nil {
		log.Printf("Ошибка получения товара: %v", err)
		return nil, fiber.StatusInternalServerError, "Ошибка получения товара"
	}

	if product.Seller != userID {
		return nil, fiber.StatusForbidden, "Нет доступа к этому товару"
	}

	return product, fiber.StatusOK, ""
}
