package favorite

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/rajivgeraev/bazar-api/internal/config"
	"github.com/rajivgeraev/bazar-api/internal/db"
	"github.com/rajivgeraev/bazar-api/internal/models"
	"github.com/rajivgeraev/bazar-api/internal/storage"
	"github.com/rajivgeraev/bazar-api/internal/utils"
)

// FavoriteService представляет сервис для работы с избранными товарами
type FavoriteService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	favorites  *storage.FavoriteStore
	products   *storage.ProductStore
}

// NewFavoriteService создает новый экземпляр FavoriteService
func NewFavoriteService(cfg *config.Config) *FavoriteService {
	return &FavoriteService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		favorites:  storage.NewFavoriteStore(db.Favorites(), db.Products()),
		products:   storage.NewProductStore(db.Products(), db.Categories(), db.Users()),
	}
}

// AddToFavorites добавляет товар в избранное
func (s *FavoriteService) AddToFavorites(c fiber.Ctx) error {
	userID, err := bson.ObjectIDFromHex(c.Locals("userID").(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	// Извлекаем ID товара из запроса
	var requestData struct {
		ProductID string `json:"product_id"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if requestData.ProductID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ID товара не указан"})
	}

	productID, err := bson.ObjectIDFromHex(requestData.ProductID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID товара"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// Проверяем, что товар существует и опубликован
	product, err := s.products.GetByID(ctx, productID)
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Товар не найден"})
	}
	if err != nil {
		log.Printf("Ошибка проверки товара: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки товара"})
	}
	if product.Status != models.ProductStatusApproved {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Товар не найден или не опубликован"})
	}

	favorite, err := s.favorites.Add(ctx, userID, productID)
	if errors.Is(err, storage.ErrDuplicate) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Товар уже добавлен в избранное"})
	}
	if err != nil {
		log.Printf("Ошибка добавления в избранное: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка добавления в избранное"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"id":      favorite.ID,
		"message": "Товар успешно добавлен в избранное",
	})
}

// RemoveFromFavorites удаляет товар из избранного
func (s *FavoriteService) RemoveFromFavorites(c fiber.Ctx) error {
	userID, err := bson.ObjectIDFromHex(c.Locals("userID").(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	productID, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID товара"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.favorites.Remove(ctx, userID, productID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Товар не найден в избранном"})
		}
		log.Printf("Ошибка удаления из избранного: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка удаления из избранного"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Товар успешно удален из избранного",
	})
}

// GetFavorites возвращает список избранных товаров пользователя
func (s *FavoriteService) GetFavorites(c fiber.Ctx) error {
	userID, err := bson.ObjectIDFromHex(c.Locals("userID").(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	ctx, cancel := db.GetContext()
	defer cancel()

	favorites, total, err := s.favorites.List(ctx, userID, page, limit)
	if err != nil {
		log.Printf("Ошибка запроса избранных товаров: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения избранных товаров"})
	}

	return c.JSON(fiber.Map{
		"favorites": favorites,
		"total":     total,
		"page":      page,
		"limit":     limit,
	})
}

// CheckFavorite проверяет, добавлен ли товар в избранное
func (s *FavoriteService) CheckFavorite(c fiber.Ctx) error {
	userID, err := bson.ObjectIDFromHex(c.Locals("userID").(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	productID, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID товара"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	exists, err := s.favorites.Exists(ctx, userID, productID)
	if err != nil {
		log.Printf("Ошибка проверки избранного: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки избранного"})
	}

	return c.JSON(fiber.Map{
		"is_favorite": exists,
	})
}
