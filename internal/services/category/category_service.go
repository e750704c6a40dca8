package category

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/rajivgeraev/bazar-api/internal/config"
	"github.com/rajivgeraev/bazar-api/internal/db"
	"github.com/rajivgeraev/bazar-api/internal/models"
	"github.com/rajivgeraev/bazar-api/internal/storage"
	"github.com/rajivgeraev/bazar-api/internal/utils"
)

// CategoryService представляет сервис для работы с категориями
type CategoryService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	categories *storage.CategoryStore
	users      *storage.UserStore
}

// NewCategoryService создает новый экземпляр CategoryService
func NewCategoryService(cfg *config.Config) *CategoryService {
	return &CategoryService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		categories: storage.NewCategoryStore(db.Categories()),
		users:      storage.NewUserStore(db.Users()),
	}
}

// GetCategories возвращает список активных категорий
func (s *CategoryService) GetCategories(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	categories, err := s.categories.List(ctx)
	if err != nil {
		log.Printf("Ошибка запроса категорий: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения категорий"})
	}

	return c.JSON(fiber.Map{"categories": categories})
}

// GetCategoryBySlug возвращает категорию по slug
func (s *CategoryService) GetCategoryBySlug(c fiber.Ctx) error {
	slug := c.Params("slug")

	ctx, cancel := db.GetContext()
	defer cancel()

	category, err := s.categories.GetBySlug(ctx, slug)
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Категория не найдена"})
	}
	if err != nil {
		log.Printf("Ошибка получения категории: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения категории"})
	}

	return c.JSON(fiber.Map{"category": category})
}

// CreateCategory создает новую категорию. Доступно только администратору.
func (s *CategoryService) CreateCategory(c fiber.Ctx) error {
	userID, err := bson.ObjectIDFromHex(c.Locals("userID").(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	adminCtx, adminCancel := db.GetContext()
	currentUser, err := s.users.GetByID(adminCtx, userID)
	adminCancel()
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}
	if currentUser.Role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Требуются права администратора"})
	}

	var payload struct {
		Name   string `json:"name"`
		Slug   string `json:"slug"`
		Icon   string `json:"icon"`
		Parent string `json:"parent"`
		Order  int    `json:"order"`
	}

	if err := c.Bind().Body(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if payload.Name == "" || payload.Slug == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Название и slug обязательны"})
	}

	category := &models.Category{
		Name:  payload.Name,
		Slug:  payload.Slug,
		Icon:  payload.Icon,
		Order: payload.Order,
	}

	if payload.Parent != "" {
		parentID, err := bson.ObjectIDFromHex(payload.Parent)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID родительской категории"})
		}
		category.ParentCategory = &parentID
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	category, err = s.categories.Create(ctx, category)
	if errors.Is(err, storage.ErrDuplicate) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Категория с таким slug уже существует"})
	}
	if err != nil {
		log.Printf("Ошибка создания категории: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка создания категории"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":  true,
		"category": category,
	})
}
