package category

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rajivgeraev/bazar-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API категорий
func (s *CategoryService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/categories")

	// Публичные маршруты
	api.Get("/", s.GetCategories)
	api.Get("/:slug", s.GetCategoryBySlug)

	// Создание категории требует авторизации
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(s.jwtService))
	protected.Post("/", s.CreateCategory)
}
