package product

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rajivgeraev/bazar-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API товаров
func (s *ProductService) SetupRoutes(app *fiber.App) {
	// Группа для API товаров
	api := app.Group("/api/products")

	// Публичные маршруты
	api.Get("/search", s.SearchProducts)

	// Защищенные маршруты (требуют авторизации)
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для товаров текущего пользователя
	protected.Get("/my", s.GetMyProducts)

	// Маршрут для создания товара
	protected.Post("/", s.CreateProduct)

	// Маршрут для обновления товара
	protected.Put("/:id", s.UpdateProduct)

	// Маршрут для удаления товара
	protected.Delete("/:id", s.DeleteProduct)

	// Маршрут для пометки товара проданным
	protected.Post("/:id/sold", s.MarkAsSold)

	// Публичный маршрут карточки товара регистрируется после /my и /search
	api.Get("/:id", s.GetProduct)
}
