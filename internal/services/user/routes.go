package user

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rajivgeraev/bazar-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API пользователей
func (s *UserService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/users")

	// Защищенные маршруты (требуют авторизации)
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршруты профиля текущего пользователя
	protected.Get("/me", s.GetMe)
	protected.Put("/me", s.UpdateMe)

	// Публичный профиль пользователя
	api.Get("/:id", s.GetUser)
}
