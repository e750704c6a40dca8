package message

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rajivgeraev/bazar-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API сообщений
func (s *MessageService) SetupRoutes(app *fiber.App) {
	// Группа для API сообщений
	api := app.Group("/api/messages")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для отправки сообщения
	api.Post("/", s.SendMessage)

	// Маршрут для переписки с другим пользователем
	api.Get("/between", s.GetMessagesBetweenUsers)

	// Маршрут для сообщений по товару
	api.Get("/product", s.GetMessagesByProduct)

	// Маршрут для списка переписок
	api.Get("/conversations", s.GetConversations)

	// Маршрут для количества непрочитанных
	api.Get("/unread-count", s.GetUnreadCount)

	// Маршрут для пометки сообщений прочитанными
	api.Post("/read", s.MarkAsRead)

	// Маршрут для удаления сообщения
	api.Delete("/:id", s.DeleteMessage)
}
