package message

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/rajivgeraev/bazar-api/internal/config"
	"github.com/rajivgeraev/bazar-api/internal/db"
	"github.com/rajivgeraev/bazar-api/internal/messaging"
	"github.com/rajivgeraev/bazar-api/internal/storage"
	"github.com/rajivgeraev/bazar-api/internal/utils"
)

// MessageService представляет сервис для работы с сообщениями
type MessageService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	messaging  *messaging.Service
}

// NewMessageService создает новый экземпляр MessageService
func NewMessageService(cfg *config.Config, messagingService *messaging.Service) *MessageService {
	return &MessageService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		messaging:  messagingService,
	}
}

// SendMessage отправляет новое сообщение.
// Доставка подключенному получателю происходит как побочный эффект,
// ответ не зависит от ее успеха.
func (s *MessageService) SendMessage(c fiber.Ctx) error {
	senderID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	var payload struct {
		ReceiverID   string `json:"receiver_id"`
		ProductID    string `json:"product_id"`
		Content      string `json:"content"`
		ProductTitle string `json:"product_title"`
	}

	if err := c.Bind().Body(&payload); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	receiverID, err := bson.ObjectIDFromHex(payload.ReceiverID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID получателя"})
	}

	productID, err := bson.ObjectIDFromHex(payload.ProductID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID товара"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	msg, err := s.messaging.SendMessage(ctx, senderID, messaging.SendMessageInput{
		Receiver:     receiverID,
		Product:      productID,
		Content:      payload.Content,
		ProductTitle: payload.ProductTitle,
	})
	if err != nil {
		var validationErr *messaging.ValidationError
		if errors.As(err, &validationErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationErr.Error()})
		}
		log.Printf("Ошибка отправки сообщения: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка отправки сообщения"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": msg,
	})
}

// GetMessagesBetweenUsers возвращает переписку с другим пользователем
func (s *MessageService) GetMessagesBetweenUsers(c fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	otherIDStr := c.Query("userId")
	if otherIDStr == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Не указан ID собеседника"})
	}

	otherID, err := bson.ObjectIDFromHex(otherIDStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID собеседника"})
	}

	page, limit := paging(c, 50)

	ctx, cancel := db.GetContext()
	defer cancel()

	result, err := s.messaging.MessagesBetween(ctx, userID, otherID, page, limit)
	if err != nil {
		log.Printf("Ошибка запроса переписки: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения сообщений"})
	}

	return c.JSON(result)
}

// GetMessagesByProduct возвращает сообщения по конкретному товару
func (s *MessageService) GetMessagesByProduct(c fiber.Ctx) error {
	if _, err := currentUserID(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	productIDStr := c.Query("productId")
	if productIDStr == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Не указан ID товара"})
	}

	productID, err := bson.ObjectIDFromHex(productIDStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID товара"})
	}

	page, limit := paging(c, 50)

	ctx, cancel := db.GetContext()
	defer cancel()

	result, err := s.messaging.MessagesByProduct(ctx, productID, page, limit)
	if err != nil {
		log.Printf("Ошибка запроса сообщений товара: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения сообщений"})
	}

	return c.JSON(result)
}

// DeleteMessage удаляет сообщение по ID
func (s *MessageService) DeleteMessage(c fiber.Ctx) error {
	if _, err := currentUserID(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	messageID, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID сообщения"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.messaging.DeleteMessage(ctx, messageID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Сообщение не найдено"})
		}
		log.Printf("Ошибка удаления сообщения: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка удаления сообщения"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Сообщение удалено",
	})
}

// MarkAsRead помечает прочитанными все сообщения от указанного отправителя.
// Повторный вызов без новых сообщений — не ошибка.
func (s *MessageService) MarkAsRead(c fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	senderIDStr := c.Query("senderId")
	if senderIDStr == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Не указан ID отправителя"})
	}

	senderID, err := bson.ObjectIDFromHex(senderIDStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID отправителя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	modified, err := s.messaging.MarkAsRead(ctx, userID, senderID)
	if err != nil {
		log.Printf("Ошибка пометки сообщений прочитанными: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка пометки сообщений"})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"modified": modified,
	})
}

// GetUnreadCount возвращает количество непрочитанных сообщений
func (s *MessageService) GetUnreadCount(c fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	count, err := s.messaging.UnreadCount(ctx, userID)
	if err != nil {
		log.Printf("Ошибка подсчета непрочитанных: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка подсчета сообщений"})
	}

	return c.JSON(fiber.Map{
		"unread_count": count,
	})
}

// GetConversations возвращает список переписок пользователя
func (s *MessageService) GetConversations(c fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	page, limit := paging(c, 20)

	ctx, cancel := db.GetContext()
	defer cancel()

	result, err := s.messaging.Conversations(ctx, userID, page, limit)
	if err != nil {
		log.Printf("Ошибка запроса переписок: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения переписок"})
	}

	return c.JSON(result)
}

// currentUserID извлекает ID авторизованного пользователя из контекста запроса
func currentUserID(c fiber.Ctx) (bson.ObjectID, error) {
	userID, _ := c.Locals("userID").(string)
	return bson.ObjectIDFromHex(userID)
}

// paging извлекает параметры пагинации из запроса
func paging(c fiber.Ctx, defaultLimit int) (int, int) {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))
	return page, limit
}
