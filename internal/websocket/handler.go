package websocket

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/valyala/fasthttp"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/rajivgeraev/bazar-api/internal/messaging"
	"github.com/rajivgeraev/bazar-api/internal/utils"
)

// Handler принимает WebSocket-соединения, проверяет токен при рукопожатии
// и направляет события подключенных клиентов в движок доставки
type Handler struct {
	manager    *Manager
	jwtService *utils.JWTService
	messaging  *messaging.Service
	upgrader   websocket.FastHTTPUpgrader
}

// NewHandler создает новый экземпляр Handler
func NewHandler(manager *Manager, jwtService *utils.JWTService, messagingService *messaging.Service) *Handler {
	return &Handler{
		manager:    manager,
		jwtService: jwtService,
		messaging:  messagingService,
		upgrader: websocket.FastHTTPUpgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CORS обрабатывается на уровне приложения
			CheckOrigin: func(ctx *fasthttp.RequestCtx) bool { return true },
		},
	}
}

// Upgrade проверяет токен и переводит HTTP-запрос в WebSocket-соединение.
// Без валидного токена соединение отклоняется до обработки каких-либо событий.
func (h *Handler) Upgrade(c fiber.Ctx) error {
	// Токен передается в query-параметре или в заголовке Authorization
	token := c.Query("token")
	if token == "" {
		authHeader := c.Get("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			token = parts[1]
		}
	}

	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication error: No token provided"})
	}

	userID, err := h.jwtService.ExtractUserID(token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication error: Invalid token"})
	}

	if _, err := bson.ObjectIDFromHex(userID); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication error: Invalid user ID"})
	}

	return h.upgrader.Upgrade(c.RequestCtx(), func(conn *websocket.Conn) {
		client := NewClient(userID, conn, h.manager, h)
		client.Run()
	})
}

// handleIncoming обрабатывает одно входящее событие клиента.
// Ошибка обработки события не разрывает соединение.
func (h *Handler) handleIncoming(c *Client, raw []byte) {
	var event messaging.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		log.Printf("Ошибка разбора события от клиента %s: %v", c.ID, err)
		return
	}

	switch event.Type {
	case messaging.EventSendMessage:
		h.handleSendMessage(c, event.Payload)
	case messaging.EventMarkAsRead:
		h.handleMarkAsRead(c, event.Payload)
	case messaging.EventTypingStart:
		h.handleTyping(c, event.Payload, true)
	case messaging.EventTypingStop:
		h.handleTyping(c, event.Payload, false)
	case messaging.EventUserOnline:
		h.handleUserOnline(c)
	default:
		log.Printf("Необработанный тип события: %s", event.Type)
	}
}

// handleSendMessage сохраняет и доставляет новое сообщение.
// Ошибки возвращаются отправителю событием message_error.
func (h *Handler) handleSendMessage(c *Client, payload json.RawMessage) {
	var p messaging.SendMessagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		h.sendError(c, "Неверный формат данных")
		return
	}

	receiverID, err := bson.ObjectIDFromHex(p.ReceiverID)
	if err != nil {
		h.sendError(c, "Неверный формат ID получателя")
		return
	}

	productID, err := bson.ObjectIDFromHex(p.ProductID)
	if err != nil {
		h.sendError(c, "Неверный формат ID товара")
		return
	}

	senderID, _ := bson.ObjectIDFromHex(c.UserID)

	ctx, cancel := opContext()
	defer cancel()

	_, err = h.messaging.SendMessage(ctx, senderID, messaging.SendMessageInput{
		Receiver:     receiverID,
		Product:      productID,
		Content:      p.Content,
		ProductTitle: p.ProductTitle,
	})
	if err != nil {
		log.Printf("Ошибка отправки сообщения: %v", err)
		h.sendError(c, "Не удалось отправить сообщение")
	}
}

// handleMarkAsRead помечает переписку прочитанной
func (h *Handler) handleMarkAsRead(c *Client, payload json.RawMessage) {
	var p messaging.MarkAsReadPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}

	senderID, err := bson.ObjectIDFromHex(p.SenderID)
	if err != nil {
		return
	}

	readerID, _ := bson.ObjectIDFromHex(c.UserID)

	ctx, cancel := opContext()
	defer cancel()

	if _, err := h.messaging.MarkAsRead(ctx, readerID, senderID); err != nil {
		log.Printf("Ошибка пометки сообщений прочитанными: %v", err)
	}
}

// handleTyping пересылает индикатор набора текста
func (h *Handler) handleTyping(c *Client, payload json.RawMessage, isTyping bool) {
	var p messaging.TypingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	h.messaging.Typing(c.UserID, p.ReceiverID, p.ConversationID, isTyping)
}

// handleUserOnline сохраняет статус онлайн и оповещает остальных
func (h *Handler) handleUserOnline(c *Client) {
	userID, _ := bson.ObjectIDFromHex(c.UserID)

	ctx, cancel := opContext()
	defer cancel()

	if err := h.messaging.SetPresence(ctx, userID, true); err != nil {
		log.Printf("Ошибка обновления статуса онлайн: %v", err)
	}
}

// handleDisconnect вызывается после разрыва соединения.
// Статус оффлайн сохраняется только когда закрыто последнее соединение пользователя.
func (h *Handler) handleDisconnect(c *Client, wasLast bool) {
	if !wasLast {
		return
	}

	userID, err := bson.ObjectIDFromHex(c.UserID)
	if err != nil {
		return
	}

	ctx, cancel := opContext()
	defer cancel()

	if err := h.messaging.SetPresence(ctx, userID, false); err != nil {
		log.Printf("Ошибка обновления статуса оффлайн: %v", err)
	}
}

// sendError отправляет событие message_error на соединения пользователя
func (h *Handler) sendError(c *Client, message string) {
	h.manager.SendToUser(c.UserID, messaging.NewEvent(messaging.EventMessageError, messaging.MessageErrorPayload{
		Error: message,
	}))
}

// opContext возвращает контекст с таймаутом для операций обработчиков событий
func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
