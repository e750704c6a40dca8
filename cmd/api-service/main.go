package main

import (
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/rajivgeraev/bazar-api/internal/config"
	"github.com/rajivgeraev/bazar-api/internal/db"
	"github.com/rajivgeraev/bazar-api/internal/messaging"
	"github.com/rajivgeraev/bazar-api/internal/services/auth"
	"github.com/rajivgeraev/bazar-api/internal/services/category"
	"github.com/rajivgeraev/bazar-api/internal/services/cloudinary"
	"github.com/rajivgeraev/bazar-api/internal/services/favorite"
	"github.com/rajivgeraev/bazar-api/internal/services/message"
	"github.com/rajivgeraev/bazar-api/internal/services/product"
	"github.com/rajivgeraev/bazar-api/internal/services/user"
	"github.com/rajivgeraev/bazar-api/internal/storage"
	"github.com/rajivgeraev/bazar-api/internal/websocket"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.LoadConfig()

	// Инициализируем базу данных
	if err := db.InitDB(cfg); err != nil {
		log.Fatalf("❌ Ошибка при инициализации базы данных: %v", err)
	}
	defer db.CloseDB()

	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      "Bazar API",
		ErrorHandler: errorHandler,
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	// Хранилища и движок сообщений
	messageStore := storage.NewMessageStore(db.Messages(), db.Users())
	userStore := storage.NewUserStore(db.Users())

	wsManager := websocket.NewManager()
	messagingService := messaging.NewService(messageStore, userStore, wsManager)

	// Создаём сервисы
	authService := auth.NewAuthService(cfg)
	cloudinaryService := cloudinary.NewCloudinaryService(cfg)
	productService := product.NewProductService(cfg, cloudinaryService)
	categoryService := category.NewCategoryService(cfg)
	favoriteService := favorite.NewFavoriteService(cfg)
	userService := user.NewUserService(cfg)
	messageService := message.NewMessageService(cfg, messagingService)

	wsHandler := websocket.NewHandler(wsManager, authService.GetJWTService(), messagingService)

	// Регистрируем маршруты
	authService.SetupRoutes(app)
	productService.SetupRoutes(app)
	categoryService.SetupRoutes(app)
	favoriteService.SetupRoutes(app)
	userService.SetupRoutes(app)
	messageService.SetupRoutes(app)
	cloudinaryService.SetupRoutes(app)

	// WebSocket-подключения
	app.Get("/ws", wsHandler.Upgrade)

	// Запускаем сервер
	log.Printf("✅ Bazar API запущен на порту %s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}

// errorHandler обрабатывает ошибки Fiber
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	// Проверяем, является ли ошибка из Fiber
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	// Отправляем ошибку в JSON
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
