package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/rajivgeraev/bazar-api/internal/config"
)

// Client представляет клиент MongoDB
var Client *mongo.Client

// Database представляет базу данных приложения
var Database *mongo.Database

// InitDB инициализирует соединение с базой данных
func InitDB(cfg *config.Config) error {
	log.Printf("Подключение к MongoDB: %s\n", cfg.MongoURI)

	// Настраиваем таймауты подключения и выбора сервера
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetTimeout(45 * time.Second)

	var err error
	Client, err = mongo.Connect(opts)
	if err != nil {
		return fmt.Errorf("ошибка при подключении к MongoDB: %w", err)
	}

	// Проверяем соединение
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = Client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ошибка при проверке соединения: %w", err)
	}

	Database = Client.Database(cfg.MongoDatabase)

	// Создаем индексы
	if err = createIndexes(ctx); err != nil {
		return fmt.Errorf("ошибка при создании индексов: %w", err)
	}

	log.Println("✅ Успешное подключение к базе данных")
	return nil
}

// CloseDB закрывает соединение с базой данных
func CloseDB() {
	if Client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := Client.Disconnect(ctx); err != nil {
			log.Printf("⚠️ Ошибка при отключении от MongoDB: %v", err)
		}
	}
}

// GetContext возвращает контекст с таймаутом для запросов к базе данных
func GetContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// Users возвращает коллекцию пользователей
func Users() *mongo.Collection { return Database.Collection("users") }

// Categories возвращает коллекцию категорий
func Categories() *mongo.Collection { return Database.Collection("categories") }

// Products возвращает коллекцию товаров
func Products() *mongo.Collection { return Database.Collection("products") }

// Messages возвращает коллекцию сообщений
func Messages() *mongo.Collection { return Database.Collection("messages") }

// Favorites возвращает коллекцию избранного
func Favorites() *mongo.Collection { return Database.Collection("favorites") }

// createIndexes создает необходимые индексы коллекций
func createIndexes(ctx context.Context) error {
	// Уникальный индекс по email пользователя
	_, err := Users().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("индекс users.email: %w", err)
	}

	// Индексы сообщений: выборка переписки и подсчет непрочитанных
	_, err = Messages().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender", Value: 1}, {Key: "receiver", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "receiver", Value: 1}, {Key: "isRead", Value: 1}}},
		{Keys: bson.D{{Key: "product", Value: 1}, {Key: "createdAt", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("индексы messages: %w", err)
	}

	// Индексы товаров: сферический геоиндекс и выборки каталога
	_, err = Products().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "location.geo", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "seller", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("индексы products: %w", err)
	}

	// Уникальный slug категории
	_, err = Categories().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("индекс categories.slug: %w", err)
	}

	// Уникальная пара пользователь+товар в избранном
	_, err = Favorites().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user", Value: 1}, {Key: "product", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("индекс favorites: %w", err)
	}

	return nil
}
