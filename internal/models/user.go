package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User представляет пользователя площадки
type User struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string        `bson:"name" json:"name"`
	Email     string        `bson:"email" json:"email,omitempty"`
	Phone     string        `bson:"phone" json:"phone,omitempty"`
	Password  string        `bson:"password" json:"-"`
	Avatar    string        `bson:"avatar,omitempty" json:"avatar,omitempty"`
	City      string        `bson:"city,omitempty" json:"city,omitempty"`
	Role      string        `bson:"role" json:"role"`
	Verified  bool          `bson:"verified" json:"verified"`
	IsOnline  bool          `bson:"isOnline" json:"is_online"`
	LastSeen  time.Time     `bson:"lastSeen" json:"last_seen"`
	CreatedAt time.Time     `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time     `bson:"updatedAt" json:"updated_at"`
}

// UserSummary представляет публичную карточку пользователя для подстановки в ответы
type UserSummary struct {
	ID       bson.ObjectID `bson:"_id" json:"id"`
	Name     string        `bson:"name" json:"name"`
	Avatar   string        `bson:"avatar,omitempty" json:"avatar,omitempty"`
	City     string        `bson:"city,omitempty" json:"city,omitempty"`
	IsOnline bool          `bson:"isOnline" json:"is_online"`
	LastSeen time.Time     `bson:"lastSeen" json:"last_seen"`
}
