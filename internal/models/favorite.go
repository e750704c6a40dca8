package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Favorite представляет запись избранного товара
type Favorite struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	User      bson.ObjectID `bson:"user" json:"user_id"`
	Product   bson.ObjectID `bson:"product" json:"product_id"`
	AddedAt   time.Time     `bson:"addedAt" json:"added_at"`
	CreatedAt time.Time     `bson:"createdAt" json:"created_at"`

	// Дополнительные поля для API
	ProductInfo *Product `bson:"productInfo,omitempty" json:"product,omitempty"`
}
