package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Category представляет категорию товаров
type Category struct {
	ID             bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name           string         `bson:"name" json:"name"`
	Slug           string         `bson:"slug" json:"slug"`
	Icon           string         `bson:"icon,omitempty" json:"icon,omitempty"`
	Image          string         `bson:"image,omitempty" json:"image,omitempty"`
	ParentCategory *bson.ObjectID `bson:"parentCategory,omitempty" json:"parent_category,omitempty"`
	Description    string         `bson:"description,omitempty" json:"description,omitempty"`
	IsActive       bool           `bson:"isActive" json:"is_active"`
	Order          int            `bson:"order" json:"order"`
	CreatedAt      time.Time      `bson:"createdAt" json:"created_at"`
	UpdatedAt      time.Time      `bson:"updatedAt" json:"updated_at"`
}
