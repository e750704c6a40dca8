package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Статусы товара. Публичный поиск видит только approved.
const (
	ProductStatusPending  = "pending"
	ProductStatusApproved = "approved"
	ProductStatusRejected = "rejected"
	ProductStatusSold     = "sold"
)

// Состояния товара
const (
	ConditionNew         = "new"
	ConditionUsed        = "used"
	ConditionRefurbished = "refurbished"
)

// Product представляет объявление о товаре
type Product struct {
	ID          bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title       string         `bson:"title" json:"title"`
	Description string         `bson:"description" json:"description"`
	Price       float64        `bson:"price" json:"price"`
	Category    bson.ObjectID  `bson:"category" json:"category_id"`
	Condition   string         `bson:"condition" json:"condition"`
	Images      []ProductImage `bson:"images,omitempty" json:"images,omitempty"`
	Location    Location       `bson:"location" json:"location"`
	Seller      bson.ObjectID  `bson:"seller" json:"seller_id"`
	PhoneNumber string         `bson:"phoneNumber" json:"phone_number,omitempty"`
	Views       int            `bson:"views" json:"views"`
	IsFeatured  bool           `bson:"isFeatured" json:"is_featured"`
	Status      string         `bson:"status" json:"status"`
	Tags        []string       `bson:"tags,omitempty" json:"tags,omitempty"`
	Negotiable  bool           `bson:"negotiable" json:"negotiable"`
	PostedAt    time.Time      `bson:"postedAt" json:"posted_at"`
	CreatedAt   time.Time      `bson:"createdAt" json:"created_at"`
	UpdatedAt   time.Time      `bson:"updatedAt" json:"updated_at"`

	// Дополнительные поля для API
	CategoryInfo *Category    `bson:"categoryInfo,omitempty" json:"category,omitempty"`
	SellerInfo   *UserSummary `bson:"sellerInfo,omitempty" json:"seller,omitempty"`
	Distance     *float64     `bson:"distance,omitempty" json:"distance,omitempty"`
}

// ProductImage представляет изображение товара в Cloudinary
type ProductImage struct {
	URL      string `bson:"url" json:"url"`
	PublicID string `bson:"public_id" json:"public_id"`
}

// Location представляет местоположение товара
type Location struct {
	City string    `bson:"city,omitempty" json:"city,omitempty"`
	Area string    `bson:"area,omitempty" json:"area,omitempty"`
	Geo  *GeoPoint `bson:"geo,omitempty" json:"geo,omitempty"`
}

// GeoPoint представляет точку GeoJSON. Порядок координат: [долгота, широта].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// NewGeoPoint создает GeoJSON-точку из широты и долготы
func NewGeoPoint(lat, lon float64) *GeoPoint {
	return &GeoPoint{Type: "Point", Coordinates: []float64{lon, lat}}
}
