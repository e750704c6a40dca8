package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Message представляет сообщение между покупателем и продавцом.
// Флаг isRead переходит только из false в true и обратно не сбрасывается.
type Message struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Sender       bson.ObjectID `bson:"sender" json:"sender_id"`
	Receiver     bson.ObjectID `bson:"receiver" json:"receiver_id"`
	Product      bson.ObjectID `bson:"product" json:"product_id"`
	ProductTitle string        `bson:"productTitle,omitempty" json:"product_title,omitempty"`
	Content      string        `bson:"content" json:"content"`
	IsRead       bool          `bson:"isRead" json:"is_read"`
	CreatedAt    time.Time     `bson:"createdAt" json:"created_at"`

	// Дополнительные поля для API
	SenderInfo   *UserSummary `bson:"senderInfo,omitempty" json:"sender,omitempty"`
	ReceiverInfo *UserSummary `bson:"receiverInfo,omitempty" json:"receiver,omitempty"`
}

// Conversation представляет переписку с одним собеседником.
// Не хранится в базе, а собирается агрегацией по сообщениям.
type Conversation struct {
	OtherUserID bson.ObjectID `bson:"_id" json:"user_id"`
	LastMessage *Message      `bson:"lastMessage" json:"last_message"`
	UnreadCount int           `bson:"unreadCount" json:"unread_count"`
	OtherUser   *UserSummary  `bson:"otherUser,omitempty" json:"user,omitempty"`
}
