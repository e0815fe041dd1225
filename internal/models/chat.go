package models

import "time"

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageOrder MessageType = "order"
	MessageBill  MessageType = "bill"
)

type ChatMessage struct {
	ID           string      `bson:"_id" json:"id"`
	HouseID      string      `bson:"house_id" json:"houseId"`
	SenderID     string      `bson:"sender_id" json:"senderId"`
	SenderName   string      `bson:"sender_name" json:"senderName"`
	Type         MessageType `bson:"type" json:"type"`
	Text         string      `bson:"text,omitempty" json:"text,omitempty"`
	ImageURL     string      `bson:"image_url,omitempty" json:"imageUrl,omitempty"`
	ThumbnailURL string      `bson:"thumbnail_url,omitempty" json:"thumbnailUrl,omitempty"`
	RefID        string      `bson:"ref_id,omitempty" json:"refId,omitempty"`
	Summary      string      `bson:"summary,omitempty" json:"summary,omitempty"`
	CreatedAt    time.Time   `bson:"created_at" json:"createdAt"`
}

type Notification struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"userId"`
	EventID   string    `bson:"event_id" json:"eventId"`
	Type      EventType `bson:"type" json:"type"`
	Title     string    `bson:"title" json:"title"`
	Body      string    `bson:"body" json:"body"`
	RefID     string    `bson:"ref_id,omitempty" json:"refId,omitempty"`
	Read      bool      `bson:"read" json:"read"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// UploadedImage describes a stored blob.
type UploadedImage struct {
	Key          string `json:"key"`
	URL          string `json:"url"`
	ThumbnailKey string `json:"thumbnailKey,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	ContentType  string `json:"contentType"`
	Size         int64  `json:"size"`
}
