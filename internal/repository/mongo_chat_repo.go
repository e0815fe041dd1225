package repository

import (
	"context"
	"time"

	"github.com/fathima-sithara/moms/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoChatRepo struct {
	col *mongo.Collection
}

func NewMongoChatRepo(db *mongo.Database) ChatRepository {
	col := db.Collection("chat_messages")
	ensureIndexes(col,
		mongo.IndexModel{Keys: bson.D{{Key: "house_id", Value: 1}, {Key: "created_at", Value: -1}}},
	)
	return &mongoChatRepo{col: col}
}

func (r *mongoChatRepo) Insert(ctx context.Context, m *models.ChatMessage) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return insert(ctx, r.col, m)
}

// List returns up to limit messages older than before, oldest first.
func (r *mongoChatRepo) List(ctx context.Context, houseID string, limit int64, before time.Time) ([]*models.ChatMessage, error) {
	filter := bson.M{"house_id": houseID}
	if !before.IsZero() {
		filter["created_at"] = bson.M{"$lt": before}
	}
	out, err := findMany[models.ChatMessage](ctx, r.col, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

type mongoNotificationRepo struct {
	col *mongo.Collection
}

func NewMongoNotificationRepo(db *mongo.Database) NotificationRepository {
	col := db.Collection("notifications")
	ensureIndexes(col,
		mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "event_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	)
	return &mongoNotificationRepo{col: col}
}

func (r *mongoNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	n.CreatedAt = time.Now().UTC()
	return insert(ctx, r.col, n)
}

func (r *mongoNotificationRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]*models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return findMany[models.Notification](ctx, r.col, bson.M{"user_id": userID}, opts)
}

func (r *mongoNotificationRepo) MarkRead(ctx context.Context, userID, id string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id, "user_id": userID}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoNotificationRepo) MarkAllRead(ctx context.Context, userID string) error {
	_, err := r.col.UpdateMany(ctx, bson.M{"user_id": userID, "read": false}, bson.M{"$set": bson.M{"read": true}})
	return err
}

func (r *mongoNotificationRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"user_id": userID, "read": false})
}
