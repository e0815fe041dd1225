package repository

import (
	"context"
	"time"

	"github.com/fathima-sithara/moms/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoOrderRepo struct {
	col *mongo.Collection
}

func NewMongoOrderRepo(db *mongo.Database) OrderRepository {
	col := db.Collection("orders")
	ensureIndexes(col,
		mongo.IndexModel{Keys: bson.D{{Key: "house_id", Value: 1}, {Key: "date", Value: -1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "agency_id", Value: 1}, {Key: "date", Value: -1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "bill_id", Value: 1}}, Options: options.Index().SetSparse(true)},
	)
	return &mongoOrderRepo{col: col}
}

func (r *mongoOrderRepo) Create(ctx context.Context, o *models.Order) error {
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	return insert(ctx, r.col, o)
}

func (r *mongoOrderRepo) FindByID(ctx context.Context, id string) (*models.Order, error) {
	return findOne[models.Order](ctx, r.col, bson.M{"_id": id})
}

func (r *mongoOrderRepo) Replace(ctx context.Context, o *models.Order, prev models.OrderStatus) error {
	o.UpdatedAt = time.Now().UTC()
	return replaceWhere(ctx, r.col, bson.M{"_id": o.ID, "status": prev}, o)
}

func (r *mongoOrderRepo) ListByHouse(ctx context.Context, houseID string, f models.OrderFilter) ([]*models.Order, error) {
	filter, opts := orderFilter(bson.M{"house_id": houseID}, f)
	return findMany[models.Order](ctx, r.col, filter, opts)
}

func (r *mongoOrderRepo) ListByUser(ctx context.Context, userID string, f models.OrderFilter) ([]*models.Order, error) {
	filter, opts := orderFilter(bson.M{"user_id": userID}, f)
	return findMany[models.Order](ctx, r.col, filter, opts)
}

func (r *mongoOrderRepo) ListByAgency(ctx context.Context, agencyID string, f models.OrderFilter) ([]*models.Order, error) {
	filter, opts := orderFilter(bson.M{"agency_id": agencyID}, f)
	return findMany[models.Order](ctx, r.col, filter, opts)
}

func (r *mongoOrderRepo) ListUnbilled(ctx context.Context, houseID, from, to string) ([]*models.Order, error) {
	filter := bson.M{
		"house_id": houseID,
		"date":     bson.M{"$gte": from, "$lte": to},
		"status":   bson.M{"$ne": models.OrderCancelled},
		"bill_id":  bson.M{"$exists": false},
	}
	return findMany[models.Order](ctx, r.col, filter,
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "meal_type", Value: 1}}))
}

func (r *mongoOrderRepo) MarkBilled(ctx context.Context, ids []string, billID string) (int64, error) {
	res, err := r.col.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "bill_id": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"bill_id": billID, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *mongoOrderRepo) ClearBill(ctx context.Context, billID string) error {
	_, err := r.col.UpdateMany(ctx, bson.M{"bill_id": billID}, bson.M{"$unset": bson.M{"bill_id": ""}})
	return err
}

type mongoRequestRepo struct {
	col *mongo.Collection
}

func NewMongoRequestRepo(db *mongo.Database) RequestRepository {
	col := db.Collection("manual_requests")
	ensureIndexes(col,
		mongo.IndexModel{Keys: bson.D{{Key: "house_id", Value: 1}, {Key: "created_at", Value: -1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "agency_id", Value: 1}, {Key: "status", Value: 1}}},
	)
	return &mongoRequestRepo{col: col}
}

func (r *mongoRequestRepo) Create(ctx context.Context, m *models.ManualRequest) error {
	m.CreatedAt = time.Now().UTC()
	m.UpdatedAt = m.CreatedAt
	return insert(ctx, r.col, m)
}

func (r *mongoRequestRepo) FindByID(ctx context.Context, id string) (*models.ManualRequest, error) {
	return findOne[models.ManualRequest](ctx, r.col, bson.M{"_id": id})
}

func (r *mongoRequestRepo) Replace(ctx context.Context, m *models.ManualRequest, prev models.RequestStatus) error {
	m.UpdatedAt = time.Now().UTC()
	return replaceWhere(ctx, r.col, bson.M{"_id": m.ID, "status": prev}, m)
}

func (r *mongoRequestRepo) ListByHouse(ctx context.Context, houseID string, status models.RequestStatus) ([]*models.ManualRequest, error) {
	filter := bson.M{"house_id": houseID}
	if status != "" {
		filter["status"] = status
	}
	return findMany[models.ManualRequest](ctx, r.col, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *mongoRequestRepo) ListByAgency(ctx context.Context, agencyID string, status models.RequestStatus) ([]*models.ManualRequest, error) {
	filter := bson.M{"agency_id": agencyID}
	if status != "" {
		filter["status"] = status
	}
	return findMany[models.ManualRequest](ctx, r.col, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}
