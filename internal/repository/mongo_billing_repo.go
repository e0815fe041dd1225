package repository

import (
	"context"
	"time"

	"github.com/fathima-sithara/moms/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoBillRepo struct {
	col *mongo.Collection
}

func NewMongoBillRepo(db *mongo.Database) BillRepository {
	col := db.Collection("bills")
	ensureIndexes(col,
		mongo.IndexModel{Keys: bson.D{{Key: "house_id", Value: 1}, {Key: "period_start", Value: -1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "agency_id", Value: 1}, {Key: "status", Value: 1}}},
	)
	return &mongoBillRepo{col: col}
}

func (r *mongoBillRepo) Create(ctx context.Context, b *models.Bill) error {
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	return insert(ctx, r.col, b)
}

func (r *mongoBillRepo) FindByID(ctx context.Context, id string) (*models.Bill, error) {
	return findOne[models.Bill](ctx, r.col, bson.M{"_id": id})
}

// Replace uses updated_at as the version stamp.
func (r *mongoBillRepo) Replace(ctx context.Context, b *models.Bill, prev time.Time) error {
	b.UpdatedAt = time.Now().UTC()
	return replaceWhere(ctx, r.col, bson.M{"_id": b.ID, "updated_at": prev}, b)
}

func (r *mongoBillRepo) ListByHouse(ctx context.Context, houseID string) ([]*models.Bill, error) {
	return findMany[models.Bill](ctx, r.col, bson.M{"house_id": houseID},
		options.Find().SetSort(bson.D{{Key: "period_start", Value: -1}}))
}

func (r *mongoBillRepo) ListByAgency(ctx context.Context, agencyID string) ([]*models.Bill, error) {
	return findMany[models.Bill](ctx, r.col, bson.M{"agency_id": agencyID},
		options.Find().SetSort(bson.D{{Key: "period_start", Value: -1}}))
}

type mongoPaymentRepo struct {
	col *mongo.Collection
}

func NewMongoPaymentRepo(db *mongo.Database) PaymentRepository {
	col := db.Collection("payments")
	ensureIndexes(col,
		mongo.IndexModel{Keys: bson.D{{Key: "bill_id", Value: 1}, {Key: "created_at", Value: -1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "agency_id", Value: 1}, {Key: "status", Value: 1}}},
	)
	return &mongoPaymentRepo{col: col}
}

func (r *mongoPaymentRepo) Create(ctx context.Context, p *models.Payment) error {
	p.CreatedAt = time.Now().UTC()
	return insert(ctx, r.col, p)
}

func (r *mongoPaymentRepo) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	return findOne[models.Payment](ctx, r.col, bson.M{"_id": id})
}

func (r *mongoPaymentRepo) Replace(ctx context.Context, p *models.Payment, prev models.PaymentStatus) error {
	return replaceWhere(ctx, r.col, bson.M{"_id": p.ID, "status": prev}, p)
}

func (r *mongoPaymentRepo) ListByBill(ctx context.Context, billID string) ([]*models.Payment, error) {
	return findMany[models.Payment](ctx, r.col, bson.M{"bill_id": billID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *mongoPaymentRepo) ListByAgency(ctx context.Context, agencyID string, status models.PaymentStatus) ([]*models.Payment, error) {
	filter := bson.M{"agency_id": agencyID}
	if status != "" {
		filter["status"] = status
	}
	return findMany[models.Payment](ctx, r.col, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}
