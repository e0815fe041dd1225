package repository

import (
	"context"
	"time"

	"github.com/fathima-sithara/moms/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoHouseRepo struct {
	col *mongo.Collection
}

func NewMongoHouseRepo(db *mongo.Database) HouseRepository {
	col := db.Collection("houses")
	ensureIndexes(col,
		mongo.IndexModel{Keys: bson.D{{Key: "agency_id", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "member_phones", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "house_admin_phone", Value: 1}}},
	)
	return &mongoHouseRepo{col: col}
}

func (r *mongoHouseRepo) Create(ctx context.Context, h *models.House) error {
	h.CreatedAt = time.Now().UTC()
	h.UpdatedAt = h.CreatedAt
	return insert(ctx, r.col, h)
}

func (r *mongoHouseRepo) Update(ctx context.Context, h *models.House) error {
	h.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": h.ID}, h)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoHouseRepo) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoHouseRepo) FindByID(ctx context.Context, id string) (*models.House, error) {
	return findOne[models.House](ctx, r.col, bson.M{"_id": id})
}

func (r *mongoHouseRepo) FindByMemberPhone(ctx context.Context, phone string) (*models.House, error) {
	return findOne[models.House](ctx, r.col, bson.M{"member_phones": phone})
}

func (r *mongoHouseRepo) FindByAdminPhone(ctx context.Context, phone string) (*models.House, error) {
	return findOne[models.House](ctx, r.col, bson.M{"house_admin_phone": phone})
}

func (r *mongoHouseRepo) ListByAgency(ctx context.Context, agencyID string) ([]*models.House, error) {
	return findMany[models.House](ctx, r.col, bson.M{"agency_id": agencyID},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (r *mongoHouseRepo) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{})
}

type mongoAgencyRepo struct {
	col *mongo.Collection
}

func NewMongoAgencyRepo(db *mongo.Database) AgencyRepository {
	col := db.Collection("agencies")
	ensureIndexes(col,
		mongo.IndexModel{Keys: bson.D{{Key: "owner_id", Value: 1}}, Options: options.Index().SetSparse(true)},
		mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}}},
	)
	return &mongoAgencyRepo{col: col}
}

func (r *mongoAgencyRepo) Create(ctx context.Context, a *models.Agency) error {
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	return insert(ctx, r.col, a)
}

func (r *mongoAgencyRepo) Update(ctx context.Context, a *models.Agency) error {
	a.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": a.ID}, a)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoAgencyRepo) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoAgencyRepo) FindByID(ctx context.Context, id string) (*models.Agency, error) {
	return findOne[models.Agency](ctx, r.col, bson.M{"_id": id})
}

func (r *mongoAgencyRepo) FindByOwnerID(ctx context.Context, ownerID string) (*models.Agency, error) {
	return findOne[models.Agency](ctx, r.col, bson.M{"owner_id": ownerID})
}

func (r *mongoAgencyRepo) List(ctx context.Context, status models.AgencyStatus) ([]*models.Agency, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return findMany[models.Agency](ctx, r.col, filter,
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}
