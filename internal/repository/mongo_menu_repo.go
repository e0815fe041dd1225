package repository

import (
	"context"
	"time"

	"github.com/fathima-sithara/moms/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoCatalogRepo struct {
	col *mongo.Collection
}

func NewMongoCatalogRepo(db *mongo.Database) CatalogRepository {
	col := db.Collection("menu_items")
	ensureIndexes(col,
		mongo.IndexModel{Keys: bson.D{{Key: "agency_id", Value: 1}, {Key: "name", Value: 1}}},
	)
	return &mongoCatalogRepo{col: col}
}

func (r *mongoCatalogRepo) Create(ctx context.Context, it *models.CatalogItem) error {
	it.CreatedAt = time.Now().UTC()
	it.UpdatedAt = it.CreatedAt
	return insert(ctx, r.col, it)
}

func (r *mongoCatalogRepo) Update(ctx context.Context, it *models.CatalogItem) error {
	it.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": it.ID, "agency_id": it.AgencyID}, it)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoCatalogRepo) Delete(ctx context.Context, agencyID, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "agency_id": agencyID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoCatalogRepo) FindByID(ctx context.Context, agencyID, id string) (*models.CatalogItem, error) {
	return findOne[models.CatalogItem](ctx, r.col, bson.M{"_id": id, "agency_id": agencyID})
}

func (r *mongoCatalogRepo) ListByAgency(ctx context.Context, agencyID string) ([]*models.CatalogItem, error) {
	return findMany[models.CatalogItem](ctx, r.col, bson.M{"agency_id": agencyID},
		options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}}))
}

type mongoMenuRepo struct {
	col *mongo.Collection
}

func NewMongoMenuRepo(db *mongo.Database) MenuRepository {
	col := db.Collection("daily_menus")
	ensureIndexes(col,
		mongo.IndexModel{Keys: bson.D{{Key: "agency_id", Value: 1}, {Key: "date", Value: 1}}, Options: options.Index().SetUnique(true)},
	)
	return &mongoMenuRepo{col: col}
}

func (r *mongoMenuRepo) Get(ctx context.Context, agencyID, date string) (*models.DailyMenu, error) {
	return findOne[models.DailyMenu](ctx, r.col, bson.M{"_id": models.DailyMenuID(agencyID, date)})
}

func (r *mongoMenuRepo) Save(ctx context.Context, m *models.DailyMenu) error {
	m.ID = models.DailyMenuID(m.AgencyID, m.Date)
	m.UpdatedAt = time.Now().UTC()
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": m.ID}, m, options.Replace().SetUpsert(true))
	return err
}

func (r *mongoMenuRepo) ListRange(ctx context.Context, agencyID, from, to string) ([]*models.DailyMenu, error) {
	return findMany[models.DailyMenu](ctx, r.col,
		bson.M{"agency_id": agencyID, "date": bson.M{"$gte": from, "$lte": to}},
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
}
