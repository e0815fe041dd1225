package repository

import (
	"context"
	"time"

	"github.com/fathima-sithara/moms/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoCredentialRepo struct {
	col *mongo.Collection
}

func NewMongoCredentialRepo(db *mongo.Database) CredentialRepository {
	col := db.Collection("credentials")
	ensureIndexes(col,
		mongo.IndexModel{Keys: bson.D{{Key: "identifier", Value: 1}}, Options: options.Index().SetUnique(true)},
	)
	return &mongoCredentialRepo{col: col}
}

func (r *mongoCredentialRepo) Create(ctx context.Context, c *models.Credential) error {
	c.CreatedAt = time.Now().UTC()
	return insert(ctx, r.col, c)
}

func (r *mongoCredentialRepo) FindByIdentifier(ctx context.Context, identifier string) (*models.Credential, error) {
	return findOne[models.Credential](ctx, r.col, bson.M{"identifier": identifier})
}

func (r *mongoCredentialRepo) FindByID(ctx context.Context, id string) (*models.Credential, error) {
	return findOne[models.Credential](ctx, r.col, bson.M{"_id": id})
}

func (r *mongoCredentialRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return updateByID(ctx, r.col, id, bson.M{"$set": bson.M{"password_hash": hash}})
}

func (r *mongoCredentialRepo) Delete(ctx context.Context, id string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

type mongoUserRepo struct {
	col *mongo.Collection
}

func NewMongoUserRepo(db *mongo.Database) UserRepository {
	col := db.Collection("users")
	ensureIndexes(col,
		mongo.IndexModel{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		mongo.IndexModel{Keys: bson.D{{Key: "house_id", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "agency_id", Value: 1}, {Key: "role", Value: 1}}},
	)
	return &mongoUserRepo{col: col}
}

func (r *mongoUserRepo) Save(ctx context.Context, u *models.Identity) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": u.ID}, u, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *mongoUserRepo) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	return findOne[models.Identity](ctx, r.col, bson.M{"_id": id})
}

func (r *mongoUserRepo) FindByPhone(ctx context.Context, phone string) (*models.Identity, error) {
	return findOne[models.Identity](ctx, r.col, bson.M{"phone": phone})
}

func (r *mongoUserRepo) ListByHouse(ctx context.Context, houseID string) ([]*models.Identity, error) {
	return findMany[models.Identity](ctx, r.col, bson.M{"house_id": houseID},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (r *mongoUserRepo) ListByAgency(ctx context.Context, agencyID string, roles ...models.RoleName) ([]*models.Identity, error) {
	filter := bson.M{"agency_id": agencyID}
	if len(roles) > 0 {
		filter["role"] = bson.M{"$in": roles}
	}
	return findMany[models.Identity](ctx, r.col, filter,
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (r *mongoUserRepo) CountByRole(ctx context.Context) (map[models.RoleName]int64, error) {
	cur, err := r.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$role", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[models.RoleName]int64)
	for cur.Next(ctx) {
		var row struct {
			Role  models.RoleName `bson:"_id"`
			Count int64           `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Role] = row.Count
	}
	return out, cur.Err()
}
