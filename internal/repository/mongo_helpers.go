package repository

import (
	"context"
	"errors"

	"github.com/fathima-sithara/moms/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ensureIndexes(col *mongo.Collection, idx ...mongo.IndexModel) {
	_, _ = col.Indexes().CreateMany(context.Background(), idx)
}

func findOne[T any](ctx context.Context, col *mongo.Collection, filter interface{}, opts ...*options.FindOneOptions) (*T, error) {
	var v T
	err := col.FindOne(ctx, filter, opts...).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func findMany[T any](ctx context.Context, col *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]*T, error) {
	cur, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*T, 0)
	for cur.Next(ctx) {
		var v T
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, cur.Err()
}

func insert(ctx context.Context, col *mongo.Collection, doc interface{}) error {
	_, err := col.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

// replaceWhere replaces the document matching filter, reporting ErrConflict
// when nothing matched.
func replaceWhere(ctx context.Context, col *mongo.Collection, filter bson.M, doc interface{}) error {
	res, err := col.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrConflict
	}
	return nil
}

func updateByID(ctx context.Context, col *mongo.Collection, id string, update bson.M) error {
	res, err := col.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func orderFilter(base bson.M, f models.OrderFilter) (bson.M, *options.FindOptions) {
	switch {
	case f.Date != "":
		base["date"] = f.Date
	case f.From != "" || f.To != "":
		r := bson.M{}
		if f.From != "" {
			r["$gte"] = f.From
		}
		if f.To != "" {
			r["$lte"] = f.To
		}
		base["date"] = r
	}
	if f.MealType != "" {
		base["meal_type"] = f.MealType
	}
	if f.Status != "" {
		base["status"] = f.Status
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "created_at", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	return base, opts
}
