package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

type CategoryRepository struct {
	coll      *mongo.Collection
	documents *mongo.Collection
}

func NewCategoryRepository(db *mongo.Database) *CategoryRepository {
	return &CategoryRepository{
		coll:      db.Collection(categoriesCollection),
		documents: db.Collection(documentsCollection),
	}
}

func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	rec := categoryRecord{ID: c.ID, Name: c.Name, Description: c.Description, CreatedAt: c.CreatedAt}
	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.WrapError(domain.ErrConflict, "create category", fmt.Errorf("name %q already exists", c.Name))
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}}).SetCollation(caseInsensitive)
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}
	defer cursor.Close(ctx)

	var recs []categoryRecord
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}

	counts, err := r.activeCounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0, len(recs))
	for _, rec := range recs {
		c := rec.toDomain()
		c.DocumentCount = counts[c.ID]
		out = append(out, c)
	}
	return out, nil
}

func (r *CategoryRepository) activeCounts(ctx context.Context) (map[string]int, error) {
	cursor, err := r.documents.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"category_id": bson.M{"$ne": nil},
			"status":      bson.M{"$ne": string(domain.StatusArchived)},
		}}},
		{{Key: "$group", Value: bson.M{"_id": "$category_id", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate category counts: %w", err)
	}
	defer cursor.Close(ctx)

	counts := map[string]int{}
	for cursor.Next(ctx) {
		var row struct {
			ID    string `bson:"_id"`
			Count int    `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode category count: %w", err)
		}
		counts[row.ID] = row.Count
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate category counts: %w", err)
	}
	return counts, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	return r.findOne(ctx, bson.M{"_id": id}, options.FindOne())
}

func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	return r.findOne(ctx, bson.M{"name": name}, options.FindOne().SetCollation(caseInsensitive))
}

func (r *CategoryRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*domain.Category, error) {
	var rec categoryRecord
	if err := r.coll.FindOne(ctx, filter, opts).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.WrapError(domain.ErrCategoryNotFound, "get category", fmt.Errorf("filter=%v", filter))
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	c := rec.toDomain()
	n, err := r.documents.CountDocuments(ctx, bson.M{
		"category_id": c.ID,
		"status":      bson.M{"$ne": string(domain.StatusArchived)},
	})
	if err != nil {
		return nil, fmt.Errorf("count category documents: %w", err)
	}
	c.DocumentCount = int(n)
	return &c, nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.WrapError(domain.ErrCategoryNotFound, "delete category", fmt.Errorf("id=%s", id))
	}
	return nil
}
