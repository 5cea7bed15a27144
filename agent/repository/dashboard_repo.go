package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"Vista/agent/model"
)

// ErrNotFound is returned when no dashboard exists under a key.
var ErrNotFound = errors.New("not found")

type DashboardRepo interface {
	// Replace commits a freshly built graph under its (namespace, name)
	// key, replacing any previous graph atomically. Either the whole new
	// graph becomes visible or the old one stays; no partial graphs.
	Replace(ctx context.Context, dashboard *model.Dashboard) error
	// Get returns the graph under a key.
	Get(ctx context.Context, namespace, name string) (*model.Dashboard, error)
	// GetDashboards returns all persisted dashboards.
	GetDashboards(ctx context.Context) ([]*model.Dashboard, error)
	// Delete removes a dashboard; owned executions cascade.
	Delete(ctx context.Context, namespace, name string) error
	// ContentHash returns the stored source hash for a key, if present.
	ContentHash(ctx context.Context, namespace, name string) (string, error)
}

func NewDashboardRepo(client *mongo.Client, databaseName, collectionName string, executions ExecutionRepo) DashboardRepo {
	collection := client.Database(databaseName).Collection(collectionName)
	return &dashboardRepo{
		collection: collection,
		executions: executions,
	}
}

type dashboardRepo struct {
	collection *mongo.Collection
	executions ExecutionRepo
}

func (d *dashboardRepo) Replace(ctx context.Context, dashboard *model.Dashboard) error {
	now := primitive.NewDateTimeFromTime(time.Now())
	dashboard.UpdatedAt = now
	if dashboard.CreatedAt == 0 {
		dashboard.CreatedAt = now
	}

	filter := bson.M{"namespace": dashboard.Namespace, "name": dashboard.Name}
	opts := options.Replace().SetUpsert(true)
	result, err := d.collection.ReplaceOne(ctx, filter, dashboard, opts)
	if err != nil {
		return err
	}
	if result.UpsertedID != nil {
		if id, ok := result.UpsertedID.(primitive.ObjectID); ok {
			dashboard.ID = id
		}
	}
	return nil
}

func (d *dashboardRepo) Get(ctx context.Context, namespace, name string) (*model.Dashboard, error) {
	filter := bson.M{"namespace": namespace, "name": name}
	var dashboard model.Dashboard
	err := d.collection.FindOne(ctx, filter).Decode(&dashboard)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dashboard, nil
}

func (d *dashboardRepo) GetDashboards(ctx context.Context) ([]*model.Dashboard, error) {
	cursor, err := d.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer func(cursor *mongo.Cursor, ctx context.Context) {
		err := cursor.Close(ctx)
		if err != nil {
			return
		}
	}(cursor, ctx)

	var dashboards []*model.Dashboard
	for cursor.Next(ctx) {
		var dashboard model.Dashboard
		if err := cursor.Decode(&dashboard); err != nil {
			return nil, err
		}
		dashboards = append(dashboards, &dashboard)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return dashboards, nil
}

func (d *dashboardRepo) Delete(ctx context.Context, namespace, name string) error {
	existing, err := d.Get(ctx, namespace, name)
	if err != nil {
		return err
	}

	filter := bson.M{"namespace": namespace, "name": name}
	if _, err := d.collection.DeleteOne(ctx, filter); err != nil {
		return err
	}

	// Cascade to the executions the dashboard owns.
	if d.executions != nil {
		return d.executions.DeleteByDashboard(ctx, existing.Key())
	}
	return nil
}

func (d *dashboardRepo) ContentHash(ctx context.Context, namespace, name string) (string, error) {
	filter := bson.M{"namespace": namespace, "name": name}
	opts := options.FindOne().SetProjection(bson.M{"content_hash": 1})
	var partial struct {
		ContentHash string `bson:"content_hash"`
	}
	err := d.collection.FindOne(ctx, filter, opts).Decode(&partial)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return partial.ContentHash, nil
}
