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

type ExecutionRepo interface {
	// Insert records a freshly created execution.
	Insert(ctx context.Context, execution *model.SearchExecution) error
	// UpdateStatus moves an execution to a new status. EndTime and
	// errorMessage are written for terminal states.
	UpdateStatus(ctx context.Context, executionID, status, errorMessage string, endTime time.Time) error
	// AppendResults appends rows in order and bumps the result count.
	AppendResults(ctx context.Context, executionID string, rows []model.SearchResult) error
	// Get returns one execution with its results.
	Get(ctx context.Context, executionID string) (*model.SearchExecution, error)
	// ListBySource returns the most recent executions for a data source,
	// newest first, at most limit entries.
	ListBySource(ctx context.Context, dashboardID, sourceID string, limit int) ([]*model.SearchExecution, error)
	// DeleteByDashboard removes every execution a dashboard owns.
	DeleteByDashboard(ctx context.Context, dashboardID string) error
}

func NewExecutionRepo(client *mongo.Client, databaseName, collectionName string) ExecutionRepo {
	collection := client.Database(databaseName).Collection(collectionName)
	return &executionRepo{
		collection: collection,
	}
}

type executionRepo struct {
	collection *mongo.Collection
}

func (r *executionRepo) Insert(ctx context.Context, execution *model.SearchExecution) error {
	result, err := r.collection.InsertOne(ctx, execution)
	if err != nil {
		return err
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		execution.ID = id
	}
	return nil
}

func (r *executionRepo) UpdateStatus(ctx context.Context, executionID, status, errorMessage string, endTime time.Time) error {
	update := bson.M{"status": status}
	if errorMessage != "" {
		update["error_message"] = errorMessage
	}
	if !endTime.IsZero() {
		update["end_time"] = primitive.NewDateTimeFromTime(endTime)
	}
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"execution_id": executionID},
		bson.M{"$set": update},
	)
	return err
}

func (r *executionRepo) AppendResults(ctx context.Context, executionID string, rows []model.SearchResult) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"execution_id": executionID},
		bson.M{
			"$push": bson.M{"results": bson.M{"$each": rows}},
			"$inc":  bson.M{"result_count": len(rows)},
		},
	)
	return err
}

func (r *executionRepo) Get(ctx context.Context, executionID string) (*model.SearchExecution, error) {
	var execution model.SearchExecution
	err := r.collection.FindOne(ctx, bson.M{"execution_id": executionID}).Decode(&execution)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &execution, nil
}

func (r *executionRepo) ListBySource(ctx context.Context, dashboardID, sourceID string, limit int) ([]*model.SearchExecution, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx,
		bson.M{"dashboard_id": dashboardID, "source_id": sourceID},
		opts,
	)
	if err != nil {
		return nil, err
	}
	defer func(cursor *mongo.Cursor, ctx context.Context) {
		err := cursor.Close(ctx)
		if err != nil {
			return
		}
	}(cursor, ctx)

	var executions []*model.SearchExecution
	for cursor.Next(ctx) {
		var execution model.SearchExecution
		if err := cursor.Decode(&execution); err != nil {
			return nil, err
		}
		executions = append(executions, &execution)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return executions, nil
}

func (r *executionRepo) DeleteByDashboard(ctx context.Context, dashboardID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"dashboard_id": dashboardID})
	return err
}
