package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campushub/pkg/config"
	"campushub/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName        = "Occupancy"
	MarkersCollectionName = "Markers"

	nightlyResetMarkerID = "nightly-reset"
)

// OccupancyRepository persists the single occupancy document. Every
// mutation is a whole-document replace; concurrent writers resolve as
// last-write-wins.
type OccupancyRepository interface {
	Get(ctx context.Context) (*model.OccupancyState, error)
	Replace(ctx context.Context, state *model.OccupancyState) error
	LastResetDay(ctx context.Context) (string, error)
	SetLastResetDay(ctx context.Context, day string) error
}

type mongoOccupancyRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	markers    *mongo.Collection
}

func NewMongoOccupancyRepository(cfg *config.Config) OccupancyRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoOccupancyRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		markers:    db.Collection(MarkersCollectionName),
	}
}

func (r *mongoOccupancyRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return context.WithTimeout(ctx, time.Until(deadline))
	}
	return context.WithTimeout(ctx, timeout)
}

// Get returns the occupancy document, or a fresh empty state when the
// document does not exist yet.
func (r *mongoOccupancyRepository) Get(ctx context.Context) (*model.OccupancyState, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var state model.OccupancyState
	err := r.collection.FindOne(ctx, bson.M{"_id": model.OccupancyDocumentID}).Decode(&state)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.NewOccupancyState(), nil
		}
		return nil, fmt.Errorf("failed to read occupancy document: %w", err)
	}

	if state.CheckIns == nil {
		state.CheckIns = []model.CheckInRecord{}
	}
	if state.ActivityLog == nil {
		state.ActivityLog = []model.ActivityEntry{}
	}
	return &state, nil
}

func (r *mongoOccupancyRepository) Replace(ctx context.Context, state *model.OccupancyState) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	state.ID = model.OccupancyDocumentID
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": model.OccupancyDocumentID}, state, opts); err != nil {
		return fmt.Errorf("failed to replace occupancy document: %w", err)
	}
	return nil
}

type resetMarker struct {
	ID  string `bson:"_id"`
	Day string `bson:"day"`
}

func (r *mongoOccupancyRepository) LastResetDay(ctx context.Context) (string, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var marker resetMarker
	err := r.markers.FindOne(ctx, bson.M{"_id": nightlyResetMarkerID}).Decode(&marker)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read reset marker: %w", err)
	}
	return marker.Day, nil
}

func (r *mongoOccupancyRepository) SetLastResetDay(ctx context.Context, day string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	marker := resetMarker{ID: nightlyResetMarkerID, Day: day}
	if _, err := r.markers.ReplaceOne(ctx, bson.M{"_id": nightlyResetMarkerID}, marker, opts); err != nil {
		return fmt.Errorf("failed to write reset marker: %w", err)
	}
	return nil
}
