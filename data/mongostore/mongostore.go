// mongostore keeps one document per week in a collection with a unique
// index on weekStartDate. Day and class appends are single positional
// updates so no multi document transactions are needed.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/Pjt727/timetable/data/timetable"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	DefaultDatabase   = "TimetableDatabase"
	WeekCollection    = "weeks"
	weekStartIndexKey = "weekStartDate_unique"
)

type Repository struct {
	client *mongo.Client
	weeks  *mongo.Collection
}

// Open connects, verifies the server answers and makes sure the unique
// index exists before any writes happen
func Open(ctx context.Context, uri string, database string) (*Repository, error) {
	if database == "" {
		database = DefaultDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, timetable.Unavailable("connect mongo", err)
	}
	r := &Repository{
		client: client,
		weeks:  client.Database(database).Collection(WeekCollection),
	}
	if err := r.Ping(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	if err := r.EnsureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return r, nil
}

func (r *Repository) Close() error {
	return r.client.Disconnect(context.Background())
}

func (r *Repository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx, readpref.Primary()); err != nil {
		return timetable.Unavailable("ping mongo", err)
	}
	return nil
}

// EnsureIndexes is idempotent, creating an index that already exists is a no-op
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.weeks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "weekStartDate", Value: 1}},
		Options: options.Index().SetUnique(true).SetName(weekStartIndexKey),
	})
	if err != nil {
		return classify("create weekStartDate index", err)
	}
	return nil
}

func (r *Repository) AppendClassToDay(ctx context.Context, weekStart string, dayLabel string, c timetable.Class) (bool, error) {
	res, err := r.weeks.UpdateOne(ctx,
		bson.M{"weekStartDate": weekStart, "days.date": dayLabel},
		bson.M{"$push": bson.M{"days.$.classes": c}},
	)
	if err != nil {
		return false, classify("append class", err)
	}
	return res.MatchedCount > 0, nil
}

func (r *Repository) AppendDay(ctx context.Context, weekStart string, d timetable.Day) (bool, error) {
	// the label filter keeps a concurrent writer from adding the same day twice
	res, err := r.weeks.UpdateOne(ctx,
		bson.M{"weekStartDate": weekStart, "days.date": bson.M{"$ne": d.Date}},
		bson.M{"$push": bson.M{"days": d}},
	)
	if err != nil {
		return false, classify("append day", err)
	}
	return res.MatchedCount > 0, nil
}

func (r *Repository) InsertWeek(ctx context.Context, w timetable.Week) error {
	_, err := r.weeks.InsertOne(ctx, w)
	if err != nil {
		return classify("insert week", err)
	}
	return nil
}

func (r *Repository) FindWeeks(ctx context.Context) ([]timetable.Week, error) {
	cursor, err := r.weeks.Find(ctx, bson.M{},
		options.Find().
			SetProjection(bson.M{"_id": 0}).
			SetSort(bson.D{{Key: "weekStartDate", Value: 1}}),
	)
	if err != nil {
		return nil, classify("find weeks", err)
	}
	weeks := []timetable.Week{}
	if err := cursor.All(ctx, &weeks); err != nil {
		return nil, classify("decode weeks", err)
	}
	return weeks, nil
}

// classify maps driver errors onto the timetable errors
func classify(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w: %v", op, timetable.ErrDuplicateWeek, err)
	}
	var writeErr mongo.WriteException
	var commandErr mongo.CommandError
	if errors.As(err, &writeErr) || errors.As(err, &commandErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	// network, timeouts, server selection and disconnected clients
	return timetable.Unavailable(op, err)
}
