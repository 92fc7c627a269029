package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/apines/go-travelcover/internal/core"
)

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}

type QuoteRepoMongo struct {
	coll      *mongodrv.Collection
	opTimeout time.Duration
}

func NewQuoteRepo(db *mongodrv.Database, opTimeout time.Duration) *QuoteRepoMongo {
	return &QuoteRepoMongo{
		coll:      db.Collection(ColQuotes),
		opTimeout: opTimeout,
	}
}

func (r *QuoteRepoMongo) Create(ctx context.Context, q core.Quote) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	_, err := r.coll.InsertOne(ctx, toQuoteDoc(q))
	if err != nil {
		if mongodrv.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: quote %s", core.ErrConflict, q.ID)
		}
		return fmt.Errorf("quotes.insert: %w", err)
	}
	return nil
}

// Get returns a quote by ID. Returns core.ErrQuoteNotFound if absent.
func (r *QuoteRepoMongo) Get(ctx context.Context, id string) (core.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	var doc quoteDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return core.Quote{}, core.ErrQuoteNotFound
		}
		return core.Quote{}, fmt.Errorf("quotes.findOne: %w", err)
	}
	return fromQuoteDoc(doc), nil
}

// FindExpired lists priced quotes whose validity has lapsed.
func (r *QuoteRepoMongo) FindExpired(ctx context.Context, now time.Time, limit int) ([]core.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	filter := bson.M{
		"status":     string(core.QuoteStatusPriced),
		"expires_at": bson.M{"$lt": now},
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("quotes.find: %w", err)
	}
	defer cur.Close(ctx)

	var quotes []core.Quote
	for cur.Next(ctx) {
		var doc quoteDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("quotes.decode: %w", err)
		}
		quotes = append(quotes, fromQuoteDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("quotes.cursor: %w", err)
	}
	return quotes, nil
}

func (r *QuoteRepoMongo) UpdateStatus(ctx context.Context, id string, status core.QuoteStatus) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": string(status)}})
	if err != nil {
		return fmt.Errorf("quotes.updateStatus: %w", err)
	}
	if res.MatchedCount == 0 {
		return core.ErrQuoteNotFound
	}
	return nil
}
