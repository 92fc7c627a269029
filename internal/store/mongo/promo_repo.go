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

type PromoRepoMongo struct {
	coll      *mongodrv.Collection
	opTimeout time.Duration
}

func NewPromoRepo(db *mongodrv.Database, opTimeout time.Duration) *PromoRepoMongo {
	return &PromoRepoMongo{
		coll:      db.Collection(ColPromoCodes),
		opTimeout: opTimeout,
	}
}

func (r *PromoRepoMongo) FindActive(ctx context.Context, code string, asOf time.Time) (core.PromoCode, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	filter := validityFilter(asOf)
	filter["_id"] = code
	var doc promoCodeDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return core.PromoCode{}, core.ErrPromoNotFound
		}
		return core.PromoCode{}, fmt.Errorf("promo_codes.findOne: %w", err)
	}
	return doc.toCore(), nil
}

// Redeem increments the usage counter with the limit re-checked in the update
// filter, so concurrent redemptions cannot exceed the cap.
func (r *PromoRepoMongo) Redeem(ctx context.Context, code string) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	filter := bson.M{
		"_id": code,
		"$or": bson.A{
			bson.M{"usage_limit": bson.M{"$lte": 0}}, // unlimited
			bson.M{"$expr": bson.M{"$lt": bson.A{"$used_count", "$usage_limit"}}},
		},
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"used_count": 1}})
	if err != nil {
		return fmt.Errorf("promo_codes.redeem: %w", err)
	}
	if res.MatchedCount == 0 {
		// Either unknown or exhausted; look it up to report which.
		var doc promoCodeDoc
		if err := r.coll.FindOne(ctx, bson.M{"_id": code}).Decode(&doc); err != nil {
			if errors.Is(err, mongodrv.ErrNoDocuments) {
				return core.ErrPromoNotFound
			}
			return fmt.Errorf("promo_codes.findOne: %w", err)
		}
		return core.ErrPromoExhausted
	}
	return nil
}

// Upsert writes a promo code; used by the seed command.
func (r *PromoRepoMongo) Upsert(ctx context.Context, p core.PromoCode) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	doc := promoCodeDoc{
		Code:        p.Code,
		Percentage:  p.Percentage,
		UsageLimit:  p.UsageLimit,
		UsedCount:   p.UsedCount,
		validityDoc: toValidityDoc(p.Validity),
	}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": p.Code}, doc,
		options.Replace().SetUpsert(true))
	return err
}
