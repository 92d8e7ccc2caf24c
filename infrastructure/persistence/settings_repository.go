package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"news-social/domain/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const settingsCollection = "settings"

type settingsDocument struct {
	Category  string    `bson:"category"`
	Settings  bson.M    `bson:"settings"`
	UpdatedBy string    `bson:"updatedBy,omitempty"`
	UpdatedAt time.Time `bson:"updatedAt,omitempty"`
}

type settingsRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewSettingsRepository stores one document per category in the "settings" collection.
func NewSettingsRepository(db *mongo.Database) repository.ISettings {
	return &settingsRepository{coll: db.Collection(settingsCollection), now: time.Now}
}

func (r *settingsRepository) GetCategorySettings(ctx context.Context, category string) (map[string]any, error) {
	var doc settingsDocument
	err := r.coll.FindOne(ctx, bson.D{{Key: "category", Value: category}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s settings: %w", category, err)
	}
	return normalizeSettings(doc.Settings), nil
}

func (r *settingsRepository) UpdateCategorySettings(ctx context.Context, category string, patch map[string]any, actorID string) error {
	update, err := settingsUpdate(patch, actorID, r.now().UTC())
	if err != nil {
		return err
	}
	_, err = r.coll.UpdateOne(ctx,
		bson.D{{Key: "category", Value: category}},
		update,
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("update %s settings: %w", category, err)
	}
	return nil
}

// settingsUpdate builds $set settings.<key> for each value and $unset for nils.
func settingsUpdate(patch map[string]any, actorID string, now time.Time) (bson.M, error) {
	set := bson.M{"updatedBy": actorID, "updatedAt": now}
	unset := bson.M{}
	for k, v := range patch {
		if k == "" || strings.ContainsAny(k, ".$") {
			return nil, fmt.Errorf("invalid settings key %q", k)
		}
		if v == nil {
			unset["settings."+k] = ""
			continue
		}
		set["settings."+k] = v
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update, nil
}

// normalizeSettings converts driver-specific values into plain Go types.
func normalizeSettings(in bson.M) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case bson.DateTime:
			out[k] = t.Time().UTC()
		default:
			out[k] = v
		}
	}
	return out
}
