package db

import (
	"context"
	"errors"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// mongo reports NamespaceNotFound when listing indexes of a collection that does not exist yet
const errCodeNamespaceNotFound = 26

func listIndexNames(ctx context.Context, collection *mongo.Collection) (map[string]bool, error) {
	cursor, err := collection.Indexes().List(ctx)
	if err != nil {
		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) && cmdErr.Code == errCodeNamespaceNotFound {
			return map[string]bool{}, nil
		}
		return nil, err
	}
	defer cursor.Close(ctx)

	indexes := []bson.M{}
	if err = cursor.All(ctx, &indexes); err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(indexes))
	for _, index := range indexes {
		if name, ok := index["name"].(string); ok {
			names[name] = true
		}
	}
	return names, nil
}

// EnsureIndexes creates the named index models missing from the collection and
// returns how many were created. Every model must carry a name.
func EnsureIndexes(ctx context.Context, collection *mongo.Collection, models []mongo.IndexModel) (int, error) {
	existing, err := listIndexNames(ctx, collection)
	if err != nil {
		return 0, err
	}

	missing := []mongo.IndexModel{}
	for _, model := range models {
		if model.Options == nil || model.Options.Name == nil {
			return 0, errors.New("index model without name")
		}
		if existing[*model.Options.Name] {
			continue
		}
		missing = append(missing, model)
	}
	if len(missing) == 0 {
		slog.Debug("indexes already present", slog.String("collection", collection.Name()))
		return 0, nil
	}

	if _, err := collection.Indexes().CreateMany(ctx, missing); err != nil {
		return 0, err
	}
	slog.Info("indexes created", slog.String("collection", collection.Name()), slog.Int("count", len(missing)))
	return len(missing), nil
}
