package surveysession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/falanarofako/backend-conversational-survey/pkg/db"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/types"
)

const (
	INDEX_NAME_ACTIVE_SESSION = "userID_1_activeSession"
	INDEX_NAME_STATUS_UPDATED = "status_1_updatedAt_-1"
)

func (dbService *SurveySessionDBService) CreateIndexForSessions() error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := db.EnsureIndexes(ctx, dbService.collectionSessions(), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "userID", Value: 1},
			},
			Options: options.Index().
				SetName(INDEX_NAME_ACTIVE_SESSION).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": types.SESSION_STATUS_IN_PROGRESS}),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "updatedAt", Value: -1},
			},
			Options: options.Index().SetName(INDEX_NAME_STATUS_UPDATED),
		},
	})
	return err
}

type startOutcome struct {
	session types.SurveySession
	created bool
}

// StartSession returns the user's in-progress session or inserts the given one.
// Both the session and the respondent's active pointer are written in one
// transaction; a concurrent insert loses on the partial unique index and gets the
// winner's session back.
func (dbService *SurveySessionDBService) StartSession(session types.SurveySession) (types.SurveySession, bool, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	mongoSession, err := dbService.DBClient.StartSession()
	if err != nil {
		return types.SurveySession{}, false, err
	}
	defer mongoSession.EndSession(ctx)

	result, err := mongoSession.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		existing, err := dbService.findActiveSession(sc, session.UserID)
		if err == nil {
			return startOutcome{session: existing, created: false}, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}

		if session.ID.IsZero() {
			session.ID = primitive.NewObjectID()
		}
		if _, err := dbService.collectionSessions().InsertOne(sc, session); err != nil {
			return nil, err
		}
		if err := dbService.setActiveSession(sc, session.UserID, session.ID, session.UpdatedAt); err != nil {
			return nil, err
		}
		return startOutcome{session: session, created: true}, nil
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			existing, findErr := dbService.findActiveSession(ctx, session.UserID)
			if findErr == nil {
				return existing, false, nil
			}
		}
		return types.SurveySession{}, false, err
	}

	outcome := result.(startOutcome)
	return outcome.session, outcome.created, nil
}

func (dbService *SurveySessionDBService) findActiveSession(ctx context.Context, userID string) (types.SurveySession, error) {
	filter := bson.M{
		"userID": userID,
		"status": types.SESSION_STATUS_IN_PROGRESS,
	}
	var session types.SurveySession
	err := dbService.collectionSessions().FindOne(ctx, filter).Decode(&session)
	return session, err
}

func (dbService *SurveySessionDBService) GetSession(sessionID string) (types.SurveySession, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return types.SurveySession{}, fmt.Errorf("%s: %w", sessionID, types.ErrSessionNotFound)
	}

	var session types.SurveySession
	err = dbService.collectionSessions().FindOne(ctx, bson.M{"_id": _id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.SurveySession{}, fmt.Errorf("%s: %w", sessionID, types.ErrSessionNotFound)
		}
		return types.SurveySession{}, err
	}
	return session, nil
}

// SaveSession replaces the stored session. Completing a session clears the
// respondent's active pointer in the same transaction.
func (dbService *SurveySessionDBService) SaveSession(session types.SurveySession) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	mongoSession, err := dbService.DBClient.StartSession()
	if err != nil {
		return err
	}
	defer mongoSession.EndSession(ctx)

	_, err = mongoSession.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := dbService.collectionSessions().ReplaceOne(sc, bson.M{"_id": session.ID}, session)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount < 1 {
			return nil, fmt.Errorf("%s: %w", session.ID.Hex(), types.ErrSessionNotFound)
		}
		if session.IsCompleted() {
			if err := dbService.clearActiveSession(sc, session.UserID, session.ID); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// FindAndExecuteOnSessions streams sessions matching filter into fn.
func (dbService *SurveySessionDBService) FindAndExecuteOnSessions(
	ctx context.Context,
	filter bson.M,
	returnOnError bool,
	fn func(session types.SurveySession) error,
) error {
	opts := options.Find().SetSort(bson.M{"createdAt": 1})
	if dbService.noCursorTimeout {
		opts.SetNoCursorTimeout(true)
	}

	cursor, err := dbService.collectionSessions().Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var session types.SurveySession
		if err = cursor.Decode(&session); err != nil {
			slog.Error("Error while decoding survey session", slog.String("error", err.Error()))
			continue
		}

		if err = fn(session); err != nil {
			slog.Error("Error while executing function on survey session", slog.String("sessionID", session.ID.Hex()), slog.String("error", err.Error()))
			if returnOnError {
				return err
			}
		}
	}
	return cursor.Err()
}
