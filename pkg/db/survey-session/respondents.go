package surveysession

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/falanarofako/backend-conversational-survey/pkg/db"
)

const INDEX_NAME_RESPONDENT_USER = "userID_1"

// Respondent tracks the active session pointer of a user.
type Respondent struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	UserID          string             `bson:"userID"`
	ActiveSessionID primitive.ObjectID `bson:"activeSessionID,omitempty"`
	UpdatedAt       int64              `bson:"updatedAt"`
}

func (dbService *SurveySessionDBService) CreateIndexForRespondents() error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := db.EnsureIndexes(ctx, dbService.collectionRespondents(), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "userID", Value: 1},
			},
			Options: options.Index().SetName(INDEX_NAME_RESPONDENT_USER).SetUnique(true),
		},
	})
	return err
}

func (dbService *SurveySessionDBService) GetRespondent(userID string) (Respondent, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var r Respondent
	err := dbService.collectionRespondents().FindOne(ctx, bson.M{"userID": userID}).Decode(&r)
	return r, err
}

func (dbService *SurveySessionDBService) setActiveSession(ctx context.Context, userID string, sessionID primitive.ObjectID, updatedAt int64) error {
	_, err := dbService.collectionRespondents().UpdateOne(ctx,
		bson.M{"userID": userID},
		bson.M{"$set": bson.M{"activeSessionID": sessionID, "updatedAt": updatedAt}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (dbService *SurveySessionDBService) clearActiveSession(ctx context.Context, userID string, sessionID primitive.ObjectID) error {
	_, err := dbService.collectionRespondents().UpdateOne(ctx,
		bson.M{"userID": userID, "activeSessionID": sessionID},
		bson.M{"$unset": bson.M{"activeSessionID": ""}},
	)
	return err
}
