package surveysession

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/falanarofako/backend-conversational-survey/pkg/db"
)

// collection names
const (
	COLLECTION_NAME_SESSIONS    = "sessions"
	COLLECTION_NAME_RESPONDENTS = "respondents"
)

type SurveySessionDBService struct {
	DBClient        *mongo.Client
	timeout         int
	noCursorTimeout bool
	DBNamePrefix    string
}

func NewSurveySessionDBService(configs db.DBConfig) (*SurveySessionDBService, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	defer cancel()

	dbClient, err := mongo.Connect(ctx,
		options.Client().ApplyURI(configs.URI),
		options.Client().SetMaxConnIdleTime(time.Duration(configs.IdleConnTimeout)*time.Second),
		options.Client().SetMaxPoolSize(configs.MaxPoolSize),
	)

	if err != nil {
		return nil, err
	}

	ctx, conCancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	err = dbClient.Ping(ctx, nil)
	defer conCancel()

	if err != nil {
		return nil, err
	}

	ssDBSc := &SurveySessionDBService{
		DBClient:        dbClient,
		timeout:         configs.Timeout,
		noCursorTimeout: configs.NoCursorTimeout,
		DBNamePrefix:    configs.DBNamePrefix,
	}

	if configs.RunIndexCreation {
		ssDBSc.ensureIndexes()
	}
	return ssDBSc, nil
}

func (dbService *SurveySessionDBService) getDBName() string {
	return dbService.DBNamePrefix + "surveyDB"
}

func (dbService *SurveySessionDBService) getContext() (ctx context.Context, cancel context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(dbService.timeout)*time.Second)
}

func (dbService *SurveySessionDBService) collectionSessions() *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName()).Collection(COLLECTION_NAME_SESSIONS)
}

func (dbService *SurveySessionDBService) collectionRespondents() *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName()).Collection(COLLECTION_NAME_RESPONDENTS)
}

func (dbService *SurveySessionDBService) ensureIndexes() {
	slog.Debug("Ensuring indexes for survey session DB")

	if err := dbService.CreateIndexForSessions(); err != nil {
		slog.Error("Error creating indexes for survey sessions", slog.String("error", err.Error()))
	}
	if err := dbService.CreateIndexForRespondents(); err != nil {
		slog.Error("Error creating indexes for respondents", slog.String("error", err.Error()))
	}
}

func (dbService *SurveySessionDBService) Close() {
	ctx, cancel := dbService.getContext()
	defer cancel()
	if err := dbService.DBClient.Disconnect(ctx); err != nil {
		slog.Error("Error closing survey session DB connection", slog.String("error", err.Error()))
	}
}
