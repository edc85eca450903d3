package surveysession

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/falanarofako/backend-conversational-survey/pkg/db"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/types"
)

// Requires a replica set, since sessions are written in transactions.
// Example: SURVEY_TEST_MONGO_URI=mongodb://localhost:27017/?replicaSet=rs0
func testDBService(t *testing.T) *SurveySessionDBService {
	t.Helper()
	uri := os.Getenv("SURVEY_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SURVEY_TEST_MONGO_URI not set")
	}
	dbService, err := NewSurveySessionDBService(db.DBConfig{
		URI:              uri,
		Timeout:          30,
		IdleConnTimeout:  30,
		MaxPoolSize:      8,
		DBNamePrefix:     "TEST_",
		RunIndexCreation: true,
	})
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := dbService.getContext()
		defer cancel()
		_ = dbService.DBClient.Database(dbService.getDBName()).Drop(ctx)
		dbService.Close()
	})
	return dbService
}

func newSession(userID string) types.SurveySession {
	return types.SurveySession{
		UserID:    userID,
		Status:    types.SESSION_STATUS_IN_PROGRESS,
		Responses: []types.Response{},
		CreatedAt: 100,
		UpdatedAt: 100,
	}
}

func TestStartSessionMongo(t *testing.T) {
	dbService := testDBService(t)

	first, created, err := dbService.StartSession(newSession("user-1"))
	if err != nil || !created {
		t.Fatalf("unexpected result: %v %v", created, err)
	}
	second, created, err := dbService.StartSession(newSession("user-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created || second.ID != first.ID {
		t.Errorf("start twice should return the same session")
	}

	r, err := dbService.GetRespondent("user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ActiveSessionID != first.ID {
		t.Errorf("unexpected active session: %s", r.ActiveSessionID.Hex())
	}
}

func TestConcurrentStartSessionMongo(t *testing.T) {
	dbService := testDBService(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ids := map[string]bool{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, _, err := dbService.StartSession(newSession("user-2"))
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			mu.Lock()
			ids[session.ID.Hex()] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(ids) != 1 {
		t.Errorf("expected one session, got %d", len(ids))
	}
}

func TestSaveSessionMongo(t *testing.T) {
	dbService := testDBService(t)

	session, _, err := dbService.StartSession(newSession("user-3"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	session.Responses = append(session.Responses, types.Response{QuestionCode: "KR001", Value: types.TextValue("Budi")})
	session.CurrentIndex = 1
	if err := dbService.SaveSession(session); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := dbService.GetSession(session.ID.Hex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.CurrentIndex != 1 || loaded.Responses[0].Value.String() != "Budi" {
		t.Errorf("unexpected session: %+v", loaded)
	}

	loaded.Status = types.SESSION_STATUS_COMPLETED
	if err := dbService.SaveSession(loaded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, err := dbService.GetRespondent("user-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.ActiveSessionID.IsZero() {
		t.Error("active pointer should be cleared")
	}

	count := 0
	err = dbService.FindAndExecuteOnSessions(context.Background(), bson.M{"userID": "user-3"}, true, func(types.SurveySession) error {
		count++
		return nil
	})
	if err != nil || count != 1 {
		t.Errorf("unexpected iteration: %d %v", count, err)
	}

	if _, err := dbService.GetSession("65a0f0f0f0f0f0f0f0f0f0f0"); !errors.Is(err, types.ErrSessionNotFound) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEnsureIndexesSkipsExisting(t *testing.T) {
	dbService := testDBService(t)
	ctx, cancel := dbService.getContext()
	defer cancel()

	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userID", Value: 1}},
			Options: options.Index().SetName(INDEX_NAME_ACTIVE_SESSION),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("createdAt_1"),
		},
	}
	created, err := db.EnsureIndexes(ctx, dbService.collectionSessions(), models)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created != 1 {
		t.Errorf("expected only the new index to be created, got %d", created)
	}

	created, err = db.EnsureIndexes(ctx, dbService.collectionSessions(), models)
	if err != nil || created != 0 {
		t.Errorf("second run should create nothing: %d %v", created, err)
	}

	if _, err := db.EnsureIndexes(ctx, dbService.collectionSessions(), []mongo.IndexModel{{Keys: bson.D{{Key: "status", Value: 1}}}}); err == nil {
		t.Error("should produce error")
	}
}
