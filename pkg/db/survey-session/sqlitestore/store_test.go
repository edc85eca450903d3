package sqlitestore

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/falanarofako/backend-conversational-survey/pkg/survey/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newSession(userID string) types.SurveySession {
	return types.SurveySession{
		UserID:               userID,
		Status:               types.SESSION_STATUS_IN_PROGRESS,
		QuestionnaireVersion: "2026.1",
		Responses:            []types.Response{},
		CreatedAt:            100,
		UpdatedAt:            100,
	}
}

func TestStartSession(t *testing.T) {
	s := newTestStore(t)

	first, created, err := s.StartSession(newSession("user-1"))
	if err != nil || !created {
		t.Fatalf("unexpected result: %v %v", created, err)
	}
	second, created, err := s.StartSession(newSession("user-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created || second.ID != first.ID {
		t.Errorf("start twice should return the same session")
	}
}

func TestConcurrentStartSession(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ids := map[string]bool{}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, _, err := s.StartSession(newSession("user-1"))
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

func TestSaveAndGetSession(t *testing.T) {
	s := newTestStore(t)

	session, _, err := s.StartSession(newSession("user-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	session.Responses = []types.Response{
		{QuestionCode: "KR001", Value: types.TextValue("Budi")},
		{QuestionCode: "KR003", Value: types.NumberValue(34)},
		{QuestionCode: "KR005", Value: types.NotApplicableValue()},
		{QuestionCode: "S006", Value: types.ListValue([]string{"Bus", "Kereta api"})},
	}
	session.CurrentIndex = 12
	session.UpdatedAt = 200
	if err := s.SaveSession(session); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := s.GetSession(session.ID.Hex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(session, loaded); diff != "" {
		t.Errorf("stored session differs (-saved +loaded):\n%s", diff)
	}

	t.Run("completion frees the user", func(t *testing.T) {
		loaded.Status = types.SESSION_STATUS_COMPLETED
		loaded.CompletedAt = 300
		if err := s.SaveSession(loaded); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		next, created, err := s.StartSession(newSession("user-1"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !created || next.ID == loaded.ID {
			t.Error("expected a new session after completion")
		}
		all, err := s.Sessions()
		if err != nil || len(all) != 2 {
			t.Errorf("unexpected sessions: %d %v", len(all), err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		if _, err := s.GetSession("65a0f0f0f0f0f0f0f0f0f0f0"); !errors.Is(err, types.ErrSessionNotFound) {
			t.Errorf("unexpected error: %v", err)
		}
		if err := s.SaveSession(newSession("nobody")); !errors.Is(err, types.ErrSessionNotFound) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
