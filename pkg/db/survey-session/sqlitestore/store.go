// Package sqlitestore is an embedded SQLite session store for single-node
// deployments without MongoDB.
package sqlitestore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	_ "modernc.org/sqlite"

	"github.com/falanarofako/backend-conversational-survey/pkg/survey/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS survey_sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	status TEXT NOT NULL,
	questionnaire_version TEXT NOT NULL DEFAULT '',
	responses_json TEXT NOT NULL,
	current_index INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	completed_at INTEGER NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_survey_sessions_active_user
	ON survey_sessions(user_id) WHERE status = 'IN_PROGRESS';
CREATE INDEX IF NOT EXISTS idx_survey_sessions_status ON survey_sessions(status, updated_at);
`

const sessionColumns = `id, user_id, status, questionnaire_version, responses_json, current_index, created_at, updated_at, completed_at`

type Store struct {
	db   *sql.DB
	path string
}

func New(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection serializes writers, which keeps StartSession atomic
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	slog.Debug("sqlite session store ready", slog.String("path", path))
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (types.SurveySession, error) {
	var (
		session       types.SurveySession
		id            string
		responsesJSON string
	)
	err := row.Scan(&id, &session.UserID, &session.Status, &session.QuestionnaireVersion, &responsesJSON,
		&session.CurrentIndex, &session.CreatedAt, &session.UpdatedAt, &session.CompletedAt)
	if err != nil {
		return types.SurveySession{}, err
	}
	session.ID, err = primitive.ObjectIDFromHex(id)
	if err != nil {
		return types.SurveySession{}, fmt.Errorf("invalid stored session id %q: %w", id, err)
	}
	session.Responses = []types.Response{}
	if err := json.Unmarshal([]byte(responsesJSON), &session.Responses); err != nil {
		return types.SurveySession{}, fmt.Errorf("decode responses of %s: %w", id, err)
	}
	return session, nil
}

func encodeResponses(responses []types.Response) (string, error) {
	if responses == nil {
		responses = []types.Response{}
	}
	b, err := json.Marshal(responses)
	return string(b), err
}

func (s *Store) StartSession(session types.SurveySession) (types.SurveySession, bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return types.SurveySession{}, false, err
	}
	defer tx.Rollback()

	existing, err := scanSession(tx.QueryRow(
		`SELECT `+sessionColumns+` FROM survey_sessions WHERE user_id = ? AND status = ?`,
		session.UserID, types.SESSION_STATUS_IN_PROGRESS,
	))
	if err == nil {
		return existing, false, tx.Commit()
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return types.SurveySession{}, false, err
	}

	if session.ID.IsZero() {
		session.ID = primitive.NewObjectID()
	}
	responses, err := encodeResponses(session.Responses)
	if err != nil {
		return types.SurveySession{}, false, err
	}
	_, err = tx.Exec(
		`INSERT INTO survey_sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID.Hex(), session.UserID, session.Status, session.QuestionnaireVersion, responses,
		session.CurrentIndex, session.CreatedAt, session.UpdatedAt, session.CompletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			tx.Rollback()
			winner, findErr := s.findActive(session.UserID)
			if findErr == nil {
				return winner, false, nil
			}
		}
		return types.SurveySession{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return types.SurveySession{}, false, err
	}
	return session, true, nil
}

func (s *Store) findActive(userID string) (types.SurveySession, error) {
	return scanSession(s.db.QueryRow(
		`SELECT `+sessionColumns+` FROM survey_sessions WHERE user_id = ? AND status = ?`,
		userID, types.SESSION_STATUS_IN_PROGRESS,
	))
}

func (s *Store) GetSession(sessionID string) (types.SurveySession, error) {
	session, err := scanSession(s.db.QueryRow(
		`SELECT `+sessionColumns+` FROM survey_sessions WHERE id = ?`, sessionID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return types.SurveySession{}, fmt.Errorf("%s: %w", sessionID, types.ErrSessionNotFound)
	}
	return session, err
}

// SaveSession overwrites the session row. The active pointer is the partial
// index itself, so completing a session frees the user for a new one.
func (s *Store) SaveSession(session types.SurveySession) error {
	responses, err := encodeResponses(session.Responses)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(
		`UPDATE survey_sessions SET status = ?, questionnaire_version = ?, responses_json = ?, current_index = ?,
			updated_at = ?, completed_at = ? WHERE id = ?`,
		session.Status, session.QuestionnaireVersion, responses, session.CurrentIndex,
		session.UpdatedAt, session.CompletedAt, session.ID.Hex(),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", session.ID.Hex(), types.ErrSessionNotFound)
	}
	return nil
}

// Sessions lists every stored session, oldest first.
func (s *Store) Sessions() ([]types.SurveySession, error) {
	rows, err := s.db.Query(`SELECT ` + sessionColumns + ` FROM survey_sessions ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []types.SurveySession{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
