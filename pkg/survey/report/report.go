// Package report replays stored sessions through the skip engine and summarizes
// their progress.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/falanarofako/backend-conversational-survey/pkg/survey/progress"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/skipengine"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/types"
)

const (
	FILE_NAME_SUFFIX   = "##survey-progress.json"
	DEFAULT_WORKERS    = 4
	sessionQueueLength = 64
)

// SessionSource streams stored sessions.
type SessionSource interface {
	ForEachSession(ctx context.Context, fn func(types.SurveySession) error) error
}

// SliceSource serves sessions already loaded in memory.
type SliceSource []types.SurveySession

func (s SliceSource) ForEachSession(ctx context.Context, fn func(types.SurveySession) error) error {
	for _, session := range s {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(session); err != nil {
			return err
		}
	}
	return nil
}

type SessionEntry struct {
	SessionID            string  `json:"sessionId"`
	UserID               string  `json:"userId"`
	Status               string  `json:"status"`
	QuestionnaireVersion string  `json:"questionnaireVersion,omitempty"`
	CompletionPercentage float64 `json:"completionPercentage"`
	Answered             int     `json:"answered"`
	Skipped              int     `json:"skipped"`
	NotReached           int     `json:"notReached"`
	UpdatedAt            int64   `json:"updatedAt"`
}

type QuestionSummary struct {
	QuestionCode string `json:"questionCode"`
	Answered     int    `json:"answered"`
	Skipped      int    `json:"skipped"`
	NotReached   int    `json:"notReached"`
}

type Report struct {
	GeneratedAt       int64             `json:"generatedAt"`
	Sessions          int               `json:"sessions"`
	Completed         int               `json:"completed"`
	InProgress        int               `json:"inProgress"`
	AverageCompletion float64           `json:"averageCompletion"`
	Questions         []QuestionSummary `json:"questions"`
	Entries           []SessionEntry    `json:"entries"`
}

type Options struct {
	Workers int
	// UpdatedSince drops sessions last updated before this unix time. Zero keeps all.
	UpdatedSince int64
	Now          func() time.Time
}

// Build computes progress for every session of src in parallel.
func Build(ctx context.Context, engine *skipengine.Engine, src SessionSource, opts Options) (Report, error) {
	if opts.Workers <= 0 {
		opts.Workers = DEFAULT_WORKERS
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	g, gctx := errgroup.WithContext(ctx)
	sessions := make(chan types.SurveySession, sessionQueueLength)

	g.Go(func() error {
		defer close(sessions)
		return src.ForEachSession(gctx, func(session types.SurveySession) error {
			if opts.UpdatedSince > 0 && session.UpdatedAt < opts.UpdatedSince {
				return nil
			}
			select {
			case sessions <- session:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	var (
		mu        sync.Mutex
		entries   = []SessionEntry{}
		questions = map[string]*QuestionSummary{}
	)
	for i := 0; i < opts.Workers; i++ {
		g.Go(func() error {
			for session := range sessions {
				p := progress.Calculate(engine, session.Responses)
				entry := SessionEntry{
					SessionID:            session.ID.Hex(),
					UserID:               session.UserID,
					Status:               session.Status,
					QuestionnaireVersion: session.QuestionnaireVersion,
					CompletionPercentage: p.CompletionPercentage,
					Answered:             p.Answered,
					Skipped:              p.Skipped,
					NotReached:           p.NotReached,
					UpdatedAt:            session.UpdatedAt,
				}

				mu.Lock()
				entries = append(entries, entry)
				for _, st := range p.PerQuestionStatus {
					qs, ok := questions[st.QuestionCode]
					if !ok {
						qs = &QuestionSummary{QuestionCode: st.QuestionCode}
						questions[st.QuestionCode] = qs
					}
					switch st.Status {
					case skipengine.STATUS_ANSWERED:
						qs.Answered++
					case skipengine.STATUS_SKIPPED:
						qs.Skipped++
					default:
						qs.NotReached++
					}
				}
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	r := Report{
		GeneratedAt: opts.Now().Unix(),
		Sessions:    len(entries),
		Entries:     entries,
		Questions:   make([]QuestionSummary, 0, len(questions)),
	}
	sort.Slice(r.Entries, func(i, j int) bool {
		return r.Entries[i].SessionID < r.Entries[j].SessionID
	})

	total := 0.0
	for _, e := range r.Entries {
		if e.Status == types.SESSION_STATUS_COMPLETED {
			r.Completed++
		} else {
			r.InProgress++
		}
		total += e.CompletionPercentage
	}
	if r.Sessions > 0 {
		r.AverageCompletion = math.Round(total/float64(r.Sessions)*100) / 100
	}

	// catalog order
	for _, code := range engine.Catalog().Codes() {
		if qs, ok := questions[code]; ok {
			r.Questions = append(r.Questions, *qs)
		}
	}
	return r, nil
}

func FileName(t time.Time) string {
	return t.Format("2006-01-02-150405") + FILE_NAME_SUFFIX
}

// WriteFile stores the report as JSON in dir and returns the file path.
func WriteFile(dir string, r Report) (string, error) {
	content, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName(time.Unix(r.GeneratedAt, 0).UTC()))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// CleanupOld removes report files in dir older than retention. It returns the number removed.
func CleanupOld(dir string, retention time.Duration, now time.Time) (int, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), FILE_NAME_SUFFIX) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= retention {
			continue
		}
		if err := os.Remove(filepath.Join(dir, f.Name())); err != nil {
			slog.Error("Error removing old report", slog.String("file", f.Name()), slog.String("error", err.Error()))
			continue
		}
		removed++
	}
	return removed, nil
}
