package main

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	surveysessionDB "github.com/falanarofako/backend-conversational-survey/pkg/db/survey-session"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/report"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/types"
)

type mongoSessionSource struct {
	dbService *surveysessionDB.SurveySessionDBService
	filter    bson.M
}

func (s mongoSessionSource) ForEachSession(ctx context.Context, fn func(types.SurveySession) error) error {
	return s.dbService.FindAndExecuteOnSessions(ctx, s.filter, true, fn)
}

func sessionSource(updatedSince int64) (report.SessionSource, func(), error) {
	if sqliteStore != nil {
		sessions, err := sqliteStore.Sessions()
		if err != nil {
			return nil, nil, err
		}
		return report.SliceSource(sessions), func() { _ = sqliteStore.Close() }, nil
	}

	filter := bson.M{}
	if updatedSince > 0 {
		filter["updatedAt"] = bson.M{"$gte": updatedSince}
	}
	return mongoSessionSource{dbService: surveySessionDBService, filter: filter}, surveySessionDBService.Close, nil
}

func main() {
	slog.Info("Starting survey progress report job")
	start := time.Now()

	var updatedSince int64
	if updatedWithin > 0 {
		updatedSince = start.Add(-updatedWithin).Unix()
	}

	src, closeSource, err := sessionSource(updatedSince)
	if err != nil {
		slog.Error("Error reading sessions", slog.String("error", err.Error()))
		return
	}
	defer closeSource()

	r, err := report.Build(context.Background(), engine, src, report.Options{
		Workers:      conf.Workers,
		UpdatedSince: updatedSince,
	})
	if err != nil {
		slog.Error("Error building progress report", slog.String("error", err.Error()))
		return
	}

	path, err := report.WriteFile(conf.ExportPath, r)
	if err != nil {
		slog.Error("Error writing progress report", slog.String("error", err.Error()))
		return
	}
	slog.Info("Progress report written",
		slog.String("path", path),
		slog.Int("sessions", r.Sessions),
		slog.Int("completed", r.Completed),
		slog.Float64("averageCompletion", r.AverageCompletion),
	)

	removed, err := report.CleanupOld(conf.ExportPath, time.Duration(conf.RetentionDays)*24*time.Hour, start)
	if err != nil {
		slog.Error("Error cleaning up old reports", slog.String("error", err.Error()))
	} else if removed > 0 {
		slog.Info("Removed old reports", slog.Int("count", removed))
	}

	slog.Info("Survey progress report job completed", slog.String("duration", time.Since(start).String()))
}
