package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/falanarofako/backend-conversational-survey/pkg/db"
	surveysessionDB "github.com/falanarofako/backend-conversational-survey/pkg/db/survey-session"
	"github.com/falanarofako/backend-conversational-survey/pkg/db/survey-session/sqlitestore"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/catalog"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/questionnaire"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/skipengine"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/types"
	"github.com/falanarofako/backend-conversational-survey/pkg/utils"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_SURVEY_DB_USERNAME = "SURVEY_DB_USERNAME"
	ENV_SURVEY_DB_PASSWORD = "SURVEY_DB_PASSWORD"
)

type config struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// DB configs
	DBConfigs struct {
		// mongo (default) or sqlite
		StoreType string              `json:"store_type" yaml:"store_type"`
		SurveyDB  db.DBConfigYaml     `json:"survey_db" yaml:"survey_db"`
		SQLite    db.SQLiteConfigYaml `json:"sqlite" yaml:"sqlite"`
	} `json:"db_configs" yaml:"db_configs"`

	QuestionnaireFile string `json:"questionnaire_file" yaml:"questionnaire_file"`
	ExportPath        string `json:"export_path" yaml:"export_path"`
	Workers           int    `json:"workers" yaml:"workers"`
	// UpdatedWithin limits the report to recently active sessions, e.g. "7d". Empty means all.
	UpdatedWithin string `json:"updated_within" yaml:"updated_within"`
	RetentionDays int    `json:"retention_days" yaml:"retention_days"`
}

var conf config

var (
	surveySessionDBService *surveysessionDB.SurveySessionDBService
	sqliteStore            *sqlitestore.Store
	engine                 *skipengine.Engine
	updatedWithin          time.Duration
)

func init() {
	// Read config from file
	yamlFile, err := os.ReadFile(os.Getenv(ENV_CONFIG_FILE_PATH))
	if err != nil {
		panic(err)
	}

	err = yaml.UnmarshalStrict(yamlFile, &conf)
	if err != nil {
		panic(err)
	}

	// Init logger:
	utils.InitLogger(conf.Logging)

	// Override secrets from environment variables
	secretsOverride()

	if conf.ExportPath == "" {
		err := fmt.Errorf("export path must be set to define where to store the report files")
		slog.Error("Error reading config", slog.String("error", err.Error()))
		panic(err)
	}

	if conf.RetentionDays < 1 {
		err := fmt.Errorf("retention days must be greater than 0")
		slog.Error("Error reading config", slog.String("error", err.Error()))
		panic(err)
	}

	if conf.UpdatedWithin != "" {
		updatedWithin, err = utils.ParseDurationString(conf.UpdatedWithin)
		if err != nil {
			slog.Error("Error reading config", slog.String("error", err.Error()))
			panic(err)
		}
	}

	if _, err := os.Stat(conf.ExportPath); os.IsNotExist(err) {
		// create folder
		err = os.MkdirAll(conf.ExportPath, os.ModePerm)
		if err != nil {
			slog.Error("Error creating export path", slog.String("error", err.Error()))
			panic(err)
		}
		slog.Info("Created export path", slog.String("path", conf.ExportPath))
	}

	initEngine()

	// init db
	initDBs()
}

func secretsOverride() {
	utils.OverrideFromEnv(&conf.DBConfigs.SurveyDB.Username, ENV_SURVEY_DB_USERNAME)
	utils.OverrideFromEnv(&conf.DBConfigs.SurveyDB.Password, ENV_SURVEY_DB_PASSWORD)
}

func initEngine() {
	var (
		q   types.Questionnaire
		err error
	)
	if conf.QuestionnaireFile == "" {
		q, err = questionnaire.Default()
	} else {
		q, err = questionnaire.Load(conf.QuestionnaireFile)
	}
	if err != nil {
		slog.Error("Error loading questionnaire", slog.String("error", err.Error()))
		panic(err)
	}

	c, err := catalog.Build(q)
	if err != nil {
		slog.Error("Error building question catalog", slog.String("error", err.Error()))
		panic(err)
	}
	engine, err = skipengine.Compile(c, q.SkipRules)
	if err != nil {
		slog.Error("Error compiling skip rules", slog.String("error", err.Error()))
		panic(err)
	}
}

func initDBs() {
	var err error
	if conf.DBConfigs.StoreType == "sqlite" {
		sqliteStore, err = sqlitestore.New(conf.DBConfigs.SQLite.Path)
		if err != nil {
			slog.Error("Error opening SQLite store", slog.String("error", err.Error()))
			panic(err)
		}
		return
	}
	surveySessionDBService, err = surveysessionDB.NewSurveySessionDBService(db.DBConfigFromYamlObj(conf.DBConfigs.SurveyDB))
	if err != nil {
		slog.Error("Error connecting to Survey DB", slog.String("error", err.Error()))
		panic(err)
	}
}
