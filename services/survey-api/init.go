package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v2"

	"github.com/falanarofako/backend-conversational-survey/pkg/apihelpers"
	"github.com/falanarofako/backend-conversational-survey/pkg/db"
	surveysessionDB "github.com/falanarofako/backend-conversational-survey/pkg/db/survey-session"
	"github.com/falanarofako/backend-conversational-survey/pkg/db/survey-session/memstore"
	"github.com/falanarofako/backend-conversational-survey/pkg/db/survey-session/sqlitestore"
	httpclient "github.com/falanarofako/backend-conversational-survey/pkg/http-client"
	"github.com/falanarofako/backend-conversational-survey/pkg/llm"
	"github.com/falanarofako/backend-conversational-survey/pkg/metrics"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/catalog"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/collaborators"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/controller"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/questionnaire"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/skipengine"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/types"
	"github.com/falanarofako/backend-conversational-survey/pkg/utils"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_SURVEY_DB_USERNAME      = "SURVEY_DB_USERNAME"
	ENV_SURVEY_DB_PASSWORD      = "SURVEY_DB_PASSWORD"
	ENV_GEMINI_API_KEY          = "GEMINI_API_KEY"
	ENV_RESPONDENT_JWT_SIGN_KEY = "RESPONDENT_JWT_SIGN_KEY"
	ENV_TOKEN_ISSUER_API_KEY    = "TOKEN_ISSUER_API_KEY"
)

// QA_SERVICE_NAME derives the QA_SERVICE_API_KEY override.
const QA_SERVICE_NAME = "qa-service"

const (
	STORE_TYPE_MONGO  = "mongo"
	STORE_TYPE_SQLITE = "sqlite"
	STORE_TYPE_MEMORY = "memory"
)

type SurveyApiConfig struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// Gin configs
	GinConfig struct {
		DebugMode    bool     `json:"debug_mode" yaml:"debug_mode"`
		AllowOrigins []string `json:"allow_origins" yaml:"allow_origins"`
		Port         string   `json:"port" yaml:"port"`

		// Mutual TLS configs
		MTLS struct {
			Use              bool                        `json:"use" yaml:"use"`
			CertificatePaths apihelpers.CertificatePaths `json:"certificate_paths" yaml:"certificate_paths"`
		} `json:"mtls" yaml:"mtls"`
	} `json:"gin_config" yaml:"gin_config"`

	RespondentJWTConfig struct {
		SignKey   string        `json:"sign_key" yaml:"sign_key"`
		ExpiresIn time.Duration `json:"expires_in" yaml:"expires_in"`
		// Keys allowed to call the token endpoint; the endpoint is disabled when empty.
		IssuerAPIKeys []string `json:"issuer_api_keys" yaml:"issuer_api_keys"`
	} `json:"respondent_jwt_config" yaml:"respondent_jwt_config"`

	SurveyConfig struct {
		// Empty uses the embedded questionnaire.
		QuestionnaireFile string        `json:"questionnaire_file" yaml:"questionnaire_file"`
		TurnTimeout       time.Duration `json:"turn_timeout" yaml:"turn_timeout"`
		FallbackMessage   string        `json:"fallback_message" yaml:"fallback_message"`
		CompletionMessage string        `json:"completion_message" yaml:"completion_message"`
	} `json:"survey_config" yaml:"survey_config"`

	StoreConfig struct {
		Type     string              `json:"type" yaml:"type"` // mongo, sqlite, memory
		SurveyDB db.DBConfigYaml     `json:"survey_db" yaml:"survey_db"`
		SQLite   db.SQLiteConfigYaml `json:"sqlite" yaml:"sqlite"`
	} `json:"store_config" yaml:"store_config"`

	LLMConfig struct {
		APIKey      string          `json:"api_key" yaml:"api_key"`
		Model       string          `json:"model" yaml:"model"`
		Temperature float32         `json:"temperature" yaml:"temperature"`
		Timeout     time.Duration   `json:"timeout" yaml:"timeout"`
		Retry       llm.RetryConfig `json:"retry" yaml:"retry"`
	} `json:"llm_config" yaml:"llm_config"`

	QAServiceConfig struct {
		URL     string                       `json:"url" yaml:"url"`
		Path    string                       `json:"path" yaml:"path"`
		APIKey  string                       `json:"api_key" yaml:"api_key"`
		Timeout time.Duration                `json:"timeout" yaml:"timeout"`
		MTLS    *apihelpers.CertificatePaths `json:"mtls" yaml:"mtls"`
	} `json:"qa_service_config" yaml:"qa_service_config"`
}

var (
	conf SurveyApiConfig

	metricsRegistry  *prometheus.Registry
	surveyMetrics    *metrics.Metrics
	sessionStore     controller.SessionStore
	surveyController *controller.Controller
	closeStore       func()
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

	if !conf.GinConfig.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	if conf.RespondentJWTConfig.SignKey == "" {
		panic("respondent JWT sign key missing")
	}
	if conf.RespondentJWTConfig.ExpiresIn <= 0 {
		conf.RespondentJWTConfig.ExpiresIn = 24 * time.Hour
	}

	metricsRegistry, surveyMetrics = metrics.NewRegistry()

	initStore()
	initController()
}

func secretsOverride() {
	utils.OverrideFromEnv(&conf.StoreConfig.SurveyDB.Username, ENV_SURVEY_DB_USERNAME)
	utils.OverrideFromEnv(&conf.StoreConfig.SurveyDB.Password, ENV_SURVEY_DB_PASSWORD)
	utils.OverrideFromEnv(&conf.LLMConfig.APIKey, ENV_GEMINI_API_KEY)
	utils.OverrideFromEnv(&conf.RespondentJWTConfig.SignKey, ENV_RESPONDENT_JWT_SIGN_KEY)
	utils.OverrideFromEnv(&conf.QAServiceConfig.APIKey, utils.CollaboratorAPIKeyEnvVarName(QA_SERVICE_NAME))

	if issuerKey := os.Getenv(ENV_TOKEN_ISSUER_API_KEY); issuerKey != "" {
		conf.RespondentJWTConfig.IssuerAPIKeys = append(conf.RespondentJWTConfig.IssuerAPIKeys, issuerKey)
	}
}

func initStore() {
	switch conf.StoreConfig.Type {
	case STORE_TYPE_MONGO, "":
		dbService, err := surveysessionDB.NewSurveySessionDBService(db.DBConfigFromYamlObj(conf.StoreConfig.SurveyDB))
		if err != nil {
			slog.Error("Error connecting to Survey DB", slog.String("error", err.Error()))
			panic(err)
		}
		sessionStore = dbService
		closeStore = dbService.Close
	case STORE_TYPE_SQLITE:
		store, err := sqlitestore.New(conf.StoreConfig.SQLite.Path)
		if err != nil {
			slog.Error("Error opening SQLite store", slog.String("path", conf.StoreConfig.SQLite.Path), slog.String("error", err.Error()))
			panic(err)
		}
		sessionStore = store
		closeStore = func() {
			if err := store.Close(); err != nil {
				slog.Error("Error closing SQLite store", slog.String("error", err.Error()))
			}
		}
	case STORE_TYPE_MEMORY:
		slog.Warn("using in-memory session store, sessions are lost on restart")
		sessionStore = memstore.New()
		closeStore = func() {}
	default:
		panic("unknown store type: " + conf.StoreConfig.Type)
	}
}

func loadQuestionnaire() (types.Questionnaire, error) {
	if conf.SurveyConfig.QuestionnaireFile == "" {
		return questionnaire.Default()
	}
	return questionnaire.Load(conf.SurveyConfig.QuestionnaireFile)
}

func initController() {
	q, err := loadQuestionnaire()
	if err != nil {
		slog.Error("Error loading questionnaire", slog.String("error", err.Error()))
		panic(err)
	}
	c, err := catalog.Build(q)
	if err != nil {
		slog.Error("Error building question catalog", slog.String("error", err.Error()))
		panic(err)
	}
	engine, err := skipengine.Compile(c, q.SkipRules)
	if err != nil {
		slog.Error("Error compiling skip rules", slog.String("error", err.Error()))
		panic(err)
	}

	llmClient, err := llm.NewGeminiClient(
		context.Background(),
		conf.LLMConfig.APIKey,
		conf.LLMConfig.Model,
		llm.WithRetryConfig(conf.LLMConfig.Retry),
		llm.WithTimeout(conf.LLMConfig.Timeout),
		llm.WithMetrics(surveyMetrics),
	)
	if err != nil {
		slog.Error("Error creating LLM client", slog.String("error", err.Error()))
		panic(err)
	}

	var answerer types.QuestionAnswerer
	if conf.QAServiceConfig.URL != "" {
		qaClient, err := httpclient.NewClient(httpclient.ClientConfig{
			RootURL:              conf.QAServiceConfig.URL,
			APIKey:               conf.QAServiceConfig.APIKey,
			MTLSCertificatePaths: conf.QAServiceConfig.MTLS,
			Timeout:              conf.QAServiceConfig.Timeout,
		})
		if err != nil {
			slog.Error("Error creating QA service client", slog.String("error", err.Error()))
			panic(err)
		}
		answerer = collaborators.NewHTTPQuestionAnswerer(qaClient, conf.QAServiceConfig.Path)
	} else {
		slog.Warn("QA service not configured, side questions get the fallback message")
	}

	surveyController, err = controller.New(controller.Config{
		Engine:            engine,
		Store:             sessionStore,
		Classifier:        collaborators.NewLLMClassifier(llmClient, conf.LLMConfig.Temperature),
		Extractor:         collaborators.NewLLMExtractor(llmClient, conf.LLMConfig.Temperature),
		Answerer:          answerer,
		Metrics:           surveyMetrics,
		FallbackMessage:   conf.SurveyConfig.FallbackMessage,
		CompletionMessage: conf.SurveyConfig.CompletionMessage,
	})
	if err != nil {
		slog.Error("Error creating survey controller", slog.String("error", err.Error()))
		panic(err)
	}
	slog.Info("survey controller ready",
		slog.String("questionnaireVersion", c.Version()),
		slog.Int("questions", c.Len()),
		slog.String("model", llmClient.Model()),
	)
}
