package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/falanarofako/backend-conversational-survey/pkg/apihelpers"
	"github.com/falanarofako/backend-conversational-survey/pkg/metrics"
	"github.com/falanarofako/backend-conversational-survey/services/survey-api/apihandlers"
)

func main() {
	defer closeStore()

	// Start webserver
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     conf.GinConfig.AllowOrigins,
		AllowMethods:     []string{"POST", "GET"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Content-Length"},
		ExposeHeaders:    []string{"Authorization", "Content-Type", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add handlers
	router.GET("/", apihandlers.HealthCheckHandle)
	router.GET("/metrics", gin.WrapH(metrics.HandlerFor(metricsRegistry)))
	v1Root := router.Group("/v1")

	v1APIHandlers := apihandlers.NewHTTPHandler(
		conf.RespondentJWTConfig.SignKey,
		conf.RespondentJWTConfig.ExpiresIn,
		conf.SurveyConfig.TurnTimeout,
		surveyController,
	)
	v1APIHandlers.AddSurveySessionAPI(v1Root)
	if len(conf.RespondentJWTConfig.IssuerAPIKeys) > 0 {
		v1APIHandlers.AddRespondentTokenAPI(v1Root, conf.RespondentJWTConfig.IssuerAPIKeys)
	}

	if conf.GinConfig.DebugMode {
		if err := apihelpers.WriteRoutesToFile(router, "survey-api-routes.txt"); err != nil {
			slog.Warn("Error writing routes file", slog.String("error", err.Error()))
		}
	}

	// Start the server
	slog.Info("Starting Survey API on port " + conf.GinConfig.Port)
	if !conf.GinConfig.MTLS.Use {
		err := router.Run(":" + conf.GinConfig.Port)
		if err != nil {
			slog.Error("Exited Survey API", slog.String("error", err.Error()))
			return
		}
	} else {
		// Create tls config for mutual TLS
		tlsConfig, err := apihelpers.LoadTLSConfig(conf.GinConfig.MTLS.CertificatePaths)
		if err != nil {
			slog.Error("Error loading TLS config.", slog.String("error", err.Error()))
			return
		}

		server := &http.Server{
			Addr:      ":" + conf.GinConfig.Port,
			Handler:   router,
			TLSConfig: tlsConfig,
		}

		err = server.ListenAndServeTLS(conf.GinConfig.MTLS.CertificatePaths.ServerCertPath, conf.GinConfig.MTLS.CertificatePaths.ServerKeyPath)
		if err != nil {
			slog.Error("Exited Survey API", slog.String("error", err.Error()))
			return
		}
	}
}
