package apihandlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/falanarofako/backend-conversational-survey/pkg/survey/controller"
)

func HealthCheckHandle(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type HttpEndpoints struct {
	controller     *controller.Controller
	tokenSignKey   string
	tokenExpiresIn time.Duration
	turnTimeout    time.Duration
}

func NewHTTPHandler(
	tokenSignKey string,
	tokenExpiresIn time.Duration,
	turnTimeout time.Duration,
	ctrl *controller.Controller,
) *HttpEndpoints {
	return &HttpEndpoints{
		controller:     ctrl,
		tokenSignKey:   tokenSignKey,
		tokenExpiresIn: tokenExpiresIn,
		turnTimeout:    turnTimeout,
	}
}
