package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/lingua-backend/internal/http/handlers"
	httpMW "github.com/yungbote/lingua-backend/internal/http/middleware"
	"github.com/yungbote/lingua-backend/internal/observability"
	"github.com/yungbote/lingua-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	CORSOrigins []string
	// ServiceName enables otelgin request spans when non-empty.
	ServiceName string

	CurriculumHandler *httpH.CurriculumHandler
	HealthHandler     *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	// Metrics
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Curricula
		if cfg.CurriculumHandler != nil {
			api.POST("/curricula", cfg.CurriculumHandler.CreateCurriculum)
			api.GET("/curricula", cfg.CurriculumHandler.ListCurricula)
			api.GET("/curricula/:id", cfg.CurriculumHandler.GetCurriculum)
			api.GET("/curricula/:id/status", cfg.CurriculumHandler.GetStatus)
			api.POST("/curricula/:id/retry", cfg.CurriculumHandler.RetryCurriculum)
			api.DELETE("/curricula/:id", cfg.CurriculumHandler.DeleteCurriculum)

			// Lessons
			api.GET("/lessons/:id/artifacts/:kind", cfg.CurriculumHandler.GetLessonArtifacts)
		}
	}

	return r
}
