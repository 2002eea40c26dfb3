package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/shipdash-backend/internal/http/handlers"
	httpMW "github.com/yungbote/shipdash-backend/internal/http/middleware"
	"github.com/yungbote/shipdash-backend/internal/observability"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	CORSOrigins []string
	// TracingService, when set, enables otelgin spans under that service name.
	TracingService string

	HealthHandler   *httpH.HealthHandler
	UploadHandler   *httpH.UploadHandler
	ShipmentHandler *httpH.ShipmentHandler
	EmailHandler    *httpH.EmailHandler
	DataHandler     *httpH.DataHandler
	TemplateHandler *httpH.TemplateHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingService != "" {
		r.Use(otelgin.Middleware(cfg.TracingService))
	}
	r.Use(httpMW.RequestContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Ingestion
		if cfg.UploadHandler != nil {
			api.POST("/upload-csv", cfg.UploadHandler.UploadShipments)
		}
		if cfg.TemplateHandler != nil {
			api.GET("/upload-template", cfg.TemplateHandler.UploadTemplate)
		}

		// Delayed shipments
		if cfg.ShipmentHandler != nil {
			api.GET("/shipments", cfg.ShipmentHandler.ListShipments)
			api.GET("/shipments/stats", cfg.ShipmentHandler.ShipmentStats)
		}

		// Contacts
		if cfg.EmailHandler != nil {
			api.GET("/emails", cfg.EmailHandler.ListEmails)
			api.GET("/emails/:id", cfg.EmailHandler.GetEmail)
			api.POST("/emails", cfg.EmailHandler.CreateEmail)
			api.PATCH("/emails", cfg.EmailHandler.UpdateEmail)
			api.DELETE("/emails", cfg.EmailHandler.DeleteEmail)
		}

		// Generic collections
		if cfg.DataHandler != nil {
			api.GET("/data", cfg.DataHandler.ListData)
			api.GET("/data/:id", cfg.DataHandler.GetData)
			api.POST("/data", cfg.DataHandler.CreateData)
			api.PATCH("/data", cfg.DataHandler.UpdateData)
			api.DELETE("/data", cfg.DataHandler.DeleteData)
		}
	}

	return r
}
