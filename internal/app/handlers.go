package app

import (
	apphttp "github.com/yungbote/shipdash-backend/internal/http"
	httpH "github.com/yungbote/shipdash-backend/internal/http/handlers"
	"github.com/yungbote/shipdash-backend/internal/observability"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Upload   *httpH.UploadHandler
	Shipment *httpH.ShipmentHandler
	Email    *httpH.EmailHandler
	Data     *httpH.DataHandler
	Template *httpH.TemplateHandler
}

func wireHandlers(log *logger.Logger, cfg Config, repos Repos, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(repos.Provider),
		Upload:   httpH.NewUploadHandler(log, services.Ingestion, cfg.UploadMaxBytes),
		Shipment: httpH.NewShipmentHandler(services.ShipmentQuery),
		Email:    httpH.NewEmailHandler(log, services.Emails),
		Data:     httpH.NewDataHandler(log, services.Collections),
		Template: httpH.NewTemplateHandler(),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) *apphttp.Server {
	tracing := ""
	if cfg.Otel.Enabled {
		tracing = cfg.Otel.ServiceName
	}
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		CORSOrigins:     cfg.CORSOrigins,
		TracingService:  tracing,
		HealthHandler:   handlers.Health,
		UploadHandler:   handlers.Upload,
		ShipmentHandler: handlers.Shipment,
		EmailHandler:    handlers.Email,
		DataHandler:     handlers.Data,
		TemplateHandler: handlers.Template,
	})
}
