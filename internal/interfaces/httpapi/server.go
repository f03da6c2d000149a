package httpapi

import (
	"net/http"

	"github.com/riskibarqy/nba-stats/internal/platform/logging"
	"github.com/riskibarqy/nba-stats/internal/platform/metrics"
)

// RouterConfig carries the cross-cutting settings of the HTTP surface.
type RouterConfig struct {
	CORSAllowedOrigins []string
	// AdminToken protects write and refresh routes when set.
	AdminToken     string
	MetricsEnabled bool
}

func NewRouter(handler *Handler, recorder *metrics.Recorder, logger *logging.Logger, cfg RouterConfig) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler, recorder, cfg.MetricsEnabled)
	registerPlayerRoutes(mux, handler)
	registerAnalyticsRoutes(mux, handler)
	registerAdminRoutes(mux, handler, cfg.AdminToken)

	return RequestTracing(RequestLogging(logger, recorder, CORS(cfg.CORSAllowedOrigins, recoverPanic(logger, recordRoute(mux)))))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.recoverPanic")
		defer span.End()

		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "panic recovered", "panic", rec, "path", r.URL.Path)
				writeInternalError(ctx, w)
			}
		}()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
