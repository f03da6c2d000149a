package httpapi

import (
	"net/http"

	"github.com/riskibarqy/nba-stats/internal/platform/metrics"
)

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, recorder *metrics.Recorder, metricsEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if !metricsEnabled || recorder == nil {
		return
	}

	mux.Handle("GET /metrics", recorder.Handler())
}

func registerPlayerRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/players/search", handler.SearchPlayers)
	mux.HandleFunc("GET /v1/players/random", handler.RandomPlayers)
	mux.HandleFunc("GET /v1/players/{playerID}", handler.GetPlayer)
	mux.HandleFunc("GET /v1/players/{playerID}/stats", handler.GetPlayerStats)
	mux.HandleFunc("GET /v1/players/{playerID}/seasons", handler.ListSeasons)
	mux.HandleFunc("GET /v1/players/{playerID}/seasons/{seasonID}", handler.GetSeason)
}

func registerAnalyticsRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/players/{playerID}/analytics/summary", handler.GetAnalyticsSummary)
	mux.HandleFunc("GET /v1/players/{playerID}/analytics/advanced", handler.GetAdvancedAnalytics)
	mux.HandleFunc("GET /v1/players/{playerID}/analytics/compare/{fromSeason}/{toSeason}", handler.CompareSeasons)
	mux.HandleFunc("GET /v1/players/{playerID}/analytics/prediction", handler.GetPrediction)
}

func registerAdminRoutes(mux *http.ServeMux, handler *Handler, adminToken string) {
	mux.Handle("PUT /v1/players/{playerID}/stats", RequireAdminToken(adminToken, http.HandlerFunc(handler.UpsertPlayerStats)))
	mux.Handle("PUT /v1/players/{playerID}/seasons/{seasonID}", RequireAdminToken(adminToken, http.HandlerFunc(handler.UpsertSeason)))
	mux.Handle("POST /v1/players/{playerID}/refresh", RequireAdminToken(adminToken, http.HandlerFunc(handler.QueueRefresh)))
	mux.Handle("GET /v1/refresh/status", http.HandlerFunc(handler.GetRefreshStatus))
	mux.Handle("POST /v1/refresh/stale", RequireAdminToken(adminToken, http.HandlerFunc(handler.RunStaleSweep)))
}
