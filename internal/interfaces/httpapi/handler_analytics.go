package httpapi

import (
	"net/http"
	"strings"
)

func (h *Handler) GetAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetAnalyticsSummary")
	defer span.End()

	playerID, err := parsePlayerID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	summary, err := h.analyticsService.Summary(ctx, playerID)
	if err != nil {
		h.logFailure(ctx, "analytics summary failed", err, "player_id", playerID)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, analyticsSummaryDTO{
		PlayerID:      summary.PlayerID,
		SeasonCount:   summary.SeasonCount,
		LatestSeason:  summary.LatestSeason,
		Trends:        trendsToDTO(summary.Trends),
		CareerHighs:   summary.CareerHighs,
		Averages:      summary.Averages,
		LatestPerGame: summary.LatestPerGame,
	})
}

func (h *Handler) GetAdvancedAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetAdvancedAnalytics")
	defer span.End()

	playerID, err := parsePlayerID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items, err := h.analyticsService.Advanced(ctx, playerID)
	if err != nil {
		h.logFailure(ctx, "advanced analytics failed", err, "player_id", playerID)
		writeError(ctx, w, err)
		return
	}

	out := make([]seasonAdvancedDTO, 0, len(items))
	for _, item := range items {
		out = append(out, seasonAdvancedDTO{
			SeasonID:   item.SeasonID,
			Efficiency: item.Efficiency,
			PerGame:    item.PerGame,
			PerMinute:  item.PerMinute,
		})
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) CompareSeasons(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CompareSeasons")
	defer span.End()

	playerID, err := parsePlayerID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	fromSeason := strings.TrimSpace(r.PathValue("fromSeason"))
	toSeason := strings.TrimSpace(r.PathValue("toSeason"))

	result, err := h.analyticsService.Compare(ctx, playerID, fromSeason, toSeason)
	if err != nil {
		h.logFailure(ctx, "compare seasons failed", err,
			"player_id", playerID,
			"from_season", fromSeason,
			"to_season", toSeason,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, seasonComparisonDTO{
		PlayerID:   result.PlayerID,
		FromSeason: result.FromSeason,
		ToSeason:   result.ToSeason,
		Stats:      comparisonsToDTO(result.Stats),
	})
}

func (h *Handler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPrediction")
	defer span.End()

	playerID, err := parsePlayerID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.analyticsService.Predict(ctx, playerID)
	if err != nil {
		h.logFailure(ctx, "prediction failed", err, "player_id", playerID)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, predictionDTO{
		PlayerID:  result.PlayerID,
		BasedOn:   result.BasedOn,
		Predicted: result.Predicted,
	})
}
