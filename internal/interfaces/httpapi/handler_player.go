package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/riskibarqy/nba-stats/internal/usecase"
)

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) SearchPlayers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SearchPlayers")
	defer span.End()

	name := r.URL.Query().Get("name")
	limit, err := parseLimit(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items, err := h.playerService.SearchPlayersWithSeasons(ctx, name, limit)
	if err != nil {
		h.logFailure(ctx, "search players failed", err, "name", name)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, playersWithSeasonsToDTO(items))
}

func (h *Handler) RandomPlayers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RandomPlayers")
	defer span.End()

	limit, err := parseLimit(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items, err := h.playerService.RandomPlayersWithSeasons(ctx, limit)
	if err != nil {
		h.logFailure(ctx, "random players failed", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, playersWithSeasonsToDTO(items))
}

func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPlayer")
	defer span.End()

	playerID, err := parsePlayerID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.playerService.GetPlayer(ctx, playerID)
	if err != nil {
		h.logFailure(ctx, "get player failed", err, "player_id", playerID)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, playerToDTO(item))
}

func (h *Handler) ListSeasons(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListSeasons")
	defer span.End()

	playerID, err := parsePlayerID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items, err := h.playerService.GetSeasons(ctx, playerID)
	if err != nil {
		h.logFailure(ctx, "list seasons failed", err, "player_id", playerID)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, seasonsToDTO(items))
}

func (h *Handler) GetSeason(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSeason")
	defer span.End()

	playerID, err := parsePlayerID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	seasonID := strings.TrimSpace(r.PathValue("seasonID"))

	item, err := h.playerService.GetSeason(ctx, playerID, seasonID)
	if err != nil {
		h.logFailure(ctx, "get season failed", err, "player_id", playerID, "season_id", seasonID)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, seasonToDTO(item))
}

func (h *Handler) UpsertSeason(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpsertSeason")
	defer span.End()

	playerID, err := parsePlayerID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	seasonID := strings.TrimSpace(r.PathValue("seasonID"))

	var req upsertSeasonRequest
	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.playerService.UpsertSeason(ctx, playerID, seasonID, req.fields())
	if err != nil {
		h.logFailure(ctx, "upsert season failed", err, "player_id", playerID, "season_id", seasonID)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, seasonToDTO(item))
}
