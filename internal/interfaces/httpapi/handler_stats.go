package httpapi

import (
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/riskibarqy/nba-stats/internal/domain/player"
	"github.com/riskibarqy/nba-stats/internal/usecase"
)

func (h *Handler) GetPlayerStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPlayerStats")
	defer span.End()

	playerID, err := parsePlayerID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	payload, err := h.statsService.GetStats(ctx, playerID)
	if err != nil {
		h.logFailure(ctx, "get player stats failed", err, "player_id", playerID)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, payloadToDTO(payload))
}

func (h *Handler) UpsertPlayerStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpsertPlayerStats")
	defer span.End()

	playerID, err := parsePlayerID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req upsertStatsRequest
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

	item, err := h.playerService.UpsertPlayerStats(ctx, playerID, player.Stats(req.Stats))
	if err != nil {
		h.logFailure(ctx, "upsert player stats failed", err, "player_id", playerID)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, playerToDTO(item))
}

// QueueRefresh accepts the request even when the id is already pending;
// the response tells the caller whether this call added it.
func (h *Handler) QueueRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.QueueRefresh")
	defer span.End()

	playerID, err := parsePlayerID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if _, err := h.playerService.GetPlayer(ctx, playerID); err != nil {
		h.logFailure(ctx, "queue refresh failed", err, "player_id", playerID)
		writeError(ctx, w, err)
		return
	}

	queued := h.statsService.QueueRefresh(playerID)
	writeSuccess(ctx, w, http.StatusAccepted, refreshQueuedDTO{
		PlayerID: playerID,
		Queued:   queued,
		Pending:  h.statsService.PendingRefreshes(),
	})
}

func (h *Handler) GetRefreshStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetRefreshStatus")
	defer span.End()

	status := h.refreshWorker.Status()
	out := refreshStatusDTO{
		Running:             status.Running,
		Processed:           status.Processed,
		Failed:              status.Failed,
		ConsecutiveFailures: status.ConsecutiveFailures,
		LastPlayerID:        status.LastPlayerID,
		LastError:           status.LastError,
		LastAttempt:         formatTime(status.LastAttempt),
		LastSuccess:         formatTime(status.LastSuccess),
		Queued:              status.Queued,
	}
	if h.refreshScheduler != nil {
		out.NextSweep = formatTime(h.refreshScheduler.NextRun())
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) RunStaleSweep(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunStaleSweep")
	defer span.End()

	if h.refreshScheduler == nil {
		writeError(ctx, w, fmt.Errorf("%w: refresh scheduler is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	result, err := h.refreshScheduler.RunOnce(ctx)
	if err != nil {
		h.logFailure(ctx, "stale sweep failed", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, staleSweepDTO{
		Candidates: result.Candidates,
		Queued:     result.Queued,
		Cutoff:     formatTime(result.Cutoff),
	})
}
