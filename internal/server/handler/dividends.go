package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sylvaincormier/bittensor-async-api/internal/domain"
	"github.com/sylvaincormier/bittensor-async-api/internal/service"
)

// DividendHandler serves the dividend resolution and history endpoints.
type DividendHandler struct {
	svc           *service.DividendService
	defaultNetUID int
	defaultHotkey string
	logger        *slog.Logger
}

// NewDividendHandler creates a DividendHandler. defaultNetUID and
// defaultHotkey fill in omitted query parameters.
func NewDividendHandler(svc *service.DividendService, defaultNetUID int, defaultHotkey string, logger *slog.Logger) *DividendHandler {
	return &DividendHandler{
		svc:           svc,
		defaultNetUID: defaultNetUID,
		defaultHotkey: defaultHotkey,
		logger:        logHandler(logger, "dividends"),
	}
}

// GetDividends resolves the dividend value for a (netuid, hotkey) pair.
// GET /api/v1/tao_dividends?netuid=18&hotkey=5F...&trade=true
func (h *DividendHandler) GetDividends(w http.ResponseWriter, r *http.Request) {
	q := domain.DividendQuery{
		NetUID: h.defaultNetUID,
		Hotkey: h.defaultHotkey,
	}

	if v := r.URL.Query().Get("netuid"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "netuid must be an integer")
			return
		}
		q.NetUID = n
	}
	if v := r.URL.Query().Get("hotkey"); v != "" {
		q.Hotkey = v
	}

	trade := parseBool(r, "trade")

	res, err := h.svc.Resolve(r.Context(), q, trade)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "resolution failed",
			slog.Int("netuid", q.NetUID),
			slog.String("hotkey", q.Hotkey),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// GetHistory lists persisted dividend resolutions.
// GET /api/v1/tao_dividends/history?netuid=18&hotkey=5F...&limit=50
func (h *DividendHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	f := domain.HistoryFilter{
		Hotkey: r.URL.Query().Get("hotkey"),
		Limit:  parseLimit(r),
	}

	if v := r.URL.Query().Get("netuid"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "netuid must be an integer")
			return
		}
		f.NetUID = &n
	}

	entries, err := h.svc.History(r.Context(), f)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "history query failed", slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}
