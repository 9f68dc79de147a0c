package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/fintweet/internal/adapters/driven/records"
	"github.com/custodia-labs/fintweet/internal/core/domain"
	"github.com/custodia-labs/fintweet/internal/core/ports/driving"
)

// maxBodySize bounds POST /api/v1/records payloads.
const maxBodySize = 32 << 20

// Defaults used when a query parameter is absent.
type Defaults struct {
	K           int
	MinMentions int
	Top         int
}

// Handler serves the API routes.
type Handler struct {
	store       driving.DocumentStore
	aggregation driving.AggregationService
	ingest      driving.IngestService
	defaults    Defaults
	startedAt   time.Time
}

// NewHandler creates a handler. A zero K or Top becomes 30 and a negative
// MinMentions becomes 20.
func NewHandler(
	store driving.DocumentStore,
	aggregation driving.AggregationService,
	ingest driving.IngestService,
	defaults Defaults,
) *Handler {
	if defaults.K <= 0 {
		defaults.K = 30
	}
	if defaults.MinMentions < 0 {
		defaults.MinMentions = 20
	}
	if defaults.Top <= 0 {
		defaults.Top = 30
	}
	return &Handler{
		store:       store,
		aggregation: aggregation,
		ingest:      ingest,
		defaults:    defaults,
		startedAt:   time.Now(),
	}
}

// IngestRecords handles POST /api/v1/records.
func (h *Handler) IngestRecords(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize))
	if err != nil {
		Error(c, http.StatusBadRequest, CodeBadRequest, "invalid request payload")
		return
	}

	recs, err := records.DecodeJSON(body)
	if err != nil {
		fail(c, err)
		return
	}

	report, err := h.ingest.Ingest(c.Request.Context(), recs)
	if err != nil {
		fail(c, err)
		return
	}
	OK(c, report)
}

// Query handles GET /api/v1/query.
func (h *Handler) Query(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		Error(c, http.StatusBadRequest, CodeBadRequest, "q is required")
		return
	}
	k, err := intParam(c, "k", h.defaults.K)
	if err != nil {
		fail(c, err)
		return
	}

	matches, err := h.store.Search(c.Request.Context(), q, k)
	if err != nil {
		fail(c, err)
		return
	}
	OK(c, gin.H{"matches": matches, "count": len(matches)})
}

// Pivot handles GET /api/v1/pivot.
func (h *Handler) Pivot(c *gin.Context) {
	minMentions, err := intParam(c, "min_mentions", h.defaults.MinMentions)
	if err != nil {
		fail(c, err)
		return
	}
	top, err := intParam(c, "top", h.defaults.Top)
	if err != nil {
		fail(c, err)
		return
	}

	rows, err := h.aggregation.Ranked(minMentions, domain.PivotMetric(c.Query("metric")), top)
	if err != nil {
		fail(c, err)
		return
	}
	OK(c, gin.H{"rows": rows, "records": h.aggregation.Records()})
}

// Mentions handles GET /api/v1/mentions.
func (h *Handler) Mentions(c *gin.Context) {
	top, err := intParam(c, "top", h.defaults.Top)
	if err != nil {
		fail(c, err)
		return
	}
	OK(c, gin.H{"tickers": h.aggregation.Mentions(top)})
}

// Tickers handles GET /api/v1/tickers.
func (h *Handler) Tickers(c *gin.Context) {
	tickers := c.QueryArray("t")
	if len(tickers) == 0 {
		Error(c, http.StatusBadRequest, CodeBadRequest, "at least one t parameter is required")
		return
	}
	OK(c, gin.H{"rows": h.aggregation.TickerContext(tickers)})
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	store := gin.H{"ok": true}
	count, err := h.store.Count(ctx)
	if err != nil {
		status = http.StatusServiceUnavailable
		store = gin.H{"ok": false, "message": err.Error()}
	} else {
		store["entries"] = count
	}

	c.JSON(status, gin.H{
		"uptime_sec": int(time.Since(h.startedAt).Seconds()),
		"records":    h.aggregation.Records(),
		"store":      store,
	})
}

// intParam reads an integer query parameter, falling back to def when absent.
func intParam(c *gin.Context, name string, def int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, name)
	}
	return v, nil
}
