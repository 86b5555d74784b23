package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/quantrail/reckon/internal/service"
	"github.com/quantrail/reckon/internal/xe"
	"github.com/quantrail/reckon/pkg/ingest"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// ReconHandler exposes the reconciliation console API.
type ReconHandler struct {
	reconService   *service.ReconService
	insightService *service.InsightService
	reconLoop      *service.ReconLoop
	logger         *zap.Logger
}

func NewReconHandler(
	reconService *service.ReconService,
	insightService *service.InsightService,
	reconLoop *service.ReconLoop,
	logger *zap.Logger,
) *ReconHandler {
	return &ReconHandler{
		reconService:   reconService,
		insightService: insightService,
		reconLoop:      reconLoop,
		logger:         logger,
	}
}

// UploadBatch runs the pipeline over an uploaded CSV feed.
// POST /api/recon/batches
func (h *ReconHandler) UploadBatch(c echo.Context) error {
	ctx := c.Request().Context()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return xe.ErrEmptyBatchFile
	}
	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	raw, err := ingest.ReadCSV(file, fileHeader.Filename)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return h.runBatch(ctx, c, raw)
}

// SubmitRowsRequest is a raw batch posted as JSON instead of a file.
type SubmitRowsRequest struct {
	Source  string                   `json:"source"`
	Columns []string                 `json:"columns" validate:"required,min=1"`
	Rows    []map[string]interface{} `json:"rows" validate:"required"`
}

// SubmitRows runs the pipeline over rows posted as JSON.
// POST /api/recon/batches/rows
func (h *ReconHandler) SubmitRows(c echo.Context) error {
	ctx := c.Request().Context()

	var req SubmitRowsRequest
	if err := c.Bind(&req); err != nil {
		return xe.ErrInvalidParams
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.Source == "" {
		req.Source = "api"
	}

	raw := &ingest.RawBatch{
		Source:  req.Source,
		Columns: req.Columns,
		Rows:    make([]map[string]string, 0, len(req.Rows)),
	}
	for _, row := range req.Rows {
		converted := make(map[string]string, len(row))
		for name, value := range row {
			converted[name] = cast.ToString(value)
		}
		raw.Rows = append(raw.Rows, converted)
	}

	return h.runBatch(ctx, c, raw)
}

func (h *ReconHandler) runBatch(ctx context.Context, c echo.Context, raw *ingest.RawBatch) error {
	batch, err := h.reconService.ExecuteBatch(ctx, raw)
	if err != nil {
		var schemaErr *service.SchemaError
		if errors.As(err, &schemaErr) {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error": schemaErr.Error(),
				"batch": batch,
			})
		}
		return err
	}

	return c.JSON(http.StatusOK, batch)
}

// ListBatches returns recent runs.
// GET /api/recon/batches
func (h *ReconHandler) ListBatches(c echo.Context) error {
	ctx := c.Request().Context()

	limit := cast.ToInt(c.QueryParam("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	batches, err := h.reconService.RecentBatches(ctx, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, batches)
}

// GetBatch returns one batch with its aggregate counts and summary.
// GET /api/recon/batches/:id
func (h *ReconHandler) GetBatch(c echo.Context) error {
	ctx := c.Request().Context()

	batch, err := h.reconService.GetBatch(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrBatchNotFound) {
			return xe.ErrBatchNotFound
		}
		return err
	}
	return c.JSON(http.StatusOK, batch)
}

// GetRecords returns the full augmented record set of a batch.
// GET /api/recon/batches/:id/records
func (h *ReconHandler) GetRecords(c echo.Context) error {
	ctx := c.Request().Context()

	records, err := h.reconService.BatchRecords(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}

// GetBreaks returns only the break records, most anomalous first.
// GET /api/recon/batches/:id/breaks
func (h *ReconHandler) GetBreaks(c echo.Context) error {
	ctx := c.Request().Context()

	records, err := h.reconService.BatchBreaks(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}

// GetLLMLogs returns the narrative calls made for a batch.
// GET /api/recon/batches/:id/llm-logs
func (h *ReconHandler) GetLLMLogs(c echo.Context) error {
	ctx := c.Request().Context()

	logs, err := h.insightService.FindByBatchID(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, logs)
}

// GetRecentLLMLogs returns the latest narrative calls across batches.
// GET /api/recon/llm-logs
func (h *ReconHandler) GetRecentLLMLogs(c echo.Context) error {
	ctx := c.Request().Context()

	limit := cast.ToInt(c.QueryParam("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	logs, err := h.insightService.FindRecentLogs(ctx, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, logs)
}

// GetSeries returns the history of one identity key across batches.
// GET /api/recon/series
func (h *ReconHandler) GetSeries(c echo.Context) error {
	ctx := c.Request().Context()

	records, err := h.reconService.Series(ctx,
		c.QueryParam("company"),
		c.QueryParam("account"),
		c.QueryParam("accounting_unit"),
		c.QueryParam("currency"),
		c.QueryParam("primary_account"),
		cast.ToInt(c.QueryParam("limit")),
	)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}

// LoopStatus reports the inbox loop state.
// GET /api/recon/loop/status
func (h *ReconHandler) LoopStatus(c echo.Context) error {
	if h.reconLoop == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"enabled": false,
		})
	}
	status := h.reconLoop.GetStatus()
	status["enabled"] = true
	return c.JSON(http.StatusOK, status)
}

// StartLoop starts the inbox loop.
// POST /api/recon/loop/start
func (h *ReconHandler) StartLoop(c echo.Context) error {
	if h.reconLoop == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "inbox loop is not configured")
	}
	if h.reconLoop.IsRunning() {
		return echo.NewHTTPError(http.StatusBadRequest, "inbox loop is already running")
	}

	go func() {
		if err := h.reconLoop.Start(context.Background()); err != nil {
			h.logger.Error("recon loop error", zap.Error(err))
		}
	}()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "inbox loop started",
	})
}

// StopLoop stops the inbox loop.
// POST /api/recon/loop/stop
func (h *ReconHandler) StopLoop(c echo.Context) error {
	if h.reconLoop == nil || !h.reconLoop.IsRunning() {
		return echo.NewHTTPError(http.StatusBadRequest, "inbox loop is not running")
	}
	h.reconLoop.Stop()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "inbox loop stopped",
	})
}

// RegisterRoutes mounts the reconciliation API.
func (h *ReconHandler) RegisterRoutes(g *echo.Group) {
	recon := g.Group("/recon")

	recon.POST("/batches", h.UploadBatch)
	recon.POST("/batches/rows", h.SubmitRows)
	recon.GET("/batches", h.ListBatches)
	recon.GET("/batches/:id", h.GetBatch)
	recon.GET("/batches/:id/records", h.GetRecords)
	recon.GET("/batches/:id/breaks", h.GetBreaks)
	recon.GET("/batches/:id/llm-logs", h.GetLLMLogs)
	recon.GET("/llm-logs", h.GetRecentLLMLogs)
	recon.GET("/series", h.GetSeries)

	recon.GET("/loop/status", h.LoopStatus)
	recon.POST("/loop/start", h.StartLoop)
	recon.POST("/loop/stop", h.StopLoop)
}
