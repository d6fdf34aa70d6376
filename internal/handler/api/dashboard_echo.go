package api

import (
	"embed"
	"errors"
	"net/http"
	"time"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/handler/board"
	"StockPulse/internal/scheduler"
	"StockPulse/internal/service/ratelimit"
	"StockPulse/internal/usecase"
	xhttp "StockPulse/pkg/http"
	xlogger "StockPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

//go:embed static/index.html
var static embed.FS

// RateLimit is the per-client token bucket applied to upstream-heavy routes.
type RateLimit struct {
	Capacity float64
	Refill   float64
}

// DashboardEchoHandler serves the dashboard page, its live feed and its JSON API.
type DashboardEchoHandler struct {
	logger    *xlogger.Logger
	dash      *usecase.Dashboard
	ticker    *scheduler.Scheduler
	board     *board.Board
	hub       *board.Hub
	analytics *usecase.Analytics
	limiter   *ratelimit.Limiter
	rate      RateLimit
	source    string
}

func NewDashboardEchoHandler(
	logger *xlogger.Logger,
	dash *usecase.Dashboard,
	ticker *scheduler.Scheduler,
	b *board.Board,
	hub *board.Hub,
	analytics *usecase.Analytics,
	limiter *ratelimit.Limiter,
	rate RateLimit,
	source string,
) *DashboardEchoHandler {
	return &DashboardEchoHandler{
		logger:    logger,
		dash:      dash,
		ticker:    ticker,
		board:     b,
		hub:       hub,
		analytics: analytics,
		limiter:   limiter,
		rate:      rate,
		source:    source,
	}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Index)
	e.GET("/ws", h.Live)

	g := e.Group("/api")
	g.GET("/snapshot", h.Snapshot)
	g.GET("/analytics", h.Analytics)
	g.GET("/settings", h.Settings)
	g.PUT("/settings", h.UpdateSettings)
}

func (h *DashboardEchoHandler) Index(c echo.Context) error {
	b, err := static.ReadFile("static/index.html")
	if err != nil {
		return xhttp.InternalServerErrorResponse(c)
	}
	return c.HTMLBlob(http.StatusOK, b)
}

// Live streams frames and status changes over a WebSocket.
func (h *DashboardEchoHandler) Live(c echo.Context) error {
	if err := h.hub.Serve(c.Response(), c.Request(), h.board.Hello()...); err != nil {
		h.logger.Debug("websocket upgrade failed", xlogger.Error(err))
	}
	return nil
}

// SnapshotResponse is the current chart plus the status line.
type SnapshotResponse struct {
	Frame  models.Frame `json:"frame"`
	Status string       `json:"status"`
}

func (h *DashboardEchoHandler) Snapshot(c echo.Context) error {
	frame, status := h.board.Snapshot()
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, SnapshotResponse{Frame: frame, Status: status})
}

func (h *DashboardEchoHandler) Analytics(c echo.Context) error {
	req := &models.AnalyticsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.limiter.Allow("analytics:"+c.RealIP(), h.rate.Capacity, h.rate.Refill) {
		return xhttp.TooManyRequestsResponse(c)
	}

	symbol := h.dash.Symbol()
	if req.Symbol != "" {
		symbol = h.dash.Normalize(req.Symbol)
	}

	res, err := h.analytics.PriceAnalytics(c.Request().Context(), symbol)
	if err != nil {
		if errors.Is(err, models.ErrNoData) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError("No data available for "+symbol).WithError(err))
		}
		h.logger.Error("analytics usecase error", xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("Error fetching "+symbol).WithError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardEchoHandler) Settings(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.settings())
}

// UpdateSettings switches the symbol and the polling interval. A new symbol
// gets its first tick right away instead of waiting a full interval.
func (h *DashboardEchoHandler) UpdateSettings(c echo.Context) error {
	req := &models.SettingsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()

	changed, err := h.dash.ChangeSymbol(ctx, req.Symbol)
	if err != nil {
		h.logger.Error("change symbol failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithError(err))
	}
	if err := h.ticker.Reschedule(time.Duration(req.Interval) * time.Second); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithError(err))
	}
	if changed {
		go h.ticker.RunNow()
	}
	return xhttp.SuccessResponse(c, h.settings())
}

func (h *DashboardEchoHandler) settings() models.Settings {
	return models.Settings{
		Symbol:   h.dash.Symbol(),
		Interval: int(h.ticker.Interval() / time.Second),
		Source:   h.source,
	}
}
