package api

import (
	"net/http"

	"FinCast/internal/domain"
	models "FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/service/ratelimit"
	"FinCast/internal/usecase"
	xhttp "FinCast/pkg/http"
	xlogger "FinCast/pkg/logger"
	"FinCast/pkg/queue"

	"github.com/labstack/echo/v4"
)

// ForecastEchoHandler serves stored forecasts and triggers new runs.
type ForecastEchoHandler struct {
	logger    *xlogger.Logger
	runner    *usecase.ForecastRunner
	query     *usecase.ForecastQueryUseCase
	publisher queue.Publisher // nil when the queue is disabled
	limiter   *ratelimit.Limiter
	precision int32
}

func NewForecastEchoHandler(
	logger *xlogger.Logger,
	runner *usecase.ForecastRunner,
	query *usecase.ForecastQueryUseCase,
	publisher queue.Publisher,
	limiter *ratelimit.Limiter,
	precision int32,
) *ForecastEchoHandler {
	return &ForecastEchoHandler{
		logger:    logger,
		runner:    runner,
		query:     query,
		publisher: publisher,
		limiter:   limiter,
		precision: precision,
	}
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/forecast", h.Latest)
	g.POST("/forecast/run", h.Run, h.rateLimit)
	g.GET("/backends", h.Backends)
}

type runAccepted struct {
	JobID   string `json:"job_id"`
	Symbol  string `json:"symbol"`
	Backend string `json:"backend"`
}

type backendsResponse struct {
	Backends []string `json:"backends"`
	Default  string   `json:"default"`
}

// Latest returns the most recent stored forecast for a symbol and backend.
func (h *ForecastEchoHandler) Latest(c echo.Context) error {
	req := &models.ForecastQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	table, err := h.query.Latest(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "forecast query error", err)
	}
	return xhttp.SuccessResponse(c, models.NewForecastDTO(table, h.precision))
}

// Run forecasts one symbol. Async requests are queued and answered with 202.
func (h *ForecastEchoHandler) Run(c echo.Context) error {
	req := &models.RunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()

	if req.Async {
		if h.publisher == nil {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("asynchronous runs require the job queue"))
		}
		id, err := h.publisher.PublishMessage(ctx, usecase.ForecastJobType, req)
		if err != nil {
			return h.fail(c, "enqueue forecast run", err)
		}
		return xhttp.AcceptedResponse(c, runAccepted{JobID: id, Symbol: req.Symbol, Backend: req.Backend})
	}

	table, err := h.runner.RunSymbol(ctx, req.Symbol, req.Backend)
	if err != nil {
		return h.fail(c, "forecast run error", err)
	}
	return xhttp.SuccessResponse(c, models.NewForecastDTO(table, h.precision))
}

// Backends lists the forecasting backends available to this process.
func (h *ForecastEchoHandler) Backends(c echo.Context) error {
	return xhttp.SuccessResponse(c, backendsResponse{
		Backends: h.runner.Backends(),
		Default:  string(domrepo.DefaultBackend()),
	})
}

func (h *ForecastEchoHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many forecast runs, retry later"))
		}
		return next(c)
	}
}

func (h *ForecastEchoHandler) fail(c echo.Context, msg string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= 500 {
		h.logger.Error(msg, xlogger.Error(err))
	} else {
		h.logger.Debug(msg, xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

var forecastErrorRules = []xhttp.ErrorRule{
	{Target: domain.ErrSeriesNotFound, Status: http.StatusNotFound, Code: xhttp.CodeNotFound},
	{Target: domain.ErrForecastNotFound, Status: http.StatusNotFound, Code: xhttp.CodeNotFound},
	{Target: domain.ErrUnknownBackend, Status: http.StatusBadRequest, Code: xhttp.CodeBadRequest},
	{Target: domain.ErrInvalidRequest, Status: http.StatusBadRequest, Code: xhttp.CodeBadRequest},
	{Target: domain.ErrInsufficientHistory, Status: http.StatusUnprocessableEntity, Code: xhttp.CodeUnprocessable},
	{Target: domain.ErrInvalidSeries, Status: http.StatusUnprocessableEntity, Code: xhttp.CodeUnprocessable},
	{Target: domain.ErrRunInProgress, Status: http.StatusConflict, Code: xhttp.CodeConflict},
}

func toAppError(err error) *xhttp.AppError {
	return xhttp.MapError(err, "forecast service failure", forecastErrorRules...)
}
