package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	models "SignalPull/internal/domain/models"
	domrepo "SignalPull/internal/domain/repository"
	"SignalPull/internal/usecase"
	xhttp "SignalPull/pkg/http"
	xlogger "SignalPull/pkg/logger"
)

// SignalsEchoHandler serves health, stored signals and live baselines.
type SignalsEchoHandler struct {
	logger    *xlogger.Logger
	query     *usecase.SignalsQuery
	baselines *usecase.BaselineTracker
}

func NewSignalsEchoHandler(logger *xlogger.Logger, query *usecase.SignalsQuery, baselines *usecase.BaselineTracker) *SignalsEchoHandler {
	return &SignalsEchoHandler{logger: logger, query: query, baselines: baselines}
}

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/signals", h.Signals)
	e.GET("/signals/:symbol/latest", h.LatestSignal)
	e.GET("/baselines", h.Baselines)
}

func (h *SignalsEchoHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type signalsResponse struct {
	Count   int           `json:"count"`
	Signals []interface{} `json:"signals"`
}

func (h *SignalsEchoHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	signals, err := h.query.Recent(c.Request().Context(), req.Limit)
	if err != nil {
		h.logger.Error("read signals failed", xlogger.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, signalsResponse{Count: len(signals), Signals: signals})
}

func (h *SignalsEchoHandler) LatestSignal(c echo.Context) error {
	symbol := strings.ToUpper(c.Param("symbol"))
	rec, err := h.query.Latest(c.Request().Context(), symbol)
	if err != nil {
		if errors.Is(err, domrepo.ErrNoHistory) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no signal stored for %s", symbol))
		}
		h.logger.Error("read latest signal failed", xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, rec)
}

func (h *SignalsEchoHandler) Baselines(c echo.Context) error {
	rows := h.baselines.Snapshot()
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}
