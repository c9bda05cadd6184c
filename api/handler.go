package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	orchestratorx "github.com/tanpawarit/clinic-admin-console/agent/agents/orchestrator"
	consolex "github.com/tanpawarit/clinic-admin-console/agent/console"
	contractx "github.com/tanpawarit/clinic-admin-console/agent/contract"
)

type Handler struct {
	console *consolex.Console
	now     func() time.Time
}

func NewHandler(console *consolex.Console) *Handler {
	return &Handler{console: console, now: time.Now}
}

type chatRequest struct {
	Message string `json:"message"`
}

type viewRequest struct {
	View contractx.View `json:"view"`
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/console", h.GetConsole)
	api.GET("/patients", h.ListPatients)
	api.GET("/patients/:id", h.GetPatient)
	api.GET("/appointments", h.ListAppointments)
	api.GET("/invoices", h.ListInvoices)
	api.GET("/dashboard", h.GetDashboard)
	api.GET("/messages", h.ListMessages)
	api.POST("/chat", h.Chat)
	api.PUT("/view", h.SetView)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetConsole(c echo.Context) error {
	snap, err := h.console.Snapshot(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, snap)
}

func (h *Handler) ListPatients(c echo.Context) error {
	return c.JSON(http.StatusOK, h.console.Records().Snapshot().Patients)
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, ok := h.console.Records().FindPatient(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	return c.JSON(http.StatusOK, h.console.Records().Snapshot().Appointments)
}

func (h *Handler) ListInvoices(c echo.Context) error {
	return c.JSON(http.StatusOK, h.console.Records().Snapshot().Invoices)
}

func (h *Handler) GetDashboard(c echo.Context) error {
	return c.JSON(http.StatusOK, consolex.ComputeStats(h.console.Records().Snapshot(), h.now()))
}

func (h *Handler) ListMessages(c echo.Context) error {
	msgs, err := h.console.Messages(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if msgs == nil {
		msgs = []contractx.ChatMessage{}
	}
	return c.JSON(http.StatusOK, msgs)
}

func (h *Handler) Chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	// A started turn runs to its outcome even if the client goes away.
	reply, err := h.console.Submit(context.WithoutCancel(c.Request().Context()), req.Message)
	switch {
	case errors.Is(err, contractx.ErrTurnInFlight):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, orchestratorx.ErrInvalidMessage), errors.Is(err, orchestratorx.ErrInvalidSession):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		log.Error().Err(err).Msg("chat turn failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "chat turn failed")
	}
	return c.JSON(http.StatusOK, reply)
}

func (h *Handler) SetView(c echo.Context) error {
	var req viewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !req.View.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown view")
	}
	h.console.SetActiveView(req.View)
	return c.JSON(http.StatusOK, map[string]contractx.View{"activeView": h.console.ActiveView()})
}
