package cashbox

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/balcao-pdv/balcao-pdv/internal/platform/httpx"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/abrir", h.Open)
	r.Post("/fechar", h.Close)
	r.Get("/atual", h.Current)
	r.Get("/movimentos", h.Movements)
	r.Post("/movimentos", h.AddMovement)
}

type openRequest struct {
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

type movementRequest struct {
	Kind        string          `json:"kind" validate:"required,oneof=MANUAL_IN MANUAL_OUT"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=300"`
}

func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	session, err := h.service.Open(r.Context(), req.OpeningBalance)
	if err != nil {
		h.logger.Error("open cash session", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("cash session opened", slog.Int64("session_id", session.ID))
	httpx.JSON(w, http.StatusCreated, session)
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Close(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("cash session closed", slog.Int64("session_id", session.ID))
	httpx.JSON(w, http.StatusOK, session)
}

func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Current(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}

func (h *Handler) Movements(w http.ResponseWriter, r *http.Request) {
	movements, err := h.service.Movements(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if movements == nil {
		movements = []Movement{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": movements})
}

func (h *Handler) AddMovement(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	movement, err := h.service.AddManual(r.Context(), req.Kind, req.Amount, req.Description)
	if err != nil {
		h.logger.Error("add cash movement", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}
