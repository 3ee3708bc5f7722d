package ledger

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

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
	r.Route("/vendas", func(r chi.Router) {
		r.Get("/", h.ListSales)
		r.Post("/", h.RecordSale)
		r.Get("/{id}", h.ShowSale)
		r.Delete("/{id}", h.CancelSale)
	})
	r.Route("/contas-receber", func(r chi.Router) {
		r.Get("/", h.ListReceivables)
		r.Post("/baixar/{id}", h.SettleReceivable)
	})
}

func (h *Handler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var req RecordSaleRequest
	if err := httpx.DecodeJSONStrict(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body: "+err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	sale, err := h.service.RecordSale(r.Context(), req)
	if err != nil {
		h.logger.Error("record sale", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("sale recorded", slog.Int64("sale_id", sale.ID), slog.String("total", sale.Total.String()))
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	sales, _, err := h.service.ListSales(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list sales", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if sales == nil {
		sales = []Sale{}
	}
	httpx.JSON(w, http.StatusOK, sales)
}

func (h *Handler) ShowSale(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid sale id")
		return
	}
	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) CancelSale(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid sale id")
		return
	}
	if err := h.service.CancelSale(r.Context(), id); err != nil {
		h.logger.Error("cancel sale", slog.Any("error", err), slog.Int64("sale_id", id))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("sale cancelled", slog.Int64("sale_id", id))
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "venda cancelada"})
}

func (h *Handler) ListReceivables(w http.ResponseWriter, r *http.Request) {
	receivables, err := h.service.ListPendingReceivables(r.Context())
	if err != nil {
		h.logger.Error("list receivables", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if receivables == nil {
		receivables = []Receivable{}
	}
	httpx.JSON(w, http.StatusOK, receivables)
}

func (h *Handler) SettleReceivable(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid receivable id")
		return
	}
	receivable, err := h.service.SettleReceivable(r.Context(), id)
	if err != nil {
		h.logger.Error("settle receivable", slog.Any("error", err), slog.Int64("receivable_id", id))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("receivable settled", slog.Int64("receivable_id", id))
	httpx.JSON(w, http.StatusOK, receivable)
}
