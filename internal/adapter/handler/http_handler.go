package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/retailops/posengine/internal/core/domain"
	"github.com/retailops/posengine/internal/core/service"
	"github.com/retailops/posengine/internal/port"
)

type HTTPHandler struct {
	sales *service.SaleService
	log   zerolog.Logger
}

func NewHTTPHandler(sales *service.SaleService, log zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{sales: sales, log: log}
}

type submitLineJSON struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type submitSaleJSON struct {
	Lines           []submitLineJSON `json:"lines"`
	CustomerRef     string           `json:"customer_ref,omitempty"`
	PaymentMethod   string           `json:"payment_method"`
	DiscountPercent float64          `json:"discount_percent,omitempty"`
}

type submitSaleResponse struct {
	SaleID       string `json:"sale_id"`
	Total        string `json:"total"`
	Receipt      string `json:"receipt"`
	PointsEarned int64  `json:"points_earned"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	ItemID    string `json:"item_id,omitempty"`
	Requested int    `json:"requested,omitempty"`
	Available int    `json:"available,omitempty"`
}

type saleSummaryJSON struct {
	SaleID        string    `json:"sale_id"`
	CustomerRef   string    `json:"customer_ref,omitempty"`
	PaymentMethod string    `json:"payment_method"`
	Total         string    `json:"total"`
	LineCount     int       `json:"line_count"`
	UnitsSold     int       `json:"units_sold"`
	LineTotal     string    `json:"line_total"`
	CreatedAt     time.Time `json:"created_at"`
}

func (h *HTTPHandler) SubmitSale(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req submitSaleJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "bad_request",
			Message: "invalid request body",
		})
		return
	}

	lines := make([]service.SubmitLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, service.SubmitLine{ItemID: l.ItemID, Quantity: l.Quantity})
	}

	result, err := h.sales.SubmitSale(r.Context(), service.SubmitSaleRequest{
		Lines:           lines,
		CustomerRef:     req.CustomerRef,
		PaymentMethod:   req.PaymentMethod,
		DiscountPercent: decimal.NewFromFloat(req.DiscountPercent),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, submitSaleResponse{
		SaleID:       result.Sale.ID,
		Total:        result.Sale.Total.StringFixed(2),
		Receipt:      result.Receipt,
		PointsEarned: result.PointsEarned,
	})
}

func (h *HTTPHandler) SaleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter := port.HistoryFilter{CustomerRef: r.URL.Query().Get("customer_ref")}

	var err error
	if filter.From, err = parseTimeParam(r.URL.Query().Get("from")); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "invalid from date"})
		return
	}
	if filter.To, err = parseTimeParam(r.URL.Query().Get("to")); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "invalid to date"})
		return
	}

	summaries, err := h.sales.SaleHistory(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]saleSummaryJSON, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, saleSummaryJSON{
			SaleID:        s.ID,
			CustomerRef:   s.CustomerRef,
			PaymentMethod: string(s.PaymentMethod),
			Total:         s.Total.StringFixed(2),
			LineCount:     s.LineCount,
			UnitsSold:     s.UnitsSold,
			LineTotal:     s.LineTotal.StringFixed(2),
			CreatedAt:     s.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	saleID := r.URL.Query().Get("sale_id")
	if saleID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "sale_id required"})
		return
	}

	text, err := h.sales.Receipt(r.Context(), saleID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError maps the error taxonomy onto HTTP statuses: validation failures
// are 4xx with enough detail to correct and resubmit; persistence failures
// are 503 so the UI can distinguish "your data was wrong" from "the system
// failed".
func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	var stockErr *domain.InsufficientStockError
	var notFound *domain.ItemNotFoundError
	var pErr *domain.PersistenceError

	switch {
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidPaymentMethod),
		errors.Is(err, domain.ErrInvalidDiscount),
		errors.Is(err, domain.ErrNonPositiveTotal):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation", Message: err.Error()})
	case errors.Is(err, domain.ErrSaleNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found", Message: err.Error()})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error:   "item_not_found",
			Message: err.Error(),
			ItemID:  notFound.ItemID,
		})
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:     "insufficient_stock",
			Message:   err.Error(),
			ItemID:    stockErr.ItemID,
			Requested: stockErr.Requested,
			Available: stockErr.Available,
		})
	case errors.As(err, &pErr):
		h.log.Error().Err(err).Msg("sale persistence failure")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error:   "persistence",
			Message: "the sale could not be committed; nothing was recorded",
		})
	default:
		h.log.Error().Err(err).Msg("unexpected error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal", Message: "internal error"})
	}
}

func parseTimeParam(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
