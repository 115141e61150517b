package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/returnguard/returnguard/internal/backup"
	"github.com/returnguard/returnguard/internal/extract"
	"github.com/returnguard/returnguard/internal/model"
	"github.com/returnguard/returnguard/internal/reminder"
	"github.com/returnguard/returnguard/internal/store"
)

// handleCreateDraft runs the extraction engine over raw OCR text.
func (s *Server) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	draft := s.engine.BuildDraft(r.Context(), req.Text)
	respondJSON(w, http.StatusOK, draft)
}

// purchaseRequest is the write payload for creating and updating purchases.
type purchaseRequest struct {
	ProductName    string `json:"product_name"`
	Merchant       string `json:"merchant"`
	PurchaseDate   string `json:"purchase_date"`
	ReturnDays     *int   `json:"return_days"`
	WarrantyMonths *int   `json:"warranty_months"`
	PriceInput     string `json:"price_input"`
	PriceCents     *int64 `json:"price_cents"`
	Notes          string `json:"notes"`
	Archived       bool   `json:"archived"`
}

// toPurchase validates the payload and fills defaults.
func (req *purchaseRequest) toPurchase() (*model.Purchase, error) {
	name := strings.TrimSpace(req.ProductName)
	if name == "" {
		return nil, errors.New("product_name is required")
	}
	date, err := time.Parse("2006-01-02", req.PurchaseDate)
	if err != nil {
		return nil, errors.New("purchase_date must be YYYY-MM-DD")
	}

	p := &model.Purchase{
		ProductName:    name,
		Merchant:       strings.TrimSpace(req.Merchant),
		PurchaseDay:    model.EpochDay(date),
		ReturnDays:     model.DefaultReturnDays,
		WarrantyMonths: model.DefaultWarrantyMonths,
		Notes:          req.Notes,
		Archived:       req.Archived,
	}
	if req.ReturnDays != nil {
		if *req.ReturnDays < 0 {
			return nil, errors.New("return_days must be >= 0")
		}
		p.ReturnDays = *req.ReturnDays
	}
	if req.WarrantyMonths != nil {
		if *req.WarrantyMonths < 0 {
			return nil, errors.New("warranty_months must be >= 0")
		}
		p.WarrantyMonths = *req.WarrantyMonths
	}

	switch {
	case req.PriceCents != nil:
		if *req.PriceCents < 0 {
			return nil, errors.New("price_cents must be >= 0")
		}
		v := *req.PriceCents
		p.PriceCents = &v
	case strings.TrimSpace(req.PriceInput) != "":
		cents, ok := extract.ParseCents(req.PriceInput)
		if !ok {
			return nil, errors.New("price_input is not a valid amount")
		}
		p.PriceCents = &cents
	}
	return p, nil
}

func (s *Server) handleCreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := req.toPurchase()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.CreatePurchase(r.Context(), p); err != nil {
		zap.L().Error("server: create purchase", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "create failed")
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (s *Server) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ListFilter{
		IncludeArchived: q.Get("archived") == "true",
		Merchant:        q.Get("merchant"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	items, err := s.store.ListPurchases(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list purchases", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if items == nil {
		items = []model.Purchase{}
	}
	respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetPurchase(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.store.GetPurchase(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "purchase not found")
		return
	}
	if err != nil {
		zap.L().Error("server: get purchase", zap.String("id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "get failed")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePurchase(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := req.toPurchase()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	p.ID = id

	existing, err := s.store.GetPurchase(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "purchase not found")
		return
	}
	if err != nil {
		zap.L().Error("server: load purchase", zap.String("id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "update failed")
		return
	}
	p.CreatedAtMs = existing.CreatedAtMs

	if err := s.store.UpdatePurchase(r.Context(), p); err != nil {
		zap.L().Error("server: update purchase", zap.String("id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "update failed")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePurchase(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.store.DeletePurchase(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "purchase not found")
		return
	}
	if err != nil {
		zap.L().Error("server: delete purchase", zap.String("id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleArchivePurchase(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Archived bool `json:"archived"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.store.SetArchived(r.Context(), id, req.Archived)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "purchase not found")
		return
	}
	if err != nil {
		zap.L().Error("server: archive purchase", zap.String("id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "archive failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "archived": req.Archived})
}

// handleDuePurchases lists reminders for purchases due within ?days (default 1).
func (s *Server) handleDuePurchases(w http.ResponseWriter, r *http.Request) {
	days := 1
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "days must be a non-negative integer")
			return
		}
		days = n
	}

	today := model.EpochDay(s.now())
	items, err := s.store.DueBetween(r.Context(), today, today+int64(days))
	if err != nil {
		zap.L().Error("server: due purchases", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "due query failed")
		return
	}

	out := make([]reminder.Reminder, 0, len(items))
	for _, p := range items {
		daysLeft := int(p.ReturnDueDay() - today)
		out = append(out, reminder.Reminder{
			Purchase: p,
			DueDay:   p.ReturnDueDay(),
			DaysLeft: daysLeft,
			Title:    reminder.TitleFor(daysLeft),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// handleExportBackup streams the full dataset as JSON, or as an XLSX report
// with ?format=xlsx.
func (s *Server) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "xlsx" {
		items, err := s.store.ListPurchases(r.Context(), store.ListFilter{IncludeArchived: true})
		if err != nil {
			zap.L().Error("server: export xlsx", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "export failed")
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="returnguard.xlsx"`)
		if err := backup.WriteXLSX(w, items); err != nil {
			zap.L().Error("server: write xlsx", zap.Error(err))
		}
		return
	}

	file, err := backup.Export(r.Context(), s.store, s.now)
	if err != nil {
		zap.L().Error("server: export backup", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="returnguard-backup.json"`)
	if err := backup.WriteJSON(w, file); err != nil {
		zap.L().Error("server: write backup", zap.Error(err))
	}
}

func (s *Server) handleImportBackup(w http.ResponseWriter, r *http.Request) {
	n, err := backup.Import(r.Context(), s.store, r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "import failed: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"imported": n})
}
