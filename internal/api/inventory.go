package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"carestock/m/internal/inventory"
)

// Location handlers

type locationRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func (h *Handler) createLocation(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin") {
		return
	}
	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, clinicID := actor(r)
	loc, err := h.svc.CreateLocation(r.Context(), req.Name, req.Kind, clinicID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, loc)
}

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	_, clinicID := actor(r)
	locations, err := h.svc.ListLocations(r.Context(), clinicID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, locations)
}

func (h *Handler) updateLocation(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin") {
		return
	}
	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, clinicID := actor(r)
	loc, err := h.svc.UpdateLocation(r.Context(), chi.URLParam(r, "id"), clinicID, req.Name, req.Kind)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, loc)
}

// Lot handlers

func (h *Handler) createLot(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin", "staff") {
		return
	}
	var req inventory.CreateLotInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, clinicID := actor(r)
	lot, err := h.svc.CreateLot(r.Context(), req, clinicID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, lot)
}

func (h *Handler) listLots(w http.ResponseWriter, r *http.Request) {
	_, clinicID := actor(r)
	lots, err := h.svc.ListLots(r.Context(), clinicID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lots)
}

type lotUpdateRequest struct {
	Source      *string `json:"source,omitempty"`
	Note        *string `json:"note,omitempty"`
	LocationID  *string `json:"location_id,omitempty"`
	MaxCapacity *int64  `json:"max_capacity,omitempty"`
}

func (h *Handler) updateLot(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin", "staff") {
		return
	}
	var req lotUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, clinicID := actor(r)
	lot, err := h.svc.UpdateLot(r.Context(), chi.URLParam(r, "id"), clinicID, inventory.LotUpdate{
		Source:      req.Source,
		Note:        req.Note,
		LocationID:  req.LocationID,
		MaxCapacity: req.MaxCapacity,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lot)
}

func (h *Handler) lotCapacity(w http.ResponseWriter, r *http.Request) {
	_, clinicID := actor(r)
	current, err := h.svc.CurrentCapacity(r.Context(), chi.URLParam(r, "id"), clinicID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"current_capacity": current})
}

// Drug catalog handlers

func (h *Handler) searchDrugs(w http.ResponseWriter, r *http.Request) {
	drugs, err := h.svc.SearchDrugs(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, drugs)
}

func (h *Handler) createDrug(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin", "staff") {
		return
	}
	var req inventory.DrugInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	drug, err := h.svc.FindOrCreateDrug(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, drug)
}

// Unit handlers

func (h *Handler) createUnit(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin", "staff") {
		return
	}
	var req inventory.CreateUnitInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, clinicID := actor(r)
	unit, err := h.svc.CreateUnit(r.Context(), req, userID, clinicID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, unit)
}

func (h *Handler) getUnit(w http.ResponseWriter, r *http.Request) {
	_, clinicID := actor(r)
	unit, err := h.svc.GetUnit(r.Context(), chi.URLParam(r, "id"), clinicID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, unit)
}

func (h *Handler) listUnits(w http.ResponseWriter, r *http.Request) {
	_, clinicID := actor(r)
	page, err := h.svc.ListUnits(r.Context(), clinicID, queryInt(r, "page"), queryInt(r, "page_size"), r.URL.Query().Get("search"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *Handler) searchUnits(w http.ResponseWriter, r *http.Request) {
	_, clinicID := actor(r)
	units, err := h.svc.SearchUnits(r.Context(), r.URL.Query().Get("query"), clinicID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, units)
}

type unitUpdateRequest struct {
	TotalQuantity     *int64  `json:"total_quantity,omitempty"`
	AvailableQuantity *int64  `json:"available_quantity,omitempty"`
	ExpiryDate        *string `json:"expiry_date,omitempty"`
	Notes             *string `json:"notes,omitempty"`
}

func (h *Handler) updateUnit(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin", "staff") {
		return
	}
	var req unitUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, clinicID := actor(r)
	unit, err := h.svc.UpdateUnit(r.Context(), chi.URLParam(r, "id"), clinicID, inventory.UnitUpdate{
		TotalQuantity:     req.TotalQuantity,
		AvailableQuantity: req.AvailableQuantity,
		ExpiryDate:        req.ExpiryDate,
		Notes:             req.Notes,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, unit)
}

type advancedQueryRequest struct {
	inventory.AdvancedFilters
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

func (h *Handler) advancedQuery(w http.ResponseWriter, r *http.Request) {
	var req advancedQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, clinicID := actor(r)
	page, err := h.svc.AdvancedQuery(r.Context(), clinicID, req.AdvancedFilters, req.Page, req.PageSize)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// Checkout handlers

func (h *Handler) checkOutFEFO(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin", "staff") {
		return
	}
	var req inventory.CheckOutFEFORequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, clinicID := actor(r)
	result, err := h.svc.CheckOutFEFO(r.Context(), req, userID, clinicID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) checkOutUnit(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin", "staff") {
		return
	}
	var req inventory.CheckOutUnitRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, clinicID := actor(r)
	txn, err := h.svc.CheckOutUnit(r.Context(), req, userID, clinicID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, txn)
}

// Transaction handlers

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	_, clinicID := actor(r)
	page, err := h.svc.ListTransactions(r.Context(), clinicID,
		queryInt(r, "page"), queryInt(r, "page_size"),
		r.URL.Query().Get("search"), r.URL.Query().Get("unit_id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *Handler) recordTransaction(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin", "staff") {
		return
	}
	var req inventory.RecordTransactionInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, clinicID := actor(r)
	txn, err := h.svc.RecordTransaction(r.Context(), req, userID, clinicID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, txn)
}

type transactionUpdateRequest struct {
	Quantity *int64  `json:"quantity,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

func (h *Handler) updateTransaction(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "admin") {
		return
	}
	var req transactionUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, clinicID := actor(r)
	txn, err := h.svc.UpdateTransaction(r.Context(), chi.URLParam(r, "id"), clinicID, req.Quantity, req.Notes)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, txn)
}

// Report handlers

func (h *Handler) dashboardStats(w http.ResponseWriter, r *http.Request) {
	_, clinicID := actor(r)
	stats, err := h.svc.GetDashboardStats(r.Context(), clinicID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *Handler) medicationsExpiring(w http.ResponseWriter, r *http.Request) {
	_, clinicID := actor(r)
	groups, err := h.svc.GetMedicationsExpiring(r.Context(), queryInt(r, "days"), clinicID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, groups)
}

func (h *Handler) expiryReport(w http.ResponseWriter, r *http.Request) {
	_, clinicID := actor(r)
	report, err := h.svc.GetExpiryReport(r.Context(), clinicID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}
