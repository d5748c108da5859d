package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ogurasousui/habilitation-registry/internal/core/habilitation"
	"github.com/sirupsen/logrus"
)

// HabilitationHandler は Habilitation API のハンドラです。
type HabilitationHandler struct {
	habilitations habilitation.UseCase
	clock         Clock
	logger        *logrus.Logger
}

// NewHabilitationHandler は HabilitationHandler を生成します。
func NewHabilitationHandler(habilitations habilitation.UseCase, clock Clock, logger *logrus.Logger) *HabilitationHandler {
	if clock == nil {
		clock = realClock{}
	}
	return &HabilitationHandler{habilitations: habilitations, clock: clock, logger: logger}
}

type createHabilitationRequest struct {
	Family         string   `json:"family"`
	Codes          []string `json:"codes"`
	Numero         *string  `json:"numero"`
	DateValidation string   `json:"dateValidation"`
	DateExpiration string   `json:"dateExpiration"`
	DocumentRef    *string  `json:"documentRef"`
}

// Create は POST /api/employees/{employeeID}/habilitations を処理します。
// 同一従業員・同一区分の既存行がある場合は上書きされます。
func (h *HabilitationHandler) Create(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")

	var req createHabilitationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_argument", Detail: "malformed JSON body"})
		return
	}

	validation, err := parseBoundaryDate(req.DateValidation)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	expiration, err := parseBoundaryDate(req.DateExpiration)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	created, err := h.habilitations.Create(r.Context(), habilitation.CreateInput{
		EmployeeID:     employeeID,
		Family:         habilitation.Family(req.Family),
		Codes:          req.Codes,
		Numero:         req.Numero,
		DateValidation: validation,
		DateExpiration: expiration,
		DocumentRef:    req.DocumentRef,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toHabilitationPayload(created, h.clock.Now()))
}

type renewHabilitationRequest struct {
	Codes          []string `json:"codes"`
	Numero         *string  `json:"numero"`
	DateValidation string   `json:"dateValidation"`
	DateExpiration string   `json:"dateExpiration"`
	DocumentRef    *string  `json:"documentRef"`
}

// Renew は PUT /api/habilitations/{habilitationID} を処理します。日付は
// D/M/YYYY と YYYY-MM-DD のどちらの表記も受け付けます。
func (h *HabilitationHandler) Renew(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "habilitationID")

	var req renewHabilitationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_argument", Detail: "malformed JSON body"})
		return
	}

	validation, err := parseBoundaryDate(req.DateValidation)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	expiration, err := parseBoundaryDate(req.DateExpiration)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	renewed, err := h.habilitations.Renew(r.Context(), habilitation.RenewInput{
		ID:             id,
		Codes:          req.Codes,
		Numero:         req.Numero,
		DateValidation: validation,
		DateExpiration: expiration,
		DocumentRef:    req.DocumentRef,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toHabilitationPayload(renewed, h.clock.Now()))
}

// Delete は DELETE /api/habilitations/{habilitationID} を処理します。
func (h *HabilitationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "habilitationID")

	if err := h.habilitations.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type expiredEntryPayload struct {
	habilitationPayload
	Matricule  string `json:"matricule"`
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
}

// ListExpired は GET /api/habilitations/expired を処理します。
func (h *HabilitationHandler) ListExpired(w http.ResponseWriter, r *http.Request) {
	asOf := h.clock.Now()

	entries, err := h.habilitations.ListExpired(r.Context(), asOf)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	payloads := make([]expiredEntryPayload, 0, len(entries))
	for _, entry := range entries {
		payloads = append(payloads, expiredEntryPayload{
			habilitationPayload: toHabilitationPayload(entry.Habilitation, asOf),
			Matricule:           entry.Matricule,
			GivenName:           entry.GivenName,
			FamilyName:          entry.FamilyName,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"habilitations": payloads})
}
