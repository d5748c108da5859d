package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ogurasousui/habilitation-registry/internal/core/employee"
	"github.com/ogurasousui/habilitation-registry/internal/core/habilitation"
	"github.com/ogurasousui/habilitation-registry/internal/core/hierarchy"
	"github.com/sirupsen/logrus"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// EmployeeHandler は従業員 API のハンドラです。従業員の応答には保持する
// Habilitation と失効判定を合成します。
type EmployeeHandler struct {
	employees     employee.UseCase
	paths         hierarchy.UseCase
	habilitations habilitation.UseCase
	clock         Clock
	logger        *logrus.Logger
}

// NewEmployeeHandler は EmployeeHandler を生成します。
func NewEmployeeHandler(employees employee.UseCase, paths hierarchy.UseCase, habilitations habilitation.UseCase, clock Clock, logger *logrus.Logger) *EmployeeHandler {
	if clock == nil {
		clock = realClock{}
	}
	return &EmployeeHandler{
		employees:     employees,
		paths:         paths,
		habilitations: habilitations,
		clock:         clock,
		logger:        logger,
	}
}

type upsertEmployeeRequest struct {
	Matricule  string `json:"matricule"`
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
	Division   string `json:"division"`
	Service    string `json:"service"`
	Section    string `json:"section"`
	Equipe     string `json:"equipe"`
}

// Upsert は POST /api/employees を処理します。所属は名称で受け取り、
// 存在しない階層ノードは解決時に作成されます。
func (h *EmployeeHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertEmployeeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_argument", Detail: "malformed JSON body"})
		return
	}

	path, err := h.paths.ResolvePath(r.Context(), hierarchy.PathInput{
		Division: req.Division,
		Service:  req.Service,
		Section:  req.Section,
		Equipe:   req.Equipe,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	emp, created, err := h.employees.Upsert(r.Context(), employee.UpsertInput{
		Matricule:  req.Matricule,
		GivenName:  req.GivenName,
		FamilyName: req.FamilyName,
		DivisionID: path.DivisionID,
		ServiceID:  path.ServiceID,
		SectionID:  path.SectionID,
		EquipeID:   path.EquipeID,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	habs, err := h.habilitations.ListByEmployee(r.Context(), emp.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toEmployeePayload(emp, habs, h.clock.Now()))
}

// Get は GET /api/employees/{employeeID} を処理します。
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "employeeID")

	emp, err := h.employees.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	habs, err := h.habilitations.ListByEmployee(r.Context(), emp.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toEmployeePayload(emp, habs, h.clock.Now()))
}

// List は GET /api/employees を処理します。search・division・sort の
// クエリパラメータを受け付けます。
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	sortBy := employee.SortByMatricule
	if raw := strings.TrimSpace(query.Get("sort")); raw != "" {
		sortBy = employee.SortKey(raw)
	}

	employees, err := h.employees.List(r.Context(), employee.ListInput{
		SearchText: query.Get("search"),
		DivisionID: query.Get("division"),
		SortBy:     sortBy,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	ids := make([]string, 0, len(employees))
	for _, emp := range employees {
		ids = append(ids, emp.ID)
	}

	habsByEmployee, err := h.habilitations.ListByEmployeeIDs(r.Context(), ids)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	asOf := h.clock.Now()
	payloads := make([]employeePayload, 0, len(employees))
	for _, emp := range employees {
		payloads = append(payloads, toEmployeePayload(emp, habsByEmployee[emp.ID], asOf))
	}

	writeJSON(w, http.StatusOK, map[string]any{"employees": payloads})
}

// Delete は DELETE /api/employees/{employeeID} を処理します。紐づく
// Habilitation も同時に削除されます。
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "employeeID")

	if err := h.employees.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
