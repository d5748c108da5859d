package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ogurasousui/habilitation-registry/internal/core/bulkimport"
	"github.com/ogurasousui/habilitation-registry/internal/core/employee"
	"github.com/ogurasousui/habilitation-registry/internal/core/habilitation"
	"github.com/ogurasousui/habilitation-registry/internal/core/hierarchy"
	"github.com/ogurasousui/habilitation-registry/internal/platform/auth"
	"github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// errorMapping はドメインの番兵エラーから HTTP ステータスとエラーコードへの
// 対応表です。単一レコード操作の失敗は例外ではなく構造化された結果として
// 境界を越えます。
var errorMapping = []struct {
	target error
	status int
	code   string
}{
	{employee.ErrEmployeeNotFound, http.StatusNotFound, "not_found"},
	{habilitation.ErrHabilitationNotFound, http.StatusNotFound, "not_found"},
	{habilitation.ErrEmployeeNotFound, http.StatusNotFound, "not_found"},
	{hierarchy.ErrNodeNotFound, http.StatusNotFound, "not_found"},
	{auth.ErrAccountNotFound, http.StatusNotFound, "not_found"},

	{habilitation.ErrInvalidCode, http.StatusBadRequest, "invalid_code"},
	{habilitation.ErrEmptyCodeSet, http.StatusBadRequest, "empty_code_set"},
	{habilitation.ErrInvalidDateRange, http.StatusBadRequest, "invalid_date_range"},
	{habilitation.ErrInvalidFamily, http.StatusBadRequest, "invalid_family"},
	{bulkimport.ErrMalformedDate, http.StatusBadRequest, "malformed_date"},
	{bulkimport.ErrEmptyPayload, http.StatusBadRequest, "empty_payload"},

	{hierarchy.ErrNameConflict, http.StatusConflict, "hierarchy_conflict"},
	{employee.ErrMatriculeAlreadyExists, http.StatusConflict, "matricule_conflict"},
	{habilitation.ErrFamilyAlreadyHeld, http.StatusConflict, "family_conflict"},
	{auth.ErrEmailAlreadyExists, http.StatusConflict, "email_conflict"},

	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "unauthorized"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "unauthorized"},

	{employee.ErrInvalidMatricule, http.StatusBadRequest, "invalid_argument"},
	{employee.ErrInvalidGivenName, http.StatusBadRequest, "invalid_argument"},
	{employee.ErrInvalidFamilyName, http.StatusBadRequest, "invalid_argument"},
	{employee.ErrInvalidHierarchyPath, http.StatusBadRequest, "invalid_argument"},
	{employee.ErrInvalidSortKey, http.StatusBadRequest, "invalid_argument"},
	{employee.ErrInvalidID, http.StatusBadRequest, "invalid_argument"},
	{habilitation.ErrInvalidID, http.StatusBadRequest, "invalid_argument"},
	{habilitation.ErrInvalidEmployeeID, http.StatusBadRequest, "invalid_argument"},
	{hierarchy.ErrInvalidDivisionName, http.StatusBadRequest, "invalid_argument"},
	{hierarchy.ErrInvalidServiceName, http.StatusBadRequest, "invalid_argument"},
	{hierarchy.ErrInvalidSectionName, http.StatusBadRequest, "invalid_argument"},
	{hierarchy.ErrInconsistentPath, http.StatusBadRequest, "invalid_argument"},
	{auth.ErrInvalidEmail, http.StatusBadRequest, "invalid_argument"},
	{auth.ErrInvalidPassword, http.StatusBadRequest, "invalid_argument"},
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError は番兵エラーを HTTP 応答へ変換します。対応表にないエラーは
// 永続層の異常とみなし 500 を返してログに残します。
func writeError(w http.ResponseWriter, logger *logrus.Logger, err error) {
	for _, m := range errorMapping {
		if errors.Is(err, m.target) {
			writeJSON(w, m.status, errorResponse{Error: m.code, Detail: err.Error()})
			return
		}
	}

	logger.WithError(err).Error("request failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal"})
}

func decodeJSON(r *http.Request, dst any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(dst)
}
