package handler

import (
	"net/http"

	"github.com/ogurasousui/habilitation-registry/internal/core/bulkimport"
	"github.com/sirupsen/logrus"
)

// ImportHandler は一括取り込み API のハンドラです。
type ImportHandler struct {
	importer bulkimport.UseCase
	logger   *logrus.Logger
}

// NewImportHandler は ImportHandler を生成します。
func NewImportHandler(importer bulkimport.UseCase, logger *logrus.Logger) *ImportHandler {
	return &ImportHandler{importer: importer, logger: logger}
}

type importRequest struct {
	TSVData string `json:"tsvData"`
}

type importFailurePayload struct {
	Row       int    `json:"row"`
	Matricule string `json:"matricule,omitempty"`
	Reason    string `json:"reason"`
}

type importResultPayload struct {
	Created  int                    `json:"created"`
	Updated  int                    `json:"updated"`
	Failed   int                    `json:"failed"`
	Failures []importFailurePayload `json:"failures"`
}

// Import は POST /api/import-employees を処理します。行単位の失敗は応答に
// 集計され、ストア障害のみエラー応答となります。
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_argument", Detail: "malformed JSON body"})
		return
	}

	result, err := h.importer.Import(r.Context(), req.TSVData)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	payload := importResultPayload{
		Created:  result.Created,
		Updated:  result.Updated,
		Failed:   result.Failed,
		Failures: make([]importFailurePayload, 0, len(result.Failures)),
	}
	for _, failure := range result.Failures {
		payload.Failures = append(payload.Failures, importFailurePayload{
			Row:       failure.Row,
			Matricule: failure.Matricule,
			Reason:    failure.Reason,
		})
	}

	writeJSON(w, http.StatusOK, payload)
}
