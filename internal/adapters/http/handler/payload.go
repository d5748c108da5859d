package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/ogurasousui/habilitation-registry/internal/core/employee"
	"github.com/ogurasousui/habilitation-registry/internal/core/habilitation"
)

const (
	isoDateLayout    = "2006-01-02"
	frenchDateLayout = "2/1/2006"
)

// parseBoundaryDate は境界で受け取る日付文字列を正規化します。
// YYYY-MM-DD と D/M/YYYY の両形式を受け付けます。
func parseBoundaryDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", habilitation.ErrInvalidDateRange)
	}
	for _, layout := range []string{isoDateLayout, frenchDateLayout} {
		if parsed, err := time.ParseInLocation(layout, trimmed, time.UTC); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable date %q", habilitation.ErrInvalidDateRange, trimmed)
}

func formatDate(t time.Time) string {
	return t.Format(isoDateLayout)
}

type habilitationPayload struct {
	ID             string   `json:"id"`
	EmployeeID     string   `json:"employeeId"`
	Family         string   `json:"family"`
	Codes          []string `json:"codes"`
	Numero         *string  `json:"numero,omitempty"`
	DateValidation string   `json:"dateValidation"`
	DateExpiration string   `json:"dateExpiration"`
	DocumentRef    *string  `json:"documentRef,omitempty"`
	Status         string   `json:"status"`
	DaysRemaining  int      `json:"daysRemaining"`
}

func toHabilitationPayload(h *habilitation.Habilitation, asOf time.Time) habilitationPayload {
	return habilitationPayload{
		ID:             h.ID,
		EmployeeID:     h.EmployeeID,
		Family:         string(h.Family),
		Codes:          h.Codes,
		Numero:         h.Numero,
		DateValidation: formatDate(h.DateValidation),
		DateExpiration: formatDate(h.DateExpiration),
		DocumentRef:    h.DocumentRef,
		Status:         string(habilitation.Classify(h, asOf)),
		DaysRemaining:  habilitation.DaysRemaining(h, asOf),
	}
}

type employeePayload struct {
	ID            string                `json:"id"`
	Matricule     string                `json:"matricule"`
	GivenName     string                `json:"givenName"`
	FamilyName    string                `json:"familyName"`
	DivisionID    string                `json:"divisionId"`
	ServiceID     string                `json:"serviceId"`
	SectionID     string                `json:"sectionId"`
	EquipeID      *string               `json:"equipeId,omitempty"`
	Habilitations []habilitationPayload `json:"habilitations"`
	Status        *string               `json:"status,omitempty"`
}

// toEmployeePayload は従業員と保持 Habilitation を合成します。全体の
// ステータスは最も遠い有効期限を持つ代表行から判定します。
func toEmployeePayload(e *employee.Employee, habilitations []*habilitation.Habilitation, asOf time.Time) employeePayload {
	payload := employeePayload{
		ID:            e.ID,
		Matricule:     e.Matricule,
		GivenName:     e.GivenName,
		FamilyName:    e.FamilyName,
		DivisionID:    e.DivisionID,
		ServiceID:     e.ServiceID,
		SectionID:     e.SectionID,
		EquipeID:      e.EquipeID,
		Habilitations: make([]habilitationPayload, 0, len(habilitations)),
	}

	for _, h := range habilitations {
		payload.Habilitations = append(payload.Habilitations, toHabilitationPayload(h, asOf))
	}

	if representative := habilitation.LatestRepresentative(habilitations); representative != nil {
		status := string(habilitation.Classify(representative, asOf))
		payload.Status = &status
	}

	return payload
}
