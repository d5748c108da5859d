package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/habilitation-registry/internal/core/habilitation"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestScanHabilitation_Success(t *testing.T) {
	t.Parallel()

	validation := time.Date(2022, 10, 1, 0, 0, 0, 0, time.UTC)
	expiration := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	row := stubRow{scanFn: func(dest ...interface{}) error {
		if len(dest) != 10 {
			return errors.New("unexpected dest length")
		}
		*(dest[0].(*string)) = "hab-1"
		*(dest[1].(*string)) = "emp-1"
		*(dest[2].(*string)) = string(habilitation.FamilyHT)
		*(dest[3].(*[]string)) = []string{"H1V", "HC"}

		numeroDest := dest[4].(*sql.NullString)
		numeroDest.String = "300_03/22"
		numeroDest.Valid = true

		*(dest[5].(*time.Time)) = validation
		*(dest[6].(*time.Time)) = expiration
		*(dest[8].(*time.Time)) = now
		*(dest[9].(*time.Time)) = now
		return nil
	}}

	h, err := scanHabilitation(row)
	if err != nil {
		t.Fatalf("scanHabilitation returned error: %v", err)
	}

	if h.Family != habilitation.FamilyHT {
		t.Fatalf("unexpected family: %s", h.Family)
	}
	if len(h.Codes) != 2 || h.Codes[0] != "H1V" {
		t.Fatalf("unexpected codes: %v", h.Codes)
	}
	if h.Numero == nil || *h.Numero != "300_03/22" {
		t.Fatalf("unexpected numero: %+v", h.Numero)
	}
	if h.DocumentRef != nil {
		t.Fatalf("expected nil document ref, got %+v", h.DocumentRef)
	}
}

func TestTranslateHabilitationPgError(t *testing.T) {
	t.Parallel()

	if !errors.Is(translateHabilitationPgError(pgx.ErrNoRows), habilitation.ErrHabilitationNotFound) {
		t.Fatalf("expected no rows to map to ErrHabilitationNotFound")
	}

	uniqueErr := &pgconn.PgError{Code: habilitationUniqueViolationCode}
	if !errors.Is(translateHabilitationPgError(uniqueErr), habilitation.ErrFamilyAlreadyHeld) {
		t.Fatalf("expected unique violation to map to ErrFamilyAlreadyHeld")
	}

	fkErr := &pgconn.PgError{Code: habilitationForeignKeyViolationCode}
	if !errors.Is(translateHabilitationPgError(fkErr), habilitation.ErrEmployeeNotFound) {
		t.Fatalf("expected fk violation to map to ErrEmployeeNotFound")
	}

	checkErr := &pgconn.PgError{Code: habilitationCheckViolationCode}
	if !errors.Is(translateHabilitationPgError(checkErr), habilitation.ErrInvalidFamily) {
		t.Fatalf("expected check violation to map to ErrInvalidFamily")
	}
}

func TestHabilitationRepository_ListExpired(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewHabilitationRepository(mock)

	asOf := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	cutoff := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	query := regexp.QuoteMeta(`
        SELECT h.id, h.employee_id, h.family, h.codes, h.numero, h.date_validation, h.date_expiration, h.document_ref, h.created_at, h.updated_at,
               e.matricule, e.given_name, e.family_name
          FROM habilitations h
          JOIN employees e ON e.id = h.employee_id
         WHERE h.date_expiration < $1
         ORDER BY h.date_expiration, e.matricule
    `)

	rows := pgxmock.NewRows([]string{
		"id", "employee_id", "family", "codes", "numero", "date_validation", "date_expiration", "document_ref", "created_at", "updated_at",
		"matricule", "given_name", "family_name",
	}).AddRow(
		"hab-1", "emp-1", "HT", []string{"H1V"}, nil,
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		nil, now, now,
		"82307", "HAMZA", "ABAD",
	)

	mock.ExpectQuery(query).WithArgs(cutoff).WillReturnRows(rows)

	entries, err := repo.ListExpired(context.Background(), asOf)
	if err != nil {
		t.Fatalf("ListExpired returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Matricule != "82307" || entries[0].Habilitation.Family != habilitation.FamilyHT {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// 同一従業員・同一区分の並行挿入に敗北した INSERT は行を返さず、
// ErrFamilyAlreadyHeld として観測されます。
func TestHabilitationRepository_Create_LostRace(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewHabilitationRepository(mock)

	query := regexp.QuoteMeta(`
        INSERT INTO habilitations (id, employee_id, family, codes, numero, date_validation, date_expiration, document_ref, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (employee_id, family) DO NOTHING
        RETURNING id, employee_id, family, codes, numero, date_validation, date_expiration, document_ref, created_at, updated_at
    `)

	mock.ExpectQuery(query).
		WithArgs(
			pgxmock.AnyArg(), "emp-1", "HT", []string{"H1V"},
			(*string)(nil), pgxmock.AnyArg(), pgxmock.AnyArg(), (*string)(nil),
			pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "employee_id", "family", "codes", "numero",
			"date_validation", "date_expiration", "document_ref", "created_at", "updated_at",
		}))

	_, err = repo.Create(context.Background(), &habilitation.Habilitation{
		EmployeeID:     "emp-1",
		Family:         habilitation.FamilyHT,
		Codes:          []string{"H1V"},
		DateValidation: time.Date(2022, 10, 1, 0, 0, 0, 0, time.UTC),
		DateExpiration: time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, habilitation.ErrFamilyAlreadyHeld) {
		t.Fatalf("expected ErrFamilyAlreadyHeld, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestHabilitationRepository_FindByEmployeeAndFamily_NotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewHabilitationRepository(mock)

	query := regexp.QuoteMeta(`
        SELECT id, employee_id, family, codes, numero, date_validation, date_expiration, document_ref, created_at, updated_at
          FROM habilitations
         WHERE employee_id = $1 AND family = $2
         LIMIT 1
    `)

	mock.ExpectQuery(query).WithArgs("emp-1", "ST").WillReturnError(pgx.ErrNoRows)

	_, err = repo.FindByEmployeeAndFamily(context.Background(), "emp-1", habilitation.FamilyST)
	if !errors.Is(err, habilitation.ErrHabilitationNotFound) {
		t.Fatalf("expected ErrHabilitationNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
