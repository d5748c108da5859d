package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/habilitation-registry/internal/core/habilitation"
	pgdb "github.com/ogurasousui/habilitation-registry/internal/platform/db/postgres"
)

const (
	habilitationUniqueViolationCode     = "23505"
	habilitationForeignKeyViolationCode = "23503"
	habilitationCheckViolationCode      = "23514"
)

// HabilitationRepository は PostgreSQL を利用した Habilitation 永続化の実装です。
type HabilitationRepository struct {
	pool pgdb.Queryer
}

// NewHabilitationRepository は HabilitationRepository を生成します。
func NewHabilitationRepository(pool pgdb.Queryer) *HabilitationRepository {
	return &HabilitationRepository{pool: pool}
}

// Create は Habilitation を新規作成します。同一従業員・同一区分の行に
// 敗北した場合は ErrFamilyAlreadyHeld を返します。ON CONFLICT DO NOTHING
// のためトランザクションは中断されません。
func (r *HabilitationRepository) Create(ctx context.Context, h *habilitation.Habilitation) (*habilitation.Habilitation, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO habilitations (id, employee_id, family, codes, numero, date_validation, date_expiration, document_ref, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (employee_id, family) DO NOTHING
        RETURNING id, employee_id, family, codes, numero, date_validation, date_expiration, document_ref, created_at, updated_at
    `,
		uuid.NewString(),
		h.EmployeeID,
		string(h.Family),
		h.Codes,
		h.Numero,
		h.DateValidation,
		h.DateExpiration,
		h.DocumentRef,
		h.CreatedAt,
		h.UpdatedAt,
	)

	created, err := scanHabilitation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, habilitation.ErrFamilyAlreadyHeld
		}
		return nil, translateHabilitationPgError(err)
	}
	return created, nil
}

// Update は Habilitation を更新します。employee_id と family は不変です。
func (r *HabilitationRepository) Update(ctx context.Context, h *habilitation.Habilitation) (*habilitation.Habilitation, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE habilitations
           SET codes = $1,
               numero = $2,
               date_validation = $3,
               date_expiration = $4,
               document_ref = $5,
               updated_at = $6
         WHERE id = $7
        RETURNING id, employee_id, family, codes, numero, date_validation, date_expiration, document_ref, created_at, updated_at
    `,
		h.Codes,
		h.Numero,
		h.DateValidation,
		h.DateExpiration,
		h.DocumentRef,
		h.UpdatedAt,
		h.ID,
	)

	updated, err := scanHabilitation(row)
	if err != nil {
		return nil, translateHabilitationPgError(err)
	}
	return updated, nil
}

// Delete は Habilitation を削除します。
func (r *HabilitationRepository) Delete(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM habilitations WHERE id = $1`, id)
	if err != nil {
		return translateHabilitationPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return habilitation.ErrHabilitationNotFound
	}
	return nil
}

// FindByID は ID で Habilitation を取得します。
func (r *HabilitationRepository) FindByID(ctx context.Context, id string) (*habilitation.Habilitation, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, employee_id, family, codes, numero, date_validation, date_expiration, document_ref, created_at, updated_at
          FROM habilitations
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanHabilitation(row)
	if err != nil {
		return nil, translateHabilitationPgError(err)
	}
	return found, nil
}

// FindByEmployeeAndFamily は従業員と区分の組で Habilitation を取得します。
func (r *HabilitationRepository) FindByEmployeeAndFamily(ctx context.Context, employeeID string, family habilitation.Family) (*habilitation.Habilitation, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, employee_id, family, codes, numero, date_validation, date_expiration, document_ref, created_at, updated_at
          FROM habilitations
         WHERE employee_id = $1 AND family = $2
         LIMIT 1
    `, employeeID, string(family))

	found, err := scanHabilitation(row)
	if err != nil {
		return nil, translateHabilitationPgError(err)
	}
	return found, nil
}

// ListByEmployee は従業員の Habilitation を区分順に取得します。
func (r *HabilitationRepository) ListByEmployee(ctx context.Context, employeeID string) ([]*habilitation.Habilitation, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, employee_id, family, codes, numero, date_validation, date_expiration, document_ref, created_at, updated_at
          FROM habilitations
         WHERE employee_id = $1
         ORDER BY family
    `, employeeID)
	if err != nil {
		return nil, translateHabilitationPgError(err)
	}
	defer rows.Close()

	return collectHabilitations(rows)
}

// ListByEmployeeIDs は複数従業員の Habilitation をまとめて取得します。
func (r *HabilitationRepository) ListByEmployeeIDs(ctx context.Context, employeeIDs []string) (map[string][]*habilitation.Habilitation, error) {
	result := make(map[string][]*habilitation.Habilitation, len(employeeIDs))
	if len(employeeIDs) == 0 {
		return result, nil
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, employee_id, family, codes, numero, date_validation, date_expiration, document_ref, created_at, updated_at
          FROM habilitations
         WHERE employee_id = ANY($1)
         ORDER BY employee_id, family
    `, employeeIDs)
	if err != nil {
		return nil, translateHabilitationPgError(err)
	}
	defer rows.Close()

	habilitations, err := collectHabilitations(rows)
	if err != nil {
		return nil, err
	}
	for _, h := range habilitations {
		result[h.EmployeeID] = append(result[h.EmployeeID], h)
	}
	return result, nil
}

// ListExpired は asOf 時点で失効している Habilitation を保持者の識別情報と
// 併せて取得します。
func (r *HabilitationRepository) ListExpired(ctx context.Context, asOf time.Time) ([]*habilitation.ExpiredEntry, error) {
	cutoff := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT h.id, h.employee_id, h.family, h.codes, h.numero, h.date_validation, h.date_expiration, h.document_ref, h.created_at, h.updated_at,
               e.matricule, e.given_name, e.family_name
          FROM habilitations h
          JOIN employees e ON e.id = h.employee_id
         WHERE h.date_expiration < $1
         ORDER BY h.date_expiration, e.matricule
    `, cutoff)
	if err != nil {
		return nil, translateHabilitationPgError(err)
	}
	defer rows.Close()

	var entries []*habilitation.ExpiredEntry
	for rows.Next() {
		entry, err := scanExpiredEntry(rows)
		if err != nil {
			return nil, translateHabilitationPgError(err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, translateHabilitationPgError(err)
	}
	return entries, nil
}

func collectHabilitations(rows pgx.Rows) ([]*habilitation.Habilitation, error) {
	var habilitations []*habilitation.Habilitation
	for rows.Next() {
		h, err := scanHabilitation(rows)
		if err != nil {
			return nil, translateHabilitationPgError(err)
		}
		habilitations = append(habilitations, h)
	}
	if err := rows.Err(); err != nil {
		return nil, translateHabilitationPgError(err)
	}
	return habilitations, nil
}

func scanHabilitation(row pgx.Row) (*habilitation.Habilitation, error) {
	var (
		h           habilitation.Habilitation
		family      string
		numero      sql.NullString
		documentRef sql.NullString
	)
	if err := row.Scan(
		&h.ID,
		&h.EmployeeID,
		&family,
		&h.Codes,
		&numero,
		&h.DateValidation,
		&h.DateExpiration,
		&documentRef,
		&h.CreatedAt,
		&h.UpdatedAt,
	); err != nil {
		return nil, err
	}

	h.Family = habilitation.Family(family)
	if numero.Valid {
		value := numero.String
		h.Numero = &value
	}
	if documentRef.Valid {
		value := documentRef.String
		h.DocumentRef = &value
	}
	return &h, nil
}

func scanExpiredEntry(row pgx.Row) (*habilitation.ExpiredEntry, error) {
	var (
		h           habilitation.Habilitation
		family      string
		numero      sql.NullString
		documentRef sql.NullString
		entry       habilitation.ExpiredEntry
	)
	if err := row.Scan(
		&h.ID,
		&h.EmployeeID,
		&family,
		&h.Codes,
		&numero,
		&h.DateValidation,
		&h.DateExpiration,
		&documentRef,
		&h.CreatedAt,
		&h.UpdatedAt,
		&entry.Matricule,
		&entry.GivenName,
		&entry.FamilyName,
	); err != nil {
		return nil, err
	}

	h.Family = habilitation.Family(family)
	if numero.Valid {
		value := numero.String
		h.Numero = &value
	}
	if documentRef.Valid {
		value := documentRef.String
		h.DocumentRef = &value
	}
	entry.Habilitation = &h
	return &entry, nil
}

func translateHabilitationPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return habilitation.ErrHabilitationNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case habilitationUniqueViolationCode:
			// 通常の重複は Create の ON CONFLICT で吸収されます。
			return habilitation.ErrFamilyAlreadyHeld
		case habilitationForeignKeyViolationCode:
			return habilitation.ErrEmployeeNotFound
		case habilitationCheckViolationCode:
			return habilitation.ErrInvalidFamily
		}
	}

	return err
}
