package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/habilitation-registry/internal/core/employee"
	pgdb "github.com/ogurasousui/habilitation-registry/internal/platform/db/postgres"
)

const (
	employeeUniqueViolationCode     = "23505"
	employeeForeignKeyViolationCode = "23503"
)

// EmployeeRepository は PostgreSQL を利用した従業員永続化の実装です。
type EmployeeRepository struct {
	pool pgdb.Queryer
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(pool pgdb.Queryer) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

// Create は従業員を新規作成します。
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO employees (id, matricule, given_name, family_name, division_id, service_id, section_id, equipe_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, matricule, given_name, family_name, division_id, service_id, section_id, equipe_id, created_at, updated_at
    `,
		uuid.NewString(),
		e.Matricule,
		e.GivenName,
		e.FamilyName,
		e.DivisionID,
		e.ServiceID,
		e.SectionID,
		e.EquipeID,
		e.CreatedAt,
		e.UpdatedAt,
	)

	created, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return created, nil
}

// Update は従業員情報を更新します。matricule は不変のため更新対象外です。
func (r *EmployeeRepository) Update(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE employees
           SET given_name = $1,
               family_name = $2,
               division_id = $3,
               service_id = $4,
               section_id = $5,
               equipe_id = $6,
               updated_at = $7
         WHERE id = $8
        RETURNING id, matricule, given_name, family_name, division_id, service_id, section_id, equipe_id, created_at, updated_at
    `,
		e.GivenName,
		e.FamilyName,
		e.DivisionID,
		e.ServiceID,
		e.SectionID,
		e.EquipeID,
		e.UpdatedAt,
		e.ID,
	)

	updated, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return updated, nil
}

// Delete は従業員と紐づく Habilitation を単一ステートメントで削除します。
func (r *EmployeeRepository) Delete(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        WITH removed AS (
            DELETE FROM habilitations WHERE employee_id = $1
        )
        DELETE FROM employees WHERE id = $1
    `, id)
	if err != nil {
		return translateEmployeePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// FindByID は ID で従業員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, matricule, given_name, family_name, division_id, service_id, section_id, equipe_id, created_at, updated_at
          FROM employees
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

// FindByMatricule は matricule で従業員を取得します。
func (r *EmployeeRepository) FindByMatricule(ctx context.Context, matricule string) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, matricule, given_name, family_name, division_id, service_id, section_id, equipe_id, created_at, updated_at
          FROM employees
         WHERE matricule = $1
         LIMIT 1
    `, matricule)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

// List は従業員の一覧を取得します。SearchText は matricule・氏名・所属名称に
// 対する部分一致で、大文字小文字を区別しません。
func (r *EmployeeRepository) List(ctx context.Context, filter employee.ListFilter) ([]*employee.Employee, error) {
	args := make([]any, 0, 2)
	conditions := make([]string, 0, 2)

	if search := strings.TrimSpace(filter.SearchText); search != "" {
		placeholder := "$" + strconv.Itoa(len(args)+1)
		conditions = append(conditions, `(
               e.matricule ILIKE `+placeholder+`
            OR e.given_name ILIKE `+placeholder+`
            OR e.family_name ILIKE `+placeholder+`
            OR d.name ILIKE `+placeholder+`
            OR s.name ILIKE `+placeholder+`
            OR sec.name ILIKE `+placeholder+`
            OR COALESCE(eq.name, '') ILIKE `+placeholder+`
        )`)
		args = append(args, "%"+search+"%")
	}

	if divisionID := strings.TrimSpace(filter.DivisionID); divisionID != "" {
		placeholder := "$" + strconv.Itoa(len(args)+1)
		conditions = append(conditions, "e.division_id = "+placeholder)
		args = append(args, divisionID)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := `
        SELECT e.id, e.matricule, e.given_name, e.family_name, e.division_id, e.service_id, e.section_id, e.equipe_id, e.created_at, e.updated_at
          FROM employees e
          JOIN divisions d ON d.id = e.division_id
          JOIN services s ON s.id = e.service_id
          JOIN sections sec ON sec.id = e.section_id
          LEFT JOIN equipes eq ON eq.id = e.equipe_id` + whereClause + `
         ORDER BY e.matricule
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	defer rows.Close()

	var employees []*employee.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, translateEmployeePgError(err)
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, translateEmployeePgError(err)
	}
	return employees, nil
}

func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var (
		e        employee.Employee
		equipeID sql.NullString
	)
	if err := row.Scan(
		&e.ID,
		&e.Matricule,
		&e.GivenName,
		&e.FamilyName,
		&e.DivisionID,
		&e.ServiceID,
		&e.SectionID,
		&equipeID,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if equipeID.Valid {
		value := equipeID.String
		e.EquipeID = &value
	}
	return &e, nil
}

func translateEmployeePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return employee.ErrEmployeeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case employeeUniqueViolationCode:
			return employee.ErrMatriculeAlreadyExists
		case employeeForeignKeyViolationCode:
			return employee.ErrInvalidHierarchyPath
		}
	}

	return err
}
