package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/habilitation-registry/internal/core/hierarchy"
	pgdb "github.com/ogurasousui/habilitation-registry/internal/platform/db/postgres"
)

const (
	hierarchyUniqueViolationCode     = "23505"
	hierarchyForeignKeyViolationCode = "23503"
)

// HierarchyRepository は PostgreSQL を利用した組織階層永続化の実装です。
type HierarchyRepository struct {
	pool pgdb.Queryer
}

// NewHierarchyRepository は HierarchyRepository を生成します。
func NewHierarchyRepository(pool pgdb.Queryer) *HierarchyRepository {
	return &HierarchyRepository{pool: pool}
}

// FindDivisionByName は名称で Division を取得します。
func (r *HierarchyRepository) FindDivisionByName(ctx context.Context, name string) (*hierarchy.Division, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, name, created_at
          FROM divisions
         WHERE name = $1
         LIMIT 1
    `, name)
	return scanDivision(row)
}

// CreateDivision は Division を新規作成します。同名の行が先に挿入されて
// いた場合は ErrNameConflict を返します。ON CONFLICT DO NOTHING のため
// トランザクションは中断されず、同一トランザクション内で勝者の行を
// 再検索できます。
func (r *HierarchyRepository) CreateDivision(ctx context.Context, name string) (*hierarchy.Division, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO divisions (id, name, created_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (name) DO NOTHING
        RETURNING id, name, created_at
    `, uuid.NewString(), name, time.Now().UTC())
	return translateCreateConflict(scanDivision(row))
}

// FindServiceByName は親 Division 内の名称で Service を取得します。
func (r *HierarchyRepository) FindServiceByName(ctx context.Context, divisionID, name string) (*hierarchy.Service, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, name, division_id, created_at
          FROM services
         WHERE division_id = $1 AND name = $2
         LIMIT 1
    `, divisionID, name)
	return scanService(row)
}

// CreateService は Service を新規作成します。兄弟名の衝突時は
// ErrNameConflict を返し、トランザクションは中断されません。
func (r *HierarchyRepository) CreateService(ctx context.Context, divisionID, name string) (*hierarchy.Service, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO services (id, division_id, name, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (division_id, name) DO NOTHING
        RETURNING id, name, division_id, created_at
    `, uuid.NewString(), divisionID, name, time.Now().UTC())
	return translateCreateConflict(scanService(row))
}

// FindSectionByName は親 Service 内の名称で Section を取得します。
func (r *HierarchyRepository) FindSectionByName(ctx context.Context, serviceID, name string) (*hierarchy.Section, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, name, service_id, created_at
          FROM sections
         WHERE service_id = $1 AND name = $2
         LIMIT 1
    `, serviceID, name)
	return scanSection(row)
}

// CreateSection は Section を新規作成します。兄弟名の衝突時は
// ErrNameConflict を返し、トランザクションは中断されません。
func (r *HierarchyRepository) CreateSection(ctx context.Context, serviceID, name string) (*hierarchy.Section, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO sections (id, service_id, name, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (service_id, name) DO NOTHING
        RETURNING id, name, service_id, created_at
    `, uuid.NewString(), serviceID, name, time.Now().UTC())
	return translateCreateConflict(scanSection(row))
}

// FindEquipeByName は親 Section 内の名称で Equipe を取得します。
func (r *HierarchyRepository) FindEquipeByName(ctx context.Context, sectionID, name string) (*hierarchy.Equipe, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, name, section_id, created_at
          FROM equipes
         WHERE section_id = $1 AND name = $2
         LIMIT 1
    `, sectionID, name)
	return scanEquipe(row)
}

// CreateEquipe は Equipe を新規作成します。兄弟名の衝突時は
// ErrNameConflict を返し、トランザクションは中断されません。
func (r *HierarchyRepository) CreateEquipe(ctx context.Context, sectionID, name string) (*hierarchy.Equipe, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO equipes (id, section_id, name, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (section_id, name) DO NOTHING
        RETURNING id, name, section_id, created_at
    `, uuid.NewString(), sectionID, name, time.Now().UTC())
	return translateCreateConflict(scanEquipe(row))
}

// FindServiceByID は ID で Service を取得します。
func (r *HierarchyRepository) FindServiceByID(ctx context.Context, id string) (*hierarchy.Service, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, name, division_id, created_at
          FROM services
         WHERE id = $1
         LIMIT 1
    `, id)
	return scanService(row)
}

// FindSectionByID は ID で Section を取得します。
func (r *HierarchyRepository) FindSectionByID(ctx context.Context, id string) (*hierarchy.Section, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, name, service_id, created_at
          FROM sections
         WHERE id = $1
         LIMIT 1
    `, id)
	return scanSection(row)
}

// FindEquipeByID は ID で Equipe を取得します。
func (r *HierarchyRepository) FindEquipeByID(ctx context.Context, id string) (*hierarchy.Equipe, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, name, section_id, created_at
          FROM equipes
         WHERE id = $1
         LIMIT 1
    `, id)
	return scanEquipe(row)
}

// ListDivisions は全 Division を名称順に取得します。
func (r *HierarchyRepository) ListDivisions(ctx context.Context) ([]*hierarchy.Division, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, name, created_at
          FROM divisions
         ORDER BY name
    `)
	if err != nil {
		return nil, translateHierarchyPgError(err)
	}
	defer rows.Close()

	var divisions []*hierarchy.Division
	for rows.Next() {
		division, err := scanDivision(rows)
		if err != nil {
			return nil, err
		}
		divisions = append(divisions, division)
	}
	if err := rows.Err(); err != nil {
		return nil, translateHierarchyPgError(err)
	}
	return divisions, nil
}

// ListServices は Division 配下の Service を名称順に取得します。
func (r *HierarchyRepository) ListServices(ctx context.Context, divisionID string) ([]*hierarchy.Service, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, name, division_id, created_at
          FROM services
         WHERE division_id = $1
         ORDER BY name
    `, divisionID)
	if err != nil {
		return nil, translateHierarchyPgError(err)
	}
	defer rows.Close()

	var services []*hierarchy.Service
	for rows.Next() {
		service, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, service)
	}
	if err := rows.Err(); err != nil {
		return nil, translateHierarchyPgError(err)
	}
	return services, nil
}

// ListSections は Service 配下の Section を名称順に取得します。
func (r *HierarchyRepository) ListSections(ctx context.Context, serviceID string) ([]*hierarchy.Section, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, name, service_id, created_at
          FROM sections
         WHERE service_id = $1
         ORDER BY name
    `, serviceID)
	if err != nil {
		return nil, translateHierarchyPgError(err)
	}
	defer rows.Close()

	var sections []*hierarchy.Section
	for rows.Next() {
		section, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		sections = append(sections, section)
	}
	if err := rows.Err(); err != nil {
		return nil, translateHierarchyPgError(err)
	}
	return sections, nil
}

// ListEquipes は Section 配下の Equipe を名称順に取得します。
func (r *HierarchyRepository) ListEquipes(ctx context.Context, sectionID string) ([]*hierarchy.Equipe, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, name, section_id, created_at
          FROM equipes
         WHERE section_id = $1
         ORDER BY name
    `, sectionID)
	if err != nil {
		return nil, translateHierarchyPgError(err)
	}
	defer rows.Close()

	var equipes []*hierarchy.Equipe
	for rows.Next() {
		equipe, err := scanEquipe(rows)
		if err != nil {
			return nil, err
		}
		equipes = append(equipes, equipe)
	}
	if err := rows.Err(); err != nil {
		return nil, translateHierarchyPgError(err)
	}
	return equipes, nil
}

func scanDivision(row pgx.Row) (*hierarchy.Division, error) {
	var division hierarchy.Division
	if err := row.Scan(&division.ID, &division.Name, &division.CreatedAt); err != nil {
		return nil, translateHierarchyPgError(err)
	}
	return &division, nil
}

func scanService(row pgx.Row) (*hierarchy.Service, error) {
	var service hierarchy.Service
	if err := row.Scan(&service.ID, &service.Name, &service.DivisionID, &service.CreatedAt); err != nil {
		return nil, translateHierarchyPgError(err)
	}
	return &service, nil
}

func scanSection(row pgx.Row) (*hierarchy.Section, error) {
	var section hierarchy.Section
	if err := row.Scan(&section.ID, &section.Name, &section.ServiceID, &section.CreatedAt); err != nil {
		return nil, translateHierarchyPgError(err)
	}
	return &section, nil
}

func scanEquipe(row pgx.Row) (*hierarchy.Equipe, error) {
	var equipe hierarchy.Equipe
	if err := row.Scan(&equipe.ID, &equipe.Name, &equipe.SectionID, &equipe.CreatedAt); err != nil {
		return nil, translateHierarchyPgError(err)
	}
	return &equipe, nil
}

// translateCreateConflict は ON CONFLICT DO NOTHING 付き INSERT の結果を
// 解釈します。行が返らないのは同名の兄弟に敗北した場合だけです。
func translateCreateConflict[T any](node *T, err error) (*T, error) {
	if errors.Is(err, hierarchy.ErrNodeNotFound) {
		return nil, hierarchy.ErrNameConflict
	}
	return node, err
}

func translateHierarchyPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return hierarchy.ErrNodeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case hierarchyUniqueViolationCode:
			return hierarchy.ErrNameConflict
		case hierarchyForeignKeyViolationCode:
			return hierarchy.ErrNodeNotFound
		}
	}

	return err
}
