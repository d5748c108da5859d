package bulkimport

import (
	"context"
	"errors"
	"fmt"

	"github.com/ogurasousui/habilitation-registry/internal/core/employee"
	"github.com/ogurasousui/habilitation-registry/internal/core/habilitation"
	"github.com/ogurasousui/habilitation-registry/internal/core/hierarchy"
)

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// PathResolver は階層パスの resolve-or-create の抽象です。
type PathResolver interface {
	ResolvePath(ctx context.Context, in hierarchy.PathInput) (*hierarchy.ResolvedPath, error)
}

// EmployeeUpserter は matricule による従業員 upsert の抽象です。
type EmployeeUpserter interface {
	Upsert(ctx context.Context, in employee.UpsertInput) (*employee.Employee, bool, error)
}

// HabilitationWriter は Habilitation の作成・上書きの抽象です。
type HabilitationWriter interface {
	Create(ctx context.Context, in habilitation.CreateInput) (*habilitation.Habilitation, error)
}

// Reconciler は表形式ペイロードを階層・従業員・Habilitation へ冪等に
// 取り込みます。
type Reconciler struct {
	paths         PathResolver
	employees     EmployeeUpserter
	habilitations HabilitationWriter
	tx            TransactionManager
}

// UseCase は取り込みユースケースの公開インターフェースです。
type UseCase interface {
	Import(ctx context.Context, payload string) (*Result, error)
}

// NewReconciler は Reconciler を生成します。
func NewReconciler(paths PathResolver, employees EmployeeUpserter, habilitations HabilitationWriter, tx TransactionManager) *Reconciler {
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Reconciler{paths: paths, employees: employees, habilitations: habilitations, tx: tx}
}

// Import はペイロードを行単位で取り込みます。行は互いに独立で、検証に
// 失敗した行は記録して処理を続行します。ストア障害のみバッチ全体を中断
// します。同一ペイロードの再投入は新規行を作らず Updated に収束します。
func (r *Reconciler) Import(ctx context.Context, payload string) (*Result, error) {
	records, err := SplitRecords(payload)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, raw := range records {
		row, err := ParseRow(raw)
		if err != nil {
			result.fail(raw.Index, matriculeHint(raw), err.Error())
			continue
		}

		kind, err := r.importRow(ctx, row)
		if err != nil {
			if !isRowError(err) {
				return nil, fmt.Errorf("bulkimport: row %d: %w", row.Index, err)
			}
			result.fail(row.Index, row.Matricule, err.Error())
			continue
		}
		result.record(kind)
	}

	return result, nil
}

// importRow は 1 行分の書き込みを単一トランザクションで適用します。
// 階層の途中まで作成された状態は外部から観測されません。
func (r *Reconciler) importRow(ctx context.Context, row *Row) (OutcomeKind, error) {
	kind := OutcomeUpdated
	err := r.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		path, err := r.paths.ResolvePath(txCtx, hierarchy.PathInput{
			Division: row.Division,
			Service:  row.Service,
			Section:  row.Section,
			Equipe:   row.Equipe,
		})
		if err != nil {
			return err
		}

		emp, created, err := r.employees.Upsert(txCtx, employee.UpsertInput{
			Matricule:  row.Matricule,
			GivenName:  row.GivenName,
			FamilyName: row.FamilyName,
			DivisionID: path.DivisionID,
			ServiceID:  path.ServiceID,
			SectionID:  path.SectionID,
			EquipeID:   path.EquipeID,
		})
		if err != nil {
			return err
		}
		if created {
			kind = OutcomeCreated
		}

		for _, family := range []habilitation.Family{habilitation.FamilyHT, habilitation.FamilyST} {
			codes := row.CodesByFamily[family]
			if len(codes) == 0 {
				continue
			}

			var numero *string
			if row.Numero != "" {
				numero = &row.Numero
			}

			if _, err := r.habilitations.Create(txCtx, habilitation.CreateInput{
				EmployeeID:     emp.ID,
				Family:         family,
				Codes:          codes,
				Numero:         numero,
				DateValidation: row.DateValidation,
				DateExpiration: row.DateExpiration,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return OutcomeFailed, err
	}
	return kind, nil
}

// rowErrors は行単位に留めるエラーの一覧です。検証エラーと並行書き込みの
// 敗北が該当し、ここに含まれない失敗は永続層自体の異常とみなしバッチを
// 中断します。
var rowErrors = []error{
	ErrMissingMatricule,
	ErrTruncatedRow,
	ErrMalformedDate,
	hierarchy.ErrInvalidDivisionName,
	hierarchy.ErrInvalidServiceName,
	hierarchy.ErrInvalidSectionName,
	hierarchy.ErrInconsistentPath,
	employee.ErrInvalidMatricule,
	employee.ErrInvalidGivenName,
	employee.ErrInvalidFamilyName,
	employee.ErrInvalidHierarchyPath,
	habilitation.ErrInvalidFamily,
	habilitation.ErrInvalidCode,
	habilitation.ErrEmptyCodeSet,
	habilitation.ErrInvalidDateRange,
	habilitation.ErrEmployeeNotFound,
	habilitation.ErrFamilyAlreadyHeld,
}

func isRowError(err error) bool {
	for _, candidate := range rowErrors {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

func matriculeHint(raw RawRow) string {
	if len(raw.Cells) == 0 {
		return ""
	}
	return raw.Cells[colMatricule]
}
