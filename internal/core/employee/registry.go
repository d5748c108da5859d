package employee

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// PathVerifier は階層パスの整合性検証の抽象です。hierarchy.Store が実装します。
type PathVerifier interface {
	VerifyPath(ctx context.Context, divisionID, serviceID, sectionID string, equipeID *string) error
}

// Registry は従業員に関するユースケースをまとめます。
type Registry struct {
	repo  Repository
	paths PathVerifier
	clock Clock
	tx    TransactionManager
}

// UseCase は従業員ユースケースの公開インターフェースです。
type UseCase interface {
	Upsert(ctx context.Context, in UpsertInput) (*Employee, bool, error)
	Get(ctx context.Context, id string) (*Employee, error)
	List(ctx context.Context, in ListInput) ([]*Employee, error)
	Delete(ctx context.Context, id string) error
}

// NewRegistry は Registry を生成します。
func NewRegistry(repo Repository, paths PathVerifier, clock Clock, tx TransactionManager) *Registry {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Registry{repo: repo, paths: paths, clock: clock, tx: tx}
}

// UpsertInput は matricule を自然キーとした作成・更新の入力です。
type UpsertInput struct {
	Matricule  string
	GivenName  string
	FamilyName string
	DivisionID string
	ServiceID  string
	SectionID  string
	EquipeID   *string
}

// ListInput は一覧取得時の入力です。
type ListInput struct {
	SearchText string
	DivisionID string
	SortBy     SortKey
}

// Upsert は matricule で従業員を検索し、存在しなければ作成、存在すれば
// 氏名と所属を上書きします。戻り値の bool は新規作成されたかを示します。
// 部署異動は所属参照の付け替えとして表現され、履歴は保持しません。
func (r *Registry) Upsert(ctx context.Context, in UpsertInput) (*Employee, bool, error) {
	matricule := strings.TrimSpace(in.Matricule)
	if matricule == "" {
		return nil, false, ErrInvalidMatricule
	}
	givenName := strings.TrimSpace(in.GivenName)
	if givenName == "" {
		return nil, false, ErrInvalidGivenName
	}
	familyName := strings.TrimSpace(in.FamilyName)
	if familyName == "" {
		return nil, false, ErrInvalidFamilyName
	}

	var (
		result  *Employee
		created bool
	)
	if err := r.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := r.verifyPath(txCtx, in); err != nil {
			return err
		}

		existing, err := r.repo.FindByMatricule(txCtx, matricule)
		if err != nil && !isNotFound(err) {
			return err
		}

		now := r.clock.Now()
		if existing == nil {
			emp := &Employee{
				Matricule:  matricule,
				GivenName:  givenName,
				FamilyName: familyName,
				DivisionID: in.DivisionID,
				ServiceID:  in.ServiceID,
				SectionID:  in.SectionID,
				EquipeID:   clonePtr(in.EquipeID),
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			inserted, err := r.repo.Create(txCtx, emp)
			if err != nil {
				return err
			}
			result = inserted
			created = true
			return nil
		}

		existing.GivenName = givenName
		existing.FamilyName = familyName
		existing.DivisionID = in.DivisionID
		existing.ServiceID = in.ServiceID
		existing.SectionID = in.SectionID
		existing.EquipeID = clonePtr(in.EquipeID)
		existing.UpdatedAt = now

		updated, err := r.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}
		result = updated
		return nil
	}); err != nil {
		return nil, false, err
	}

	return result, created, nil
}

// Get は従業員を取得します。
func (r *Registry) Get(ctx context.Context, id string) (*Employee, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var result *Employee
	if err := r.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := r.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// List は従業員の一覧を取得し、指定キーの昇順でロケール順に並べます。
func (r *Registry) List(ctx context.Context, in ListInput) ([]*Employee, error) {
	sortBy := in.SortBy
	if sortBy == "" {
		sortBy = SortByMatricule
	}
	if sortBy != SortByMatricule && sortBy != SortByName {
		return nil, ErrInvalidSortKey
	}

	var employees []*Employee
	if err := r.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := r.repo.List(txCtx, ListFilter{
			SearchText: strings.TrimSpace(in.SearchText),
			DivisionID: strings.TrimSpace(in.DivisionID),
		})
		if err != nil {
			return err
		}
		employees = result
		return nil
	}); err != nil {
		return nil, err
	}

	sortEmployees(employees, sortBy)
	return employees, nil
}

// Delete は従業員とその Habilitation を原子的に削除します。
func (r *Registry) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}

	return r.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return r.repo.Delete(txCtx, id)
	})
}

func (r *Registry) verifyPath(ctx context.Context, in UpsertInput) error {
	if r.paths == nil {
		return nil
	}
	if err := r.paths.VerifyPath(ctx, in.DivisionID, in.ServiceID, in.SectionID, in.EquipeID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidHierarchyPath, err)
	}
	return nil
}

// sortEmployees はフランス語照合順序で並べ替えます。氏名キーは姓を
// 優先し、同姓のときだけ名で比較します。
func sortEmployees(employees []*Employee, key SortKey) {
	collator := collate.New(language.French, collate.IgnoreCase)
	sort.SliceStable(employees, func(i, j int) bool {
		switch key {
		case SortByName:
			if c := collator.CompareString(employees[i].FamilyName, employees[j].FamilyName); c != 0 {
				return c < 0
			}
			return collator.CompareString(employees[i].GivenName, employees[j].GivenName) < 0
		default:
			return collator.CompareString(employees[i].Matricule, employees[j].Matricule) < 0
		}
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound)
}

func clonePtr(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
