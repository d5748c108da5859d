package habilitation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
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

// Ledger は Habilitation のライフサイクルに関するユースケースをまとめます。
type Ledger struct {
	repo  Repository
	clock Clock
	tx    TransactionManager
}

// UseCase は Habilitation ユースケースの公開インターフェースです。
type UseCase interface {
	Create(ctx context.Context, in CreateInput) (*Habilitation, error)
	Renew(ctx context.Context, in RenewInput) (*Habilitation, error)
	Delete(ctx context.Context, id string) error
	ListByEmployee(ctx context.Context, employeeID string) ([]*Habilitation, error)
	ListByEmployeeIDs(ctx context.Context, employeeIDs []string) (map[string][]*Habilitation, error)
	ListExpired(ctx context.Context, asOf time.Time) ([]*ExpiredEntry, error)
}

// NewLedger は Ledger を生成します。
func NewLedger(repo Repository, clock Clock, tx TransactionManager) *Ledger {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Ledger{repo: repo, clock: clock, tx: tx}
}

// CreateInput は Habilitation 作成時の入力です。有効期限は規制上の期間が
// コード構成で異なるため内部では導出せず、呼び出し側が必ず指定します。
type CreateInput struct {
	EmployeeID     string
	Family         Family
	Codes          []string
	Numero         *string
	DateValidation time.Time
	DateExpiration time.Time
	DocumentRef    *string
}

// RenewInput は更新(リニューアル)時の入力です。区分は更新をまたいで不変です。
type RenewInput struct {
	ID             string
	Codes          []string
	Numero         *string
	DateValidation time.Time
	DateExpiration time.Time
	DocumentRef    *string
}

// Create は Habilitation を作成します。同一従業員・同一区分の行が既に
// 存在する場合、それは論理的な更新であり既存行を上書きします。
// 旧バージョンは保持しません。
func (l *Ledger) Create(ctx context.Context, in CreateInput) (*Habilitation, error) {
	employeeID := strings.TrimSpace(in.EmployeeID)
	if employeeID == "" {
		return nil, ErrInvalidEmployeeID
	}
	if !IsValidFamily(in.Family) {
		return nil, ErrInvalidFamily
	}

	codes, err := normalizeCodes(in.Family, in.Codes)
	if err != nil {
		return nil, err
	}

	validation, expiration, err := normalizeWindow(in.DateValidation, in.DateExpiration)
	if err != nil {
		return nil, err
	}

	var result *Habilitation
	if err := l.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := l.repo.FindByEmployeeAndFamily(txCtx, employeeID, in.Family)
		if err != nil && !errors.Is(err, ErrHabilitationNotFound) {
			return err
		}

		now := l.clock.Now()
		if existing == nil {
			created, err := l.repo.Create(txCtx, &Habilitation{
				EmployeeID:     employeeID,
				Family:         in.Family,
				Codes:          codes,
				Numero:         clonePtr(in.Numero),
				DateValidation: validation,
				DateExpiration: expiration,
				DocumentRef:    clonePtr(in.DocumentRef),
				CreatedAt:      now,
				UpdatedAt:      now,
			})
			if err != nil {
				return err
			}
			result = created
			return nil
		}

		existing.Codes = codes
		existing.Numero = clonePtr(in.Numero)
		existing.DateValidation = validation
		existing.DateExpiration = expiration
		if in.DocumentRef != nil {
			existing.DocumentRef = clonePtr(in.DocumentRef)
		}
		existing.UpdatedAt = now

		updated, err := l.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}
		result = updated
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// Renew は既存行の有効期間とコード集合を上書きします。ID と従業員参照、
// 区分は維持されます。有効期限が判定できない呼び出しは拒否します。
func (l *Ledger) Renew(ctx context.Context, in RenewInput) (*Habilitation, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var result *Habilitation
	if err := l.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := l.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}

		codes, err := normalizeCodes(existing.Family, in.Codes)
		if err != nil {
			return err
		}

		validation, expiration, err := normalizeWindow(in.DateValidation, in.DateExpiration)
		if err != nil {
			return err
		}

		existing.Codes = codes
		if in.Numero != nil {
			existing.Numero = clonePtr(in.Numero)
		}
		if in.DocumentRef != nil {
			existing.DocumentRef = clonePtr(in.DocumentRef)
		}
		existing.DateValidation = validation
		existing.DateExpiration = expiration
		existing.UpdatedAt = l.clock.Now()

		updated, err := l.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}
		result = updated
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// Delete は Habilitation を削除します。
func (l *Ledger) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}

	return l.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return l.repo.Delete(txCtx, id)
	})
}

// ListByEmployee は従業員が保持する Habilitation の一覧を取得します。
func (l *Ledger) ListByEmployee(ctx context.Context, employeeID string) ([]*Habilitation, error) {
	if strings.TrimSpace(employeeID) == "" {
		return nil, ErrInvalidEmployeeID
	}

	var result []*Habilitation
	if err := l.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := l.repo.ListByEmployee(txCtx, employeeID)
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

// ListByEmployeeIDs は複数従業員の Habilitation を従業員 ID ごとにまとめて
// 取得します。一覧画面での合成に使います。
func (l *Ledger) ListByEmployeeIDs(ctx context.Context, employeeIDs []string) (map[string][]*Habilitation, error) {
	if len(employeeIDs) == 0 {
		return map[string][]*Habilitation{}, nil
	}

	var result map[string][]*Habilitation
	if err := l.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := l.repo.ListByEmployeeIDs(txCtx, employeeIDs)
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

// ListExpired は asOf 時点で失効している Habilitation を保持者の識別情報と
// 併せて取得します。asOf がゼロ値なら現在時刻を使います。
func (l *Ledger) ListExpired(ctx context.Context, asOf time.Time) ([]*ExpiredEntry, error) {
	if asOf.IsZero() {
		asOf = l.clock.Now()
	}

	var result []*ExpiredEntry
	if err := l.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := l.repo.ListExpired(txCtx, asOf)
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

// normalizeCodes は語彙検証と重複除去を行い、語彙の宣言順に整列した
// コード集合を返します。
func normalizeCodes(family Family, codes []string) ([]string, error) {
	present := make(map[string]bool, len(codes))
	for _, raw := range codes {
		code := strings.TrimSpace(raw)
		if code == "" {
			continue
		}
		if !containsCode(Vocabulary(family), code) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCode, code)
		}
		present[code] = true
	}

	if len(present) == 0 {
		return nil, ErrEmptyCodeSet
	}

	normalized := make([]string, 0, len(present))
	for _, code := range Vocabulary(family) {
		if present[code] {
			normalized = append(normalized, code)
		}
	}
	return normalized, nil
}

func normalizeWindow(validation, expiration time.Time) (time.Time, time.Time, error) {
	v := truncateToDate(validation)
	e := truncateToDate(expiration)
	if validation.IsZero() || expiration.IsZero() || !e.After(v) {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	return v, e, nil
}

func containsCode(vocabulary []string, code string) bool {
	for _, candidate := range vocabulary {
		if candidate == code {
			return true
		}
	}
	return false
}

func clonePtr(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
