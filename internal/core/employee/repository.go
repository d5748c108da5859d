package employee

import "context"

// Repository は従業員永続化の抽象です。Delete は従業員に紐づく
// Habilitation を同一ステートメント内で連鎖削除します。
type Repository interface {
	Create(ctx context.Context, e *Employee) (*Employee, error)
	Update(ctx context.Context, e *Employee) (*Employee, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Employee, error)
	FindByMatricule(ctx context.Context, matricule string) (*Employee, error)
	List(ctx context.Context, filter ListFilter) ([]*Employee, error)
}

// ListFilter は一覧取得用フィルタです。SearchText は matricule・氏名・
// 所属名称に対する部分一致です。
type ListFilter struct {
	SearchText string
	DivisionID string
}
