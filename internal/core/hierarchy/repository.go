package hierarchy

import "context"

// Repository は階層ノード永続化の抽象です。
// 各 Create は兄弟間の名称一意制約に違反した場合 ErrNameConflict を返します。
type Repository interface {
	FindDivisionByName(ctx context.Context, name string) (*Division, error)
	CreateDivision(ctx context.Context, name string) (*Division, error)
	FindServiceByName(ctx context.Context, divisionID, name string) (*Service, error)
	CreateService(ctx context.Context, divisionID, name string) (*Service, error)
	FindSectionByName(ctx context.Context, serviceID, name string) (*Section, error)
	CreateSection(ctx context.Context, serviceID, name string) (*Section, error)
	FindEquipeByName(ctx context.Context, sectionID, name string) (*Equipe, error)
	CreateEquipe(ctx context.Context, sectionID, name string) (*Equipe, error)

	FindServiceByID(ctx context.Context, id string) (*Service, error)
	FindSectionByID(ctx context.Context, id string) (*Section, error)
	FindEquipeByID(ctx context.Context, id string) (*Equipe, error)

	ListDivisions(ctx context.Context) ([]*Division, error)
	ListServices(ctx context.Context, divisionID string) ([]*Service, error)
	ListSections(ctx context.Context, serviceID string) ([]*Section, error)
	ListEquipes(ctx context.Context, sectionID string) ([]*Equipe, error)
}
