package hierarchy

import (
	"context"
	"errors"
	"strings"
)

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

// Store は組織階層に関するユースケースをまとめます。
type Store struct {
	repo Repository
	tx   TransactionManager
}

// UseCase は組織階層ユースケースの公開インターフェースです。
type UseCase interface {
	ResolvePath(ctx context.Context, in PathInput) (*ResolvedPath, error)
	VerifyPath(ctx context.Context, divisionID, serviceID, sectionID string, equipeID *string) error
	ListDivisions(ctx context.Context) ([]*Division, error)
	ListServices(ctx context.Context, divisionID string) ([]*Service, error)
	ListSections(ctx context.Context, serviceID string) ([]*Section, error)
	ListEquipes(ctx context.Context, sectionID string) ([]*Equipe, error)
}

// NewStore は Store を生成します。
func NewStore(repo Repository, tx TransactionManager) *Store {
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Store{repo: repo, tx: tx}
}

// PathInput は解決対象の階層パス名です。Equipe のみ空を許容します。
type PathInput struct {
	Division string
	Service  string
	Section  string
	Equipe   string
}

// ResolvePath は名称で指定された階層パスを解決し、存在しないノードは作成します。
// 名称比較は前後空白を除去した完全一致で、同名ノードの同時作成は一意制約違反を
// 再検索に読み替えることで単一ノードへ収束させます。
func (s *Store) ResolvePath(ctx context.Context, in PathInput) (*ResolvedPath, error) {
	division := strings.TrimSpace(in.Division)
	if division == "" {
		return nil, ErrInvalidDivisionName
	}
	service := strings.TrimSpace(in.Service)
	if service == "" {
		return nil, ErrInvalidServiceName
	}
	section := strings.TrimSpace(in.Section)
	if section == "" {
		return nil, ErrInvalidSectionName
	}
	equipe := strings.TrimSpace(in.Equipe)

	var resolved *ResolvedPath
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		divisionID, err := resolveNode(txCtx, division,
			func(ctx context.Context) (string, error) {
				d, err := s.repo.FindDivisionByName(ctx, division)
				if err != nil {
					return "", err
				}
				return d.ID, nil
			},
			func(ctx context.Context) (string, error) {
				d, err := s.repo.CreateDivision(ctx, division)
				if err != nil {
					return "", err
				}
				return d.ID, nil
			},
		)
		if err != nil {
			return err
		}

		serviceID, err := resolveNode(txCtx, service,
			func(ctx context.Context) (string, error) {
				sv, err := s.repo.FindServiceByName(ctx, divisionID, service)
				if err != nil {
					return "", err
				}
				return sv.ID, nil
			},
			func(ctx context.Context) (string, error) {
				sv, err := s.repo.CreateService(ctx, divisionID, service)
				if err != nil {
					return "", err
				}
				return sv.ID, nil
			},
		)
		if err != nil {
			return err
		}

		sectionID, err := resolveNode(txCtx, section,
			func(ctx context.Context) (string, error) {
				sc, err := s.repo.FindSectionByName(ctx, serviceID, section)
				if err != nil {
					return "", err
				}
				return sc.ID, nil
			},
			func(ctx context.Context) (string, error) {
				sc, err := s.repo.CreateSection(ctx, serviceID, section)
				if err != nil {
					return "", err
				}
				return sc.ID, nil
			},
		)
		if err != nil {
			return err
		}

		path := &ResolvedPath{DivisionID: divisionID, ServiceID: serviceID, SectionID: sectionID}

		if equipe != "" {
			equipeID, err := resolveNode(txCtx, equipe,
				func(ctx context.Context) (string, error) {
					eq, err := s.repo.FindEquipeByName(ctx, sectionID, equipe)
					if err != nil {
						return "", err
					}
					return eq.ID, nil
				},
				func(ctx context.Context) (string, error) {
					eq, err := s.repo.CreateEquipe(ctx, sectionID, equipe)
					if err != nil {
						return "", err
					}
					return eq.ID, nil
				},
			)
			if err != nil {
				return err
			}
			path.EquipeID = &equipeID
		}

		resolved = path
		return nil
	}); err != nil {
		return nil, err
	}

	return resolved, nil
}

// resolveNode は検索優先の compare-and-insert を行います。作成が一意制約に
// 敗れた場合は勝者のノードを再検索して返します。
func resolveNode(
	ctx context.Context,
	name string,
	find func(context.Context) (string, error),
	create func(context.Context) (string, error),
) (string, error) {
	id, err := find(ctx)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNodeNotFound) {
		return "", err
	}

	id, err = create(ctx)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNameConflict) {
		return "", err
	}

	return find(ctx)
}

// VerifyPath は 4 つの参照が親子関係として整合しているかを検証します。
// 不整合の場合は ErrInconsistentPath を返し、参照先が存在しない場合は
// ErrNodeNotFound をそのまま伝播します。
func (s *Store) VerifyPath(ctx context.Context, divisionID, serviceID, sectionID string, equipeID *string) error {
	return s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		service, err := s.repo.FindServiceByID(txCtx, serviceID)
		if err != nil {
			return err
		}
		if service.DivisionID != divisionID {
			return ErrInconsistentPath
		}

		section, err := s.repo.FindSectionByID(txCtx, sectionID)
		if err != nil {
			return err
		}
		if section.ServiceID != serviceID {
			return ErrInconsistentPath
		}

		if equipeID == nil {
			return nil
		}

		equipe, err := s.repo.FindEquipeByID(txCtx, *equipeID)
		if err != nil {
			return err
		}
		if equipe.SectionID != sectionID {
			return ErrInconsistentPath
		}
		return nil
	})
}

// ListDivisions は Division の一覧を名称順で取得します。
func (s *Store) ListDivisions(ctx context.Context) ([]*Division, error) {
	var divisions []*Division
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.ListDivisions(txCtx)
		if err != nil {
			return err
		}
		divisions = result
		return nil
	}); err != nil {
		return nil, err
	}
	return divisions, nil
}

// ListServices は指定 Division 配下の Service 一覧を取得します。
func (s *Store) ListServices(ctx context.Context, divisionID string) ([]*Service, error) {
	var services []*Service
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.ListServices(txCtx, divisionID)
		if err != nil {
			return err
		}
		services = result
		return nil
	}); err != nil {
		return nil, err
	}
	return services, nil
}

// ListSections は指定 Service 配下の Section 一覧を取得します。
func (s *Store) ListSections(ctx context.Context, serviceID string) ([]*Section, error) {
	var sections []*Section
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.ListSections(txCtx, serviceID)
		if err != nil {
			return err
		}
		sections = result
		return nil
	}); err != nil {
		return nil, err
	}
	return sections, nil
}

// ListEquipes は指定 Section 配下の Equipe 一覧を取得します。
func (s *Store) ListEquipes(ctx context.Context, sectionID string) ([]*Equipe, error) {
	var equipes []*Equipe
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.ListEquipes(txCtx, sectionID)
		if err != nil {
			return err
		}
		equipes = result
		return nil
	}); err != nil {
		return nil, err
	}
	return equipes, nil
}
