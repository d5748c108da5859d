package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type fakeHierarchyRepo struct {
	divisions map[string]*Division
	services  map[string]*Service
	sections  map[string]*Section
	equipes   map[string]*Equipe
	sequence  int

	// raceOnCreateDivision が真の間、CreateDivision は勝者のノードを登録した
	// うえで一意制約違反を返し、同名の同時作成を再現します。
	raceOnCreateDivision bool
}

func newFakeHierarchyRepo() *fakeHierarchyRepo {
	return &fakeHierarchyRepo{
		divisions: make(map[string]*Division),
		services:  make(map[string]*Service),
		sections:  make(map[string]*Section),
		equipes:   make(map[string]*Equipe),
	}
}

func (r *fakeHierarchyRepo) nextID(prefix string) string {
	r.sequence++
	return fmt.Sprintf("%s-%d", prefix, r.sequence)
}

func (r *fakeHierarchyRepo) FindDivisionByName(_ context.Context, name string) (*Division, error) {
	for _, d := range r.divisions {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, ErrNodeNotFound
}

func (r *fakeHierarchyRepo) CreateDivision(ctx context.Context, name string) (*Division, error) {
	if _, err := r.FindDivisionByName(ctx, name); err == nil {
		return nil, ErrNameConflict
	}
	d := &Division{ID: r.nextID("div"), Name: name}
	r.divisions[d.ID] = d
	if r.raceOnCreateDivision {
		r.raceOnCreateDivision = false
		return nil, ErrNameConflict
	}
	return d, nil
}

func (r *fakeHierarchyRepo) FindServiceByName(_ context.Context, divisionID, name string) (*Service, error) {
	for _, s := range r.services {
		if s.DivisionID == divisionID && s.Name == name {
			return s, nil
		}
	}
	return nil, ErrNodeNotFound
}

func (r *fakeHierarchyRepo) CreateService(ctx context.Context, divisionID, name string) (*Service, error) {
	if _, err := r.FindServiceByName(ctx, divisionID, name); err == nil {
		return nil, ErrNameConflict
	}
	s := &Service{ID: r.nextID("svc"), Name: name, DivisionID: divisionID}
	r.services[s.ID] = s
	return s, nil
}

func (r *fakeHierarchyRepo) FindSectionByName(_ context.Context, serviceID, name string) (*Section, error) {
	for _, s := range r.sections {
		if s.ServiceID == serviceID && s.Name == name {
			return s, nil
		}
	}
	return nil, ErrNodeNotFound
}

func (r *fakeHierarchyRepo) CreateSection(ctx context.Context, serviceID, name string) (*Section, error) {
	if _, err := r.FindSectionByName(ctx, serviceID, name); err == nil {
		return nil, ErrNameConflict
	}
	s := &Section{ID: r.nextID("sec"), Name: name, ServiceID: serviceID}
	r.sections[s.ID] = s
	return s, nil
}

func (r *fakeHierarchyRepo) FindEquipeByName(_ context.Context, sectionID, name string) (*Equipe, error) {
	for _, e := range r.equipes {
		if e.SectionID == sectionID && e.Name == name {
			return e, nil
		}
	}
	return nil, ErrNodeNotFound
}

func (r *fakeHierarchyRepo) CreateEquipe(ctx context.Context, sectionID, name string) (*Equipe, error) {
	if _, err := r.FindEquipeByName(ctx, sectionID, name); err == nil {
		return nil, ErrNameConflict
	}
	e := &Equipe{ID: r.nextID("eq"), Name: name, SectionID: sectionID}
	r.equipes[e.ID] = e
	return e, nil
}

func (r *fakeHierarchyRepo) FindServiceByID(_ context.Context, id string) (*Service, error) {
	if s, ok := r.services[id]; ok {
		return s, nil
	}
	return nil, ErrNodeNotFound
}

func (r *fakeHierarchyRepo) FindSectionByID(_ context.Context, id string) (*Section, error) {
	if s, ok := r.sections[id]; ok {
		return s, nil
	}
	return nil, ErrNodeNotFound
}

func (r *fakeHierarchyRepo) FindEquipeByID(_ context.Context, id string) (*Equipe, error) {
	if e, ok := r.equipes[id]; ok {
		return e, nil
	}
	return nil, ErrNodeNotFound
}

func (r *fakeHierarchyRepo) ListDivisions(_ context.Context) ([]*Division, error) {
	result := make([]*Division, 0, len(r.divisions))
	for _, d := range r.divisions {
		result = append(result, d)
	}
	return result, nil
}

func (r *fakeHierarchyRepo) ListServices(_ context.Context, divisionID string) ([]*Service, error) {
	var result []*Service
	for _, s := range r.services {
		if s.DivisionID == divisionID {
			result = append(result, s)
		}
	}
	return result, nil
}

func (r *fakeHierarchyRepo) ListSections(_ context.Context, serviceID string) ([]*Section, error) {
	var result []*Section
	for _, s := range r.sections {
		if s.ServiceID == serviceID {
			result = append(result, s)
		}
	}
	return result, nil
}

func (r *fakeHierarchyRepo) ListEquipes(_ context.Context, sectionID string) ([]*Equipe, error) {
	var result []*Equipe
	for _, e := range r.equipes {
		if e.SectionID == sectionID {
			result = append(result, e)
		}
	}
	return result, nil
}

func TestResolvePath_CreatesMissingNodes(t *testing.T) {
	t.Parallel()

	repo := newFakeHierarchyRepo()
	store := NewStore(repo, nil)

	path, err := store.ResolvePath(context.Background(), PathInput{
		Division: "Division Exploitation Casa",
		Service:  "Service Maintenance Casa",
		Section:  "Section Ligne Casa",
		Equipe:   "Equipe Ligne",
	})
	if err != nil {
		t.Fatalf("ResolvePath returned error: %v", err)
	}

	if path.DivisionID == "" || path.ServiceID == "" || path.SectionID == "" {
		t.Fatalf("expected all mandatory ids resolved, got %+v", path)
	}
	if path.EquipeID == nil || *path.EquipeID == "" {
		t.Fatalf("expected equipe id resolved, got %+v", path.EquipeID)
	}
	if len(repo.divisions) != 1 || len(repo.services) != 1 || len(repo.sections) != 1 || len(repo.equipes) != 1 {
		t.Fatalf("expected one node per level, got %d/%d/%d/%d",
			len(repo.divisions), len(repo.services), len(repo.sections), len(repo.equipes))
	}
}

func TestResolvePath_ReusesExistingNodes(t *testing.T) {
	t.Parallel()

	repo := newFakeHierarchyRepo()
	store := NewStore(repo, nil)
	in := PathInput{
		Division: "Division Exploitation Casa",
		Service:  "Service Maintenance Casa",
		Section:  "Section Ligne Casa",
		Equipe:   "Equipe Ligne",
	}

	first, err := store.ResolvePath(context.Background(), in)
	if err != nil {
		t.Fatalf("first ResolvePath returned error: %v", err)
	}
	second, err := store.ResolvePath(context.Background(), in)
	if err != nil {
		t.Fatalf("second ResolvePath returned error: %v", err)
	}

	if first.DivisionID != second.DivisionID || first.ServiceID != second.ServiceID ||
		first.SectionID != second.SectionID || *first.EquipeID != *second.EquipeID {
		t.Fatalf("expected identical ids, got %+v and %+v", first, second)
	}
	if len(repo.divisions) != 1 || len(repo.services) != 1 || len(repo.sections) != 1 || len(repo.equipes) != 1 {
		t.Fatalf("expected no duplicate nodes, got %d/%d/%d/%d",
			len(repo.divisions), len(repo.services), len(repo.sections), len(repo.equipes))
	}
}

func TestResolvePath_RetriesAsLookupAfterConflict(t *testing.T) {
	t.Parallel()

	repo := newFakeHierarchyRepo()
	repo.raceOnCreateDivision = true
	store := NewStore(repo, nil)

	path, err := store.ResolvePath(context.Background(), PathInput{
		Division: "Division Exploitation Casa",
		Service:  "Service Maintenance Casa",
		Section:  "Section Ligne Casa",
	})
	if err != nil {
		t.Fatalf("ResolvePath returned error: %v", err)
	}
	if len(repo.divisions) != 1 {
		t.Fatalf("expected conflict to converge onto a single division, got %d", len(repo.divisions))
	}
	if path.EquipeID != nil {
		t.Fatalf("expected no equipe, got %v", *path.EquipeID)
	}
}

func TestResolvePath_TrimsNames(t *testing.T) {
	t.Parallel()

	repo := newFakeHierarchyRepo()
	store := NewStore(repo, nil)

	first, err := store.ResolvePath(context.Background(), PathInput{
		Division: "Division Exploitation Casa",
		Service:  "Service Maintenance Casa ",
		Section:  " Section Ligne Casa",
	})
	if err != nil {
		t.Fatalf("ResolvePath returned error: %v", err)
	}

	second, err := store.ResolvePath(context.Background(), PathInput{
		Division: " Division Exploitation Casa ",
		Service:  "Service Maintenance Casa",
		Section:  "Section Ligne Casa",
	})
	if err != nil {
		t.Fatalf("ResolvePath returned error: %v", err)
	}

	if first.SectionID != second.SectionID {
		t.Fatalf("expected trimmed names to resolve to the same node")
	}
}

func TestResolvePath_MissingMandatoryName(t *testing.T) {
	t.Parallel()

	store := NewStore(newFakeHierarchyRepo(), nil)

	cases := []struct {
		name string
		in   PathInput
		want error
	}{
		{"division", PathInput{Service: "s", Section: "x"}, ErrInvalidDivisionName},
		{"service", PathInput{Division: "d", Section: "x"}, ErrInvalidServiceName},
		{"section", PathInput{Division: "d", Service: "s"}, ErrInvalidSectionName},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := store.ResolvePath(context.Background(), tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestVerifyPath(t *testing.T) {
	t.Parallel()

	repo := newFakeHierarchyRepo()
	store := NewStore(repo, nil)
	ctx := context.Background()

	pathA, err := store.ResolvePath(ctx, PathInput{Division: "Div A", Service: "Svc A", Section: "Sec A", Equipe: "Eq A"})
	if err != nil {
		t.Fatalf("ResolvePath returned error: %v", err)
	}
	pathB, err := store.ResolvePath(ctx, PathInput{Division: "Div B", Service: "Svc B", Section: "Sec B", Equipe: "Eq B"})
	if err != nil {
		t.Fatalf("ResolvePath returned error: %v", err)
	}

	if err := store.VerifyPath(ctx, pathA.DivisionID, pathA.ServiceID, pathA.SectionID, pathA.EquipeID); err != nil {
		t.Fatalf("expected consistent path, got %v", err)
	}

	if err := store.VerifyPath(ctx, pathA.DivisionID, pathB.ServiceID, pathB.SectionID, pathB.EquipeID); !errors.Is(err, ErrInconsistentPath) {
		t.Fatalf("expected ErrInconsistentPath for mismatched division, got %v", err)
	}

	if err := store.VerifyPath(ctx, pathA.DivisionID, pathA.ServiceID, pathA.SectionID, pathB.EquipeID); !errors.Is(err, ErrInconsistentPath) {
		t.Fatalf("expected ErrInconsistentPath for foreign equipe, got %v", err)
	}

	if err := store.VerifyPath(ctx, pathA.DivisionID, pathA.ServiceID, pathA.SectionID, nil); err != nil {
		t.Fatalf("expected optional equipe to be accepted, got %v", err)
	}

	if err := store.VerifyPath(ctx, pathA.DivisionID, "missing", pathA.SectionID, nil); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound for unknown service, got %v", err)
	}
}
