package bulkimport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ogurasousui/habilitation-registry/internal/core/employee"
	"github.com/ogurasousui/habilitation-registry/internal/core/habilitation"
	"github.com/ogurasousui/habilitation-registry/internal/core/hierarchy"
)

type stubPathResolver struct {
	err   error
	calls int
}

func (s *stubPathResolver) ResolvePath(_ context.Context, in hierarchy.PathInput) (*hierarchy.ResolvedPath, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if strings.TrimSpace(in.Division) == "" {
		return nil, hierarchy.ErrInvalidDivisionName
	}
	path := &hierarchy.ResolvedPath{
		DivisionID: "div:" + in.Division,
		ServiceID:  "svc:" + in.Service,
		SectionID:  "sec:" + in.Section,
	}
	if strings.TrimSpace(in.Equipe) != "" {
		equipeID := "eq:" + in.Equipe
		path.EquipeID = &equipeID
	}
	return path, nil
}

type stubEmployeeUpserter struct {
	err       error
	employees map[string]*employee.Employee
	sequence  int
}

func newStubEmployeeUpserter() *stubEmployeeUpserter {
	return &stubEmployeeUpserter{employees: make(map[string]*employee.Employee)}
}

func (s *stubEmployeeUpserter) Upsert(_ context.Context, in employee.UpsertInput) (*employee.Employee, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	if existing, ok := s.employees[in.Matricule]; ok {
		existing.GivenName = in.GivenName
		existing.FamilyName = in.FamilyName
		existing.DivisionID = in.DivisionID
		existing.ServiceID = in.ServiceID
		existing.SectionID = in.SectionID
		existing.EquipeID = in.EquipeID
		return existing, false, nil
	}
	s.sequence++
	created := &employee.Employee{
		ID:         fmt.Sprintf("emp-%d", s.sequence),
		Matricule:  in.Matricule,
		GivenName:  in.GivenName,
		FamilyName: in.FamilyName,
		DivisionID: in.DivisionID,
		ServiceID:  in.ServiceID,
		SectionID:  in.SectionID,
		EquipeID:   in.EquipeID,
	}
	s.employees[in.Matricule] = created
	return created, true, nil
}

type habilitationKey struct {
	employeeID string
	family     habilitation.Family
}

type stubHabilitationWriter struct {
	err          error
	failEmployee string
	rows         map[habilitationKey]*habilitation.Habilitation
	creates      int
}

func newStubHabilitationWriter() *stubHabilitationWriter {
	return &stubHabilitationWriter{rows: make(map[habilitationKey]*habilitation.Habilitation)}
}

func (s *stubHabilitationWriter) Create(_ context.Context, in habilitation.CreateInput) (*habilitation.Habilitation, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.failEmployee != "" && in.EmployeeID == s.failEmployee {
		return nil, habilitation.ErrFamilyAlreadyHeld
	}
	if !in.DateExpiration.After(in.DateValidation) {
		return nil, habilitation.ErrInvalidDateRange
	}
	s.creates++
	key := habilitationKey{employeeID: in.EmployeeID, family: in.Family}
	row, ok := s.rows[key]
	if !ok {
		row = &habilitation.Habilitation{
			ID:         fmt.Sprintf("hab-%d", len(s.rows)+1),
			EmployeeID: in.EmployeeID,
			Family:     in.Family,
		}
		s.rows[key] = row
	}
	row.Codes = append([]string(nil), in.Codes...)
	row.Numero = in.Numero
	row.DateValidation = in.DateValidation
	row.DateExpiration = in.DateExpiration
	return row, nil
}

func newTestReconciler() (*Reconciler, *stubPathResolver, *stubEmployeeUpserter, *stubHabilitationWriter) {
	paths := &stubPathResolver{}
	employees := newStubEmployeeUpserter()
	habilitations := newStubHabilitationWriter()
	return NewReconciler(paths, employees, habilitations, nil), paths, employees, habilitations
}

func TestImport_CreatesEmployeeAndHabilitations(t *testing.T) {
	t.Parallel()

	reconciler, _, employees, habilitations := newTestReconciler()
	payload := payloadOf(headerCells(), recordCells(nil))

	result, err := reconciler.Import(context.Background(), payload)
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}

	if result.Created != 1 || result.Updated != 0 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	emp, ok := employees.employees["82307"]
	if !ok {
		t.Fatal("expected employee to be upserted")
	}
	if emp.DivisionID != "div:EXPLOITATION" {
		t.Fatalf("unexpected division: %s", emp.DivisionID)
	}
	if emp.EquipeID == nil || *emp.EquipeID != "eq:EQUIPE 1" {
		t.Fatalf("unexpected equipe: %+v", emp.EquipeID)
	}

	if len(habilitations.rows) != 2 {
		t.Fatalf("expected one habilitation per family, got %d", len(habilitations.rows))
	}

	ht := habilitations.rows[habilitationKey{employeeID: emp.ID, family: habilitation.FamilyHT}]
	if ht == nil || len(ht.Codes) != 1 || ht.Codes[0] != "H1V" {
		t.Fatalf("unexpected HT habilitation: %+v", ht)
	}
	st := habilitations.rows[habilitationKey{employeeID: emp.ID, family: habilitation.FamilyST}]
	if st == nil || len(st.Codes) != 2 {
		t.Fatalf("unexpected ST habilitation: %+v", st)
	}
	if st.Numero == nil || *st.Numero != "300_03/22" {
		t.Fatalf("unexpected numero: %+v", st.Numero)
	}
}

func TestImport_SkipsEmptyFamilies(t *testing.T) {
	t.Parallel()

	reconciler, _, _, habilitations := newTestReconciler()
	record := recordCells(map[int]string{colCodeH1N: "", colCodeH1T: ""})
	payload := payloadOf(headerCells(), record)

	result, err := reconciler.Import(context.Background(), payload)
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(habilitations.rows) != 1 {
		t.Fatalf("expected only the HT row, got %d", len(habilitations.rows))
	}
}

func TestImport_ReimportConvergesToUpdated(t *testing.T) {
	t.Parallel()

	reconciler, _, employees, habilitations := newTestReconciler()
	payload := payloadOf(
		headerCells(),
		recordCells(nil),
		recordCells(map[int]string{colMatricule: "79276", colFamilyName: "AZIZ", colGivenName: "KAMAL"}),
	)
	ctx := context.Background()

	first, err := reconciler.Import(ctx, payload)
	if err != nil {
		t.Fatalf("first Import returned error: %v", err)
	}
	if first.Created != 2 || first.Updated != 0 {
		t.Fatalf("unexpected first result: %+v", first)
	}

	second, err := reconciler.Import(ctx, payload)
	if err != nil {
		t.Fatalf("second Import returned error: %v", err)
	}
	if second.Created != 0 || second.Updated != 2 || second.Failed != 0 {
		t.Fatalf("unexpected second result: %+v", second)
	}

	if len(employees.employees) != 2 {
		t.Fatalf("expected no duplicate employees, got %d", len(employees.employees))
	}
	if len(habilitations.rows) != 4 {
		t.Fatalf("expected stable habilitation rows, got %d", len(habilitations.rows))
	}
}

func TestImport_RecordsRowFailuresAndContinues(t *testing.T) {
	t.Parallel()

	reconciler, _, employees, _ := newTestReconciler()
	payload := payloadOf(
		headerCells(),
		recordCells(nil),
		recordCells(map[int]string{colMatricule: "79276", colDateValidation: "BAD"}),
		recordCells(map[int]string{colMatricule: "85024", colFamilyName: "BALHADDAD"}),
	)

	result, err := reconciler.Import(context.Background(), payload)
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}

	if result.Created != 2 || result.Failed != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("expected one recorded failure, got %d", len(result.Failures))
	}
	failure := result.Failures[0]
	if failure.Row != 2 || failure.Matricule != "79276" {
		t.Fatalf("unexpected failure location: %+v", failure)
	}
	if !strings.Contains(failure.Reason, "date_validation") {
		t.Fatalf("expected field hint in reason, got %q", failure.Reason)
	}

	if _, ok := employees.employees["79276"]; ok {
		t.Fatal("failed row must not be applied")
	}
}

// 並行書き込みに敗北した行だけが失敗し、残りの行は取り込まれます。
func TestImport_LostWriteRaceStaysOnRow(t *testing.T) {
	t.Parallel()

	reconciler, _, _, habilitations := newTestReconciler()
	habilitations.failEmployee = "emp-2"
	payload := payloadOf(
		headerCells(),
		recordCells(nil),
		recordCells(map[int]string{colMatricule: "79276", colFamilyName: "AZIZ"}),
	)

	result, err := reconciler.Import(context.Background(), payload)
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if result.Created != 1 || result.Failed != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	failure := result.Failures[0]
	if failure.Row != 2 || failure.Matricule != "79276" {
		t.Fatalf("unexpected failure location: %+v", failure)
	}
}

func TestImport_RowValidationStaysOnRow(t *testing.T) {
	t.Parallel()

	reconciler, _, _, _ := newTestReconciler()
	payload := payloadOf(
		headerCells(),
		recordCells(map[int]string{colDivision: " "}),
		recordCells(map[int]string{colMatricule: "79276", colFamilyName: "AZIZ"}),
	)

	result, err := reconciler.Import(context.Background(), payload)
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if result.Created != 1 || result.Failed != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Failures[0].Row != 1 {
		t.Fatalf("unexpected failure row: %+v", result.Failures[0])
	}
}

func TestImport_AbortsOnStoreFailure(t *testing.T) {
	t.Parallel()

	reconciler, _, employees, _ := newTestReconciler()
	employees.err = errors.New("connection reset")
	payload := payloadOf(headerCells(), recordCells(nil))

	if _, err := reconciler.Import(context.Background(), payload); err == nil {
		t.Fatal("expected batch abort on store failure")
	}
}

func TestImport_EmptyPayload(t *testing.T) {
	t.Parallel()

	reconciler, _, _, _ := newTestReconciler()

	if _, err := reconciler.Import(context.Background(), ""); !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("expected ErrEmptyPayload, got %v", err)
	}
}
