package bulkimport

// OutcomeKind は取り込み 1 行の結果種別です。
type OutcomeKind string

const (
	OutcomeCreated OutcomeKind = "created"
	OutcomeUpdated OutcomeKind = "updated"
	OutcomeFailed  OutcomeKind = "failed"
)

// RowFailure は失敗した行の位置と理由の組です。呼び出し側は失敗行のみ
// 修正して再投入できます。
type RowFailure struct {
	Row       int
	Matricule string
	Reason    string
}

// Result はバッチ全体の集計です。
type Result struct {
	Created  int
	Updated  int
	Failed   int
	Failures []RowFailure
}

func (r *Result) record(kind OutcomeKind) {
	switch kind {
	case OutcomeCreated:
		r.Created++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeFailed:
		r.Failed++
	}
}

func (r *Result) fail(row int, matricule string, reason string) {
	r.record(OutcomeFailed)
	r.Failures = append(r.Failures, RowFailure{Row: row, Matricule: matricule, Reason: reason})
}
