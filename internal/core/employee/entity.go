package employee

import "time"

// Employee は従業員エンティティです。Matricule が不変の自然キーとなります。
type Employee struct {
	ID         string
	Matricule  string
	GivenName  string
	FamilyName string
	DivisionID string
	ServiceID  string
	SectionID  string
	EquipeID   *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SortKey は一覧の並び替えキーです。
type SortKey string

const (
	SortByMatricule SortKey = "matricule"
	SortByName      SortKey = "nom"
)
