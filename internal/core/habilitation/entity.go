package habilitation

import "time"

// Family は認可区分です。HT と ST は互いに素な語彙を持ちます。
type Family string

const (
	FamilyHT Family = "HT"
	FamilyST Family = "ST"
)

// 区分ごとの固定語彙。この集合外のコードは一切受理しません。
var (
	htVocabulary = []string{"H0V", "B0V", "H1V", "B1V", "H2V", "B2V", "HC", "BR", "BC"}
	stVocabulary = []string{"H1N", "H1T", "H2N", "H2T"}
)

// Vocabulary は区分の語彙を宣言順で返します。未知の区分には nil を返します。
func Vocabulary(family Family) []string {
	switch family {
	case FamilyHT:
		return htVocabulary
	case FamilyST:
		return stVocabulary
	default:
		return nil
	}
}

// IsValidFamily は区分が既知かを判定します。
func IsValidFamily(family Family) bool {
	return family == FamilyHT || family == FamilyST
}

// Habilitation は従業員が保持する電気作業認可です。従業員 1 人につき
// 区分ごとに高々 1 件のみ保持し、更新は既存行の上書きで表現します。
type Habilitation struct {
	ID             string
	EmployeeID     string
	Family         Family
	Codes          []string
	Numero         *string
	DateValidation time.Time
	DateExpiration time.Time
	DocumentRef    *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ExpiredEntry は失効した Habilitation と保持者の識別情報の組です。
type ExpiredEntry struct {
	Habilitation *Habilitation
	Matricule    string
	GivenName    string
	FamilyName   string
}
