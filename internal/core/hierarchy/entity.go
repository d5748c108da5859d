package hierarchy

import "time"

// Division は組織階層の最上位ノードです。名称は全体で一意です。
type Division struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Service は Division 配下の第二階層ノードです。
type Service struct {
	ID         string
	Name       string
	DivisionID string
	CreatedAt  time.Time
}

// Section は Service 配下の第三階層ノードです。
type Section struct {
	ID        string
	Name      string
	ServiceID string
	CreatedAt time.Time
}

// Equipe は Section 配下の最下層ノードです。Section によっては存在しません。
type Equipe struct {
	ID        string
	Name      string
	SectionID string
	CreatedAt time.Time
}

// ResolvedPath は解決済みの階層パスを表します。EquipeID のみ省略可能です。
type ResolvedPath struct {
	DivisionID string
	ServiceID  string
	SectionID  string
	EquipeID   *string
}
