package bulkimport

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ogurasousui/habilitation-registry/internal/core/habilitation"
)

// 取り込み元シートの固定カラム構成。スキーマは自己記述的ではないため
// 列順をここで宣言します。
const (
	colMatricule = iota
	colFamilyName
	colGivenName
	colUnused
	colDivision
	colService
	colSection
	colEquipe
	colFonction
	colCodeH0V
	colCodeB0V
	colCodeH1V
	colCodeB1V
	colCodeH2V
	colCodeB2V
	colCodeHC
	colCodeBC
	colCodeBR
	colCodeH1N
	colCodeH1T
	colCodeH2N
	colCodeH2T
	colCodeHSF6
	colNumero
	colDateValidation
	colDateExpiration

	expectedColumnCount = colDateExpiration + 1
)

// codeColumn は位置とコードの対応です。セルが非空ならそのコードを保持
// しているとみなし、セル本文の綴りは再検証しません。HSF6 列はどちらの
// 語彙にも属さないため対応表に含めません。
type codeColumn struct {
	index  int
	family habilitation.Family
	code   string
}

var codeColumns = []codeColumn{
	{colCodeH0V, habilitation.FamilyHT, "H0V"},
	{colCodeB0V, habilitation.FamilyHT, "B0V"},
	{colCodeH1V, habilitation.FamilyHT, "H1V"},
	{colCodeB1V, habilitation.FamilyHT, "B1V"},
	{colCodeH2V, habilitation.FamilyHT, "H2V"},
	{colCodeB2V, habilitation.FamilyHT, "B2V"},
	{colCodeHC, habilitation.FamilyHT, "HC"},
	{colCodeBC, habilitation.FamilyHT, "BC"},
	{colCodeBR, habilitation.FamilyHT, "BR"},
	{colCodeH1N, habilitation.FamilyST, "H1N"},
	{colCodeH1T, habilitation.FamilyST, "H1T"},
	{colCodeH2N, habilitation.FamilyST, "H2N"},
	{colCodeH2T, habilitation.FamilyST, "H2T"},
}

// 日と月は元データでは先行ゼロなしで表記されます。
const importDateLayout = "2/1/2006"

var (
	ErrEmptyPayload     = errors.New("bulkimport: empty payload")
	ErrMissingMatricule = errors.New("bulkimport: missing matricule")
	ErrTruncatedRow     = errors.New("bulkimport: truncated row")
	ErrMalformedDate    = errors.New("bulkimport: malformed date")
)

// Row は正規化済みの取り込み 1 行です。Index はヘッダーを除いた
// 1 始まりの行番号です。
type Row struct {
	Index          int
	Matricule      string
	FamilyName     string
	GivenName      string
	Division       string
	Service        string
	Section        string
	Equipe         string
	Fonction       string
	CodesByFamily  map[habilitation.Family][]string
	Numero         string
	DateValidation time.Time
	DateExpiration time.Time
}

// RawRow はセル分割のみ行った 1 行です。正規化前のエラー報告に使います。
type RawRow struct {
	Index int
	Cells []string
}

// SplitRecords は貼り付けテキストを論理行に分割します。元形式では
// レコード内に改行が紛れ込み行末と区別できないため、タブと改行を同一の
// 区切りとして扱い、固定カラム数で行境界を復元します。先頭の 1 レコードは
// ヘッダーとして読み捨てます。
func SplitRecords(payload string) ([]RawRow, error) {
	normalized := strings.ReplaceAll(payload, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	normalized = strings.ReplaceAll(normalized, "\n", "\t")
	cells := strings.Split(normalized, "\t")

	// 末尾の区切り残りを除去します。
	for len(cells) > 0 && strings.TrimSpace(cells[len(cells)-1]) == "" {
		cells = cells[:len(cells)-1]
	}

	if len(cells) < expectedColumnCount {
		return nil, ErrEmptyPayload
	}

	// ヘッダー行を読み捨てます。
	cells = cells[expectedColumnCount:]

	var rows []RawRow
	index := 0
	for start := 0; start < len(cells); start += expectedColumnCount {
		end := start + expectedColumnCount
		if end > len(cells) {
			end = len(cells)
		}
		index++
		rows = append(rows, RawRow{Index: index, Cells: cells[start:end]})
	}
	return rows, nil
}

// ParseRow は 1 行を正規化します。行単位の失敗は戻り値のエラーで表現し、
// バッチ全体には波及させません。
func ParseRow(raw RawRow) (*Row, error) {
	if len(raw.Cells) < expectedColumnCount {
		return nil, fmt.Errorf("%w: got %d cells, want %d", ErrTruncatedRow, len(raw.Cells), expectedColumnCount)
	}

	matricule := strings.TrimSpace(raw.Cells[colMatricule])
	if matricule == "" {
		return nil, ErrMissingMatricule
	}

	validation, err := parseImportDate(raw.Cells[colDateValidation])
	if err != nil {
		return nil, fmt.Errorf("date_validation: %w", err)
	}
	expiration, err := parseImportDate(raw.Cells[colDateExpiration])
	if err != nil {
		return nil, fmt.Errorf("date_expiration: %w", err)
	}

	codes := make(map[habilitation.Family][]string)
	for _, col := range codeColumns {
		if strings.TrimSpace(raw.Cells[col.index]) == "" {
			continue
		}
		codes[col.family] = append(codes[col.family], col.code)
	}

	return &Row{
		Index:          raw.Index,
		Matricule:      matricule,
		FamilyName:     strings.TrimSpace(raw.Cells[colFamilyName]),
		GivenName:      strings.TrimSpace(raw.Cells[colGivenName]),
		Division:       strings.TrimSpace(raw.Cells[colDivision]),
		Service:        strings.TrimSpace(raw.Cells[colService]),
		Section:        strings.TrimSpace(raw.Cells[colSection]),
		Equipe:         strings.TrimSpace(raw.Cells[colEquipe]),
		Fonction:       strings.TrimSpace(raw.Cells[colFonction]),
		CodesByFamily:  codes,
		Numero:         strings.TrimSpace(raw.Cells[colNumero]),
		DateValidation: validation,
		DateExpiration: expiration,
	}, nil
}

func parseImportDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: empty cell", ErrMalformedDate)
	}
	parsed, err := time.ParseInLocation(importDateLayout, trimmed, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, trimmed)
	}
	return parsed, nil
}
