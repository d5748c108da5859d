package habilitation

import "time"

// Status は有効期限に基づく分類結果です。
type Status string

const (
	StatusValid        Status = "valid"
	StatusExpiringSoon Status = "expiring_soon"
	StatusExpired      Status = "expired"
)

// 失効警告の対象となる残日数。
const expiringSoonWindowDays = 30

// Classify は asOf 時点の状態を分類します。残日数が負で Expired、
// 0〜30 日で ExpiringSoon、それ以外は Valid です。期限当日はまだ
// Expired になりません。
func Classify(h *Habilitation, asOf time.Time) Status {
	days := DaysRemaining(h, asOf)
	switch {
	case days < 0:
		return StatusExpired
	case days <= expiringSoonWindowDays:
		return StatusExpiringSoon
	default:
		return StatusValid
	}
}

// DaysRemaining は asOf から有効期限までの暦日数を返します。
func DaysRemaining(h *Habilitation, asOf time.Time) int {
	expiration := truncateToDate(h.DateExpiration)
	reference := truncateToDate(asOf)
	return int(expiration.Sub(reference) / (24 * time.Hour))
}

// LatestRepresentative は有効期限が最も遠い Habilitation を代表として
// 返します。一覧画面の見出しステータスに使われます。空なら nil です。
func LatestRepresentative(habilitations []*Habilitation) *Habilitation {
	var latest *Habilitation
	for _, h := range habilitations {
		if latest == nil || h.DateExpiration.After(latest.DateExpiration) {
			latest = h
		}
	}
	return latest
}

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
