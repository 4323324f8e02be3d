package model

import "time"

// Movie は映画を表す。IMDB ID（例: tt0111161）が自然キー。
type Movie struct {
	ImdbID      string
	Title       string
	Year        int
	Description string
	Actors      []int64  // 出演俳優のID
	Pictures    []string // 画像URL
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ApplyMutable は更新可能なフィールドのみをsrcから上書きする。
// ImdbID、CreatedAtは保持される。
func (m *Movie) ApplyMutable(src *Movie) {
	m.Title = src.Title
	m.Year = src.Year
	m.Description = src.Description
	m.Actors = src.Actors
	m.Pictures = src.Pictures
}
