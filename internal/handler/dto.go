package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/moviecatalog/internal/model"
	"github.com/hitoshi/moviecatalog/internal/validation"
)

// timestampLayout は作成日時・更新日時のJSON表現（UTC、ミリ秒精度）。
const timestampLayout = "2006-01-02T15:04:05.000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// --- 俳優 ---

// actorRequest は俳優の登録・更新リクエストのボディ。
type actorRequest struct {
	FirstName string   `json:"firstName" validate:"required,min=2,max=50"`
	LastName  string   `json:"lastName" validate:"required,min=2,max=50"`
	BornDate  *string  `json:"bornDate" validate:"omitempty,isodate,pastdate"`
	Movies    []string `json:"movies" validate:"omitempty,dive,min=9,max=10"`
}

// toModel は検証済みのリクエストをmodel.Actorに変換する。
func (req *actorRequest) toModel() (*model.Actor, error) {
	actor := &model.Actor{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Movies:    uniqueStrings(req.Movies),
	}
	if req.BornDate != nil && *req.BornDate != "" {
		d, err := validation.ParseDate(*req.BornDate)
		if err != nil {
			return nil, model.NewInvalidArgumentError("bornDate", "Born date must be a date in yyyy-MM-dd format")
		}
		actor.BornDate = &d
	}
	return actor, nil
}

// actorResponse は俳優のAPIレスポンス。
type actorResponse struct {
	ID        int64    `json:"id"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Movies    []string `json:"movies"`
	BornDate  *string  `json:"bornDate"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}

func toActorResponse(a *model.Actor) actorResponse {
	resp := actorResponse{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Movies:    a.Movies,
		CreatedAt: formatTimestamp(a.CreatedAt),
		UpdatedAt: formatTimestamp(a.UpdatedAt),
	}
	if resp.Movies == nil {
		resp.Movies = []string{}
	}
	if a.BornDate != nil {
		d := a.BornDate.Format(validation.DateLayout)
		resp.BornDate = &d
	}
	return resp
}

// --- 映画 ---

// yearValue は公開年。JSONでは"1994"のような文字列と1994のような数値の両方を受け付ける。
// 検証タグを適用するため、基底型は文字列とする。
type yearValue string

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (y *yearValue) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*y = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*y = yearValue(strings.TrimSpace(s))
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("year must be a string or an integer")
	}
	*y = yearValue(strconv.FormatInt(n, 10))
	return nil
}

// movieRequest は映画の登録・更新リクエストのボディ。
type movieRequest struct {
	ImdbID      string    `json:"imdbId" validate:"required,min=9,max=10"`
	Title       string    `json:"title" validate:"required,min=1,max=255"`
	Year        yearValue `json:"year" validate:"required,year,notfutureyear"`
	Description string    `json:"description" validate:"max=1000"`
	Actors      []int64   `json:"actors" validate:"omitempty,dive,gt=0"`
	Pictures    []string  `json:"pictures" validate:"omitempty,dive,url"`
}

// toModel は検証済みのリクエストをmodel.Movieに変換する。
func (req *movieRequest) toModel() (*model.Movie, error) {
	year, err := strconv.Atoi(string(req.Year))
	if err != nil {
		return nil, model.NewInvalidArgumentError("year", "Year must be a four-digit year")
	}
	return &model.Movie{
		ImdbID:      req.ImdbID,
		Title:       req.Title,
		Year:        year,
		Description: req.Description,
		Actors:      uniqueInt64s(req.Actors),
		Pictures:    uniqueStrings(req.Pictures),
	}, nil
}

// movieResponse は映画のAPIレスポンス。
type movieResponse struct {
	ImdbID      string   `json:"imdbId"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Actors      []int64  `json:"actors"`
	Pictures    []string `json:"pictures"`
	Year        string   `json:"year"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

func toMovieResponse(m *model.Movie) movieResponse {
	resp := movieResponse{
		ImdbID:      m.ImdbID,
		Title:       m.Title,
		Description: m.Description,
		Actors:      m.Actors,
		Pictures:    m.Pictures,
		Year:        fmt.Sprintf("%04d", m.Year),
		CreatedAt:   formatTimestamp(m.CreatedAt),
		UpdatedAt:   formatTimestamp(m.UpdatedAt),
	}
	if resp.Actors == nil {
		resp.Actors = []int64{}
	}
	if resp.Pictures == nil {
		resp.Pictures = []string{}
	}
	return resp
}

// --- ヘルパー関数 ---

// uniqueStrings は出現順を保ったまま重複を取り除く。
func uniqueStrings(in []string) []string {
	if in == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func uniqueInt64s(in []int64) []int64 {
	if in == nil {
		return nil
	}
	seen := make(map[int64]struct{}, len(in))
	out := make([]int64, 0, len(in))
	for _, n := range in {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
