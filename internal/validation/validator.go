// Package validation はリクエストボディの入力検証を提供する。
// 検証ルールは構造体のvalidateタグで宣言し、エラーはJSONフィールド名と
// メッセージの組（model.FieldError）として返す。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/moviecatalog/internal/model"
)

// DateLayout はbornDateなど日付フィールドの書式。
const DateLayout = "2006-01-02"

var yearPattern = regexp.MustCompile(`^[0-9]{4}$`)

// fieldLabels はメッセージ中のフィールド表示名。
var fieldLabels = map[string]string{
	"firstName":   "First name",
	"lastName":    "Last name",
	"bornDate":    "Born date",
	"movies":      "Movies",
	"imdbId":      "IMDB ID",
	"title":       "Title",
	"year":        "Year",
	"description": "Description",
	"actors":      "Actors",
	"pictures":    "Pictures",
	"username":    "Username",
	"password":    "Password",
}

// Validator はvalidator/v10にドメイン固有のルールを登録したもの。
// 生成後は複数ゴルーチンから同時に使用してよい。
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// New はValidatorを生成する。nowがnilの場合はtime.Nowを使う。
func New(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      now,
	}

	v.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// 登録に失敗するのはタグ名が不正な場合のみ
	must(v.validate.RegisterValidation("isodate", v.isISODate))
	must(v.validate.RegisterValidation("pastdate", v.isPastDate))
	must(v.validate.RegisterValidation("year", v.isYear))
	must(v.validate.RegisterValidation("notfutureyear", v.isNotFutureYear))

	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Struct はsのvalidateタグを検証し、違反したフィールドの一覧を返す。
// 違反がない場合はnilを返す。
func (v *Validator) Struct(s any) []model.FieldError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []model.FieldError{{Message: err.Error()}}
	}

	out := make([]model.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, model.FieldError{
			Field:   fieldPath(fe),
			Message: message(fe),
		})
	}
	return out
}

// Validate はStructの結果をVALIDATION_FAILEDエラーに変換する。違反がなければnilを返す。
func (v *Validator) Validate(s any) error {
	if errs := v.Struct(s); len(errs) > 0 {
		return model.NewValidationError(errs)
	}
	return nil
}

// ParseDate はDateLayout形式の文字列をUTCの日付に変換する。
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// fieldPath は先頭の構造体名を除いた名前空間を返す（例: movies[0]）。
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func label(field string) string {
	base, _, _ := strings.Cut(field, "[")
	if l, ok := fieldLabels[base]; ok {
		return l
	}
	return base
}

func message(fe validator.FieldError) string {
	name := label(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "min", "max":
		return rangeMessage(fe, name)
	case "isodate":
		return fmt.Sprintf("%s must be a date in yyyy-MM-dd format", name)
	case "pastdate":
		return fmt.Sprintf("%s must be in the past", name)
	case "year":
		return fmt.Sprintf("%s must be a four-digit year", name)
	case "notfutureyear":
		return fmt.Sprintf("%s must be in the past or present", name)
	case "url", "http_url":
		return fmt.Sprintf("%s must contain valid URLs", name)
	case "gt":
		return fmt.Sprintf("%s must contain positive ids", name)
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}

// rangeMessages は文字数制約の違反メッセージ。
var rangeMessages = map[string]string{
	"firstName":   "First name must be between 2 and 50 characters",
	"lastName":    "Last name must be between 2 and 50 characters",
	"imdbId":      "IMDB ID must be 9-10 characters",
	"title":       "Title must be between 1 and 255 characters",
	"description": "Description must not exceed 1000 characters",
}

func rangeMessage(fe validator.FieldError, name string) string {
	if strings.Contains(fe.Field(), "[") {
		return fmt.Sprintf("%s must contain valid IMDB IDs", name)
	}
	if msg, ok := rangeMessages[fe.Field()]; ok {
		return msg
	}
	if fe.Tag() == "max" {
		return fmt.Sprintf("%s must not exceed %s characters", name, fe.Param())
	}
	return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
}

func (v *Validator) isISODate(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := ParseDate(s)
	return err == nil
}

func (v *Validator) isPastDate(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	d, err := ParseDate(s)
	if err != nil {
		// 書式はisodateで報告する
		return true
	}
	now := v.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return d.Before(today)
}

func (v *Validator) isYear(fl validator.FieldLevel) bool {
	return yearPattern.MatchString(fl.Field().String())
}

func (v *Validator) isNotFutureYear(fl validator.FieldLevel) bool {
	y, err := strconv.Atoi(fl.Field().String())
	if err != nil {
		return true
	}
	return y <= v.now().UTC().Year()
}
