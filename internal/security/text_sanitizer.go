// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は俳優名や映画タイトルなどの自由入力テキストから
// HTMLタグを取り除く。保存される値は常にプレーンテキストになる。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキスト化のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize はタグを全て除去し、前後の空白を取り除いたテキストを返す。
	Sanitize(s string) string
}

// textSanitizer はbluemondayのStrictPolicyを使うTextSanitizerの実装。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はタグを除去する。
// bluemondayは&などをエンティティ化するため、JSONで返す前に元の文字へ戻す。
func (s *textSanitizer) Sanitize(in string) string {
	if in == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(in)))
}
