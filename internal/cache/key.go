package cache

import (
	"strconv"
	"strings"
)

// Key はキャッシュキー。先頭のタグ（エンティティ種別）で一括無効化の対象が決まる。
//
// 文字列表現は以下の形式で固定されている:
//
//	ページ一覧: kind:page-size
//	単一取得:   kind:id
//	検索:       kind:search:term-page-size
//	全件一覧:   kind:all
type Key struct {
	Tag    string
	suffix string
}

// String はキャッシュに格納する際のキー文字列を返す。
func (k Key) String() string {
	return k.Tag + ":" + k.suffix
}

// PageKey はページ一覧のキーを返す。
func PageKey(tag string, page, size int) Key {
	return Key{Tag: tag, suffix: strconv.Itoa(page) + "-" + strconv.Itoa(size)}
}

// IDKey は単一エンティティのキーを返す。
func IDKey(tag, id string) Key {
	return Key{Tag: tag, suffix: id}
}

// SearchKey は検索結果のキーを返す。
func SearchKey(tag, term string, page, size int) Key {
	return Key{Tag: tag, suffix: "search:" + term + "-" + strconv.Itoa(page) + "-" + strconv.Itoa(size)}
}

// AllKey は全件一覧のキーを返す。
func AllKey(tag string) Key {
	return Key{Tag: tag, suffix: "all"}
}

// tagOf はキー文字列からタグ部分を取り出す。
func tagOf(key string) string {
	tag, _, _ := strings.Cut(key, ":")
	return tag
}
