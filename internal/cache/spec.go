package cache

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultSpec はキャッシュ設定のデフォルト値。
const DefaultSpec = "maximumSize=1000,expireAfterWrite=30m"

// Config はキャッシュストアの設定を保持する。
type Config struct {
	MaxEntries uint64        // 最大エントリ数。超過時は最も長く使われていないエントリから削除する
	TTL        time.Duration // エントリの有効期間
	TouchOnHit bool          // trueの場合、読み取りで有効期限を延長する（expireAfterAccess）
}

// DefaultConfig はデフォルト設定（最大1000件、書き込みから30分）を返す。
func DefaultConfig() Config {
	return Config{
		MaxEntries: 1000,
		TTL:        30 * time.Minute,
	}
}

// ParseSpec は「キー=値」をカンマで区切ったキャッシュ仕様文字列を解析する。
// 例: "maximumSize=1000,expireAfterWrite=30m"
//
// 対応キー: maximumSize, expireAfterWrite, expireAfterAccess, initialCapacity, recordStats。
// initialCapacityとrecordStatsは受け付けるが無視する（統計は常に記録される）。
// 空文字列の場合はDefaultConfigを返す。
func ParseSpec(spec string) (Config, error) {
	cfg := DefaultConfig()
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return cfg, nil
	}

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "maximumSize":
			n, err := strconv.ParseUint(value, 10, 64)
			if err != nil || n == 0 {
				return Config{}, fmt.Errorf("invalid maximumSize %q", value)
			}
			cfg.MaxEntries = n
		case "expireAfterWrite", "expireAfterAccess":
			d, err := parseSpecDuration(value)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", key, err)
			}
			cfg.TTL = d
			cfg.TouchOnHit = key == "expireAfterAccess"
		case "initialCapacity", "recordStats":
		default:
			return Config{}, fmt.Errorf("unsupported cache spec key %q", key)
		}
	}

	return cfg, nil
}

// parseSpecDuration は "30m" "10s" "2d" 形式の期間を解析する。
// 単位は d, h, m, s のいずれか1文字。
func parseSpecDuration(value string) (time.Duration, error) {
	if len(value) < 2 {
		return 0, fmt.Errorf("malformed duration %q", value)
	}
	n, err := strconv.ParseInt(value[:len(value)-1], 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("malformed duration %q", value)
	}

	var unit time.Duration
	switch value[len(value)-1] {
	case 'd':
		unit = 24 * time.Hour
	case 'h':
		unit = time.Hour
	case 'm':
		unit = time.Minute
	case 's':
		unit = time.Second
	default:
		return 0, fmt.Errorf("unknown duration unit in %q", value)
	}
	return time.Duration(n) * unit, nil
}
