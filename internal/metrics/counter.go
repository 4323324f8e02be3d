package metrics

import "sync/atomic"

// RequestCounter はサービス操作の呼び出し回数を数える。
// 複数ゴルーチンから同時に呼び出してよい。再起動で0に戻る。
type RequestCounter struct {
	n atomic.Uint64
}

// NewRequestCounter は0から始まるRequestCounterを生成する。
func NewRequestCounter() *RequestCounter {
	return &RequestCounter{}
}

// Inc はカウンタを1増やす。
func (c *RequestCounter) Inc() {
	c.n.Add(1)
}

// Value は現在の値を返す。
func (c *RequestCounter) Value() uint64 {
	return c.n.Load()
}
