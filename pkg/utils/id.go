// Package utils 提供通用工具函数
package utils

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"sync"
	"time"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

var (
	idMu     sync.Mutex
	lastMill int64
)

// MonotonicMillis 返回单调递增的毫秒时间戳
// 同一毫秒内多次调用时顺延 1ms，保证进程内不重复
func MonotonicMillis() int64 {
	idMu.Lock()
	defer idMu.Unlock()
	now := time.Now().UnixMilli()
	if now <= lastMill {
		now = lastMill + 1
	}
	lastMill = now
	return now
}

// RandomBase36 生成 n 位 base36 随机串
func RandomBase36(n int) string {
	buf := make([]byte, n)
	max := big.NewInt(int64(len(base36Alphabet)))
	for i := range buf {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand 不可用时退化为时间扰动
			buf[i] = base36Alphabet[(time.Now().UnixNano()+int64(i))%36]
			continue
		}
		buf[i] = base36Alphabet[v.Int64()]
	}
	return string(buf)
}

// NewPrefixedID 生成 <prefix>_<毫秒时间戳>_<suffixLen 位 base36> 形式的 ID
func NewPrefixedID(prefix string, suffixLen int) string {
	return prefix + "_" + strconv.FormatInt(MonotonicMillis(), 10) + "_" + RandomBase36(suffixLen)
}
