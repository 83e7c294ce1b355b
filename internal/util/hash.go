package util

import (
	"fmt"
	"hash/fnv"
	"strconv"
)

// FNV64 使用 FNV-1a 64 位哈希算法，返回 16 进制字符串
func FNV64(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}

// EventKey derives a stable partition key for an update event.
func EventKey(variant string, worker int) string {
	return FNV64(variant + ":" + strconv.Itoa(worker))
}
