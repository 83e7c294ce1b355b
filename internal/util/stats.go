package util

import (
	"math"
)

// Mean 计算整数序列的算术平均值
// 空序列返回 NaN，与除以零的浮点语义一致
func Mean(nums []int) float64 {
	if len(nums) == 0 {
		return math.NaN()
	}
	var sum int64
	for _, n := range nums {
		sum += int64(n)
	}
	return float64(sum) / float64(len(nums))
}
