package types

import (
	"time"
)

// UpdateEvent 一次成功写入的描述
// 由 workload 产生，经 Dispatcher 分发给各个 sink（Redis / Kafka）
type UpdateEvent struct {
	Worker     int       `json:"worker"`     // 写入成功的 worker 编号
	Generation uint64    `json:"generation"` // 新版本号
	Mean       float64   `json:"mean"`       // 新值的均值
	Len        int       `json:"len"`        // 新值的元素个数
	Variant    string    `json:"variant"`    // gate | guard
	At         time.Time `json:"at"`         // 写入时间
}
