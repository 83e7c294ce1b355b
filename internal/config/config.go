package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

import (
	"gopkg.in/yaml.v3"
)

// Cell variants
const (
	VariantGate  = "gate"
	VariantGuard = "guard"
)

// Kafka drivers
const (
	DriverKafkaGo = "kafka-go"
	DriverSarama  = "sarama"
)

// ServerCfg HTTP / gRPC 服务地址配置
type ServerCfg struct {
	HTTPAddr string `yaml:"httpAddr"` // 监听地址，例如 ":8080"；为空则不启动
	GRPCAddr string `yaml:"grpcAddr"` // gRPC health 服务地址；为空则不启动
}

// WorkloadCfg 压测负载配置
type WorkloadCfg struct {
	Workers      int    `yaml:"workers"`      // 并发 worker 数
	OpsPerWorker int    `yaml:"opsPerWorker"` // 每个 worker 的迭代次数
	Min          int    `yaml:"min"`          // 随机数下界（含）
	Max          int    `yaml:"max"`          // 随机数上界（含）
	Seed         uint64 `yaml:"seed"`         // 0 表示按时间取随机种子
	Variant      string `yaml:"variant"`      // gate | guard
	QueueSize    int    `yaml:"queueSize"`    // 事件分发队列长度
}

// RedisCfg Redis 连接与命名空间配置
type RedisCfg struct {
	Addr           string `yaml:"addr"`           // Redis address, e.g. "127.0.0.1:6379"; empty disables the sink
	Password       string `yaml:"password"`       // Redis password
	DB             int    `yaml:"db"`             // Redis DB index
	Prefix         string `yaml:"prefix"`         // Key prefix
	UpdatesChannel string `yaml:"updatesChannel"` // Pub/Sub channel for update events
	PoolSize       int    `yaml:"poolSize"`       // Connection pool size
	TimeoutMs      int    `yaml:"timeoutMs"`      // Per-command timeout (ms)
}

func (r RedisCfg) Enabled() bool {
	return r.Addr != ""
}

// KafkaCfg - update event stream
type KafkaCfg struct {
	Brokers []string `yaml:"brokers"` // e.g. ["127.0.0.1:9092"]; empty disables the sink
	Topic   string   `yaml:"topic"`
	Driver  string   `yaml:"driver"` // kafka-go | sarama
}

func (k KafkaCfg) Enabled() bool {
	return len(k.Brokers) > 0 && k.Topic != ""
}

// CheckpointCfg - durable copy of the latest value
type CheckpointCfg struct {
	Dir        string `yaml:"dir"`        // pebble directory; empty disables checkpoints
	IntervalMs int    `yaml:"intervalMs"` // periodic save interval
}

func (c CheckpointCfg) Enabled() bool {
	return c.Dir != ""
}

// ThrottleCfg - flow control on event publishing
type ThrottleCfg struct {
	PublishQPS float64 `yaml:"publishQps"` // <=0 disables throttling
}

// BreakerCfg 下游 sink 熔断配置
type BreakerCfg struct {
	FailThreshold        int `yaml:"failThreshold"`        // 连续失败次数达到阈值即打开；<=0 关闭熔断
	MinOpenMs            int `yaml:"minOpenMs"`            // 打开后的最短冷却时间
	HalfOpenProbePercent int `yaml:"halfOpenProbePercent"` // 半开状态放行比例 (0-100)
	HalfOpenMinPass      int `yaml:"halfOpenMinPass"`      // 半开成功多少次后关闭
}

func (b BreakerCfg) Enabled() bool {
	return b.FailThreshold > 0
}

// LogCfg 日志配置
type LogCfg struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Config 全量配置
type Config struct {
	Server     ServerCfg     `yaml:"server"`
	Workload   WorkloadCfg   `yaml:"workload"`
	Redis      RedisCfg      `yaml:"redis"`
	Kafka      KafkaCfg      `yaml:"kafka"`
	Checkpoint CheckpointCfg `yaml:"checkpoint"`
	Throttle   ThrottleCfg   `yaml:"throttle"`
	Breaker    BreakerCfg    `yaml:"breaker"`
	Log        LogCfg        `yaml:"log"`
}

// Load 从 YAML 文件加载配置
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes YAML bytes, expanding ${ENV} references first.
func Parse(b []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(b))
	var c Config
	if err := yaml.Unmarshal([]byte(expanded), &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ApplyDefaults fills zero fields with the defaults of the reference workload.
func (c *Config) ApplyDefaults() {
	w := &c.Workload
	if w.Workers <= 0 {
		w.Workers = 20
	}
	if w.OpsPerWorker <= 0 {
		w.OpsPerWorker = 1000
	}
	if w.Min == 0 && w.Max == 0 {
		w.Min, w.Max = -100, 100
	}
	w.Variant = strings.ToLower(strings.TrimSpace(w.Variant))
	if w.Variant == "" {
		w.Variant = VariantGate
	}
	if w.QueueSize <= 0 {
		w.QueueSize = 1024
	}

	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "pixiu:rcu"
	}
	if c.Redis.UpdatesChannel == "" {
		c.Redis.UpdatesChannel = c.Redis.Prefix + ":updates"
	}

	c.Kafka.Driver = strings.ToLower(strings.TrimSpace(c.Kafka.Driver))
	if c.Kafka.Driver == "" {
		c.Kafka.Driver = DriverKafkaGo
	}

	if c.Checkpoint.IntervalMs <= 0 {
		c.Checkpoint.IntervalMs = 1000
	}

	if c.Breaker.Enabled() {
		if c.Breaker.MinOpenMs <= 0 {
			c.Breaker.MinOpenMs = 5000
		}
		if c.Breaker.HalfOpenProbePercent <= 0 {
			c.Breaker.HalfOpenProbePercent = 100
		}
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	w := c.Workload
	if w.Min > w.Max {
		return fmt.Errorf("workload.min %d greater than workload.max %d", w.Min, w.Max)
	}
	if w.Variant != VariantGate && w.Variant != VariantGuard {
		return fmt.Errorf("unknown workload.variant %q", w.Variant)
	}
	if c.Kafka.Driver != DriverKafkaGo && c.Kafka.Driver != DriverSarama {
		return fmt.Errorf("unknown kafka.driver %q", c.Kafka.Driver)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("kafka.topic required when brokers are set")
	}
	if c.Breaker.HalfOpenProbePercent > 100 {
		return fmt.Errorf("breaker.halfOpenProbePercent %d out of range", c.Breaker.HalfOpenProbePercent)
	}
	return nil
}
