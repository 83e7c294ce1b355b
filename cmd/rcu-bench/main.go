package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

import (
	"github.com/nanjiek/pixiu-rcu/internal/api"
	"github.com/nanjiek/pixiu-rcu/internal/checkpoint"
	"github.com/nanjiek/pixiu-rcu/internal/config"
	"github.com/nanjiek/pixiu-rcu/internal/events"
	"github.com/nanjiek/pixiu-rcu/internal/repo"
	"github.com/nanjiek/pixiu-rcu/internal/throttle"
	"github.com/nanjiek/pixiu-rcu/internal/types"
	"github.com/nanjiek/pixiu-rcu/internal/workload"
)

func main() {
	// 解析命令行参数
	confPath := flag.String("c", "configs/rcu.yaml", "path to config file")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*confPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	slog.SetDefault(slog.New(newHandler(cfg.Log)))

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// 从 checkpoint 恢复初始值
	var ckpt *checkpoint.Store
	seed := []int{}
	if cfg.Checkpoint.Enabled() {
		ckpt, err = checkpoint.Open(cfg.Checkpoint.Dir)
		if err != nil {
			log.Fatalf("failed to open checkpoint store: %v", err)
		}
		defer ckpt.Close()
		rec, ok, err := ckpt.Load()
		switch {
		case err != nil:
			slog.Warn("checkpoint unreadable, starting empty", "error", err)
		case ok:
			seed = rec.Values
			slog.Info("restored checkpoint", "len", len(rec.Values), "saved_at", rec.SavedAt)
		}
	}

	store, err := workload.NewStore(cfg.Workload.Variant, seed)
	if err != nil {
		log.Fatalf("failed to build store: %v", err)
	}

	// 事件下游
	var sinks []workload.Sink
	if cfg.Redis.Enabled() {
		rdb, err := repo.NewRedis(cfg.Redis, slog.Default())
		if err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer rdb.Close()
		sinks = append(sinks, rdb)
	}
	if cfg.Kafka.Enabled() {
		switch cfg.Kafka.Driver {
		case config.DriverSarama:
			ss, err := events.NewSaramaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
			if err != nil {
				log.Fatalf("failed to create sarama producer: %v", err)
			}
			defer ss.Close()
			sinks = append(sinks, ss)
		default:
			ks := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
			defer ks.Close()
			sinks = append(sinks, ks)
		}
	}

	for i, s := range sinks {
		sinks[i] = workload.WithBreaker(s, cfg.Breaker)
	}

	var limiter workload.Limiter
	if cfg.Throttle.PublishQPS > 0 {
		sl, err := throttle.NewSentinelLimiter(throttle.ResourcePublish, cfg.Throttle.PublishQPS)
		if err != nil {
			log.Fatalf("failed to init publish throttle: %v", err)
		}
		limiter = sl
	}

	dispatcher := workload.NewDispatcher(cfg.Workload.QueueSize, sinks, limiter)
	go dispatcher.Run(rootCtx)

	runner := workload.NewRunner(cfg.Workload, store, workload.WithUpdateHook(func(ev types.UpdateEvent) {
		dispatcher.Submit(ev)
	}))

	var ckptDone chan struct{}
	if ckpt != nil {
		ckptDone = make(chan struct{})
		cp := checkpoint.NewCheckpointer(ckpt, store.Reader(), time.Duration(cfg.Checkpoint.IntervalMs)*time.Millisecond)
		go func() {
			defer close(ckptDone)
			cp.Run(rootCtx)
		}()
	}

	// 初始化HTTP服务
	var httpServer *api.Server
	if cfg.Server.HTTPAddr != "" {
		httpServer = api.NewServer(cfg.Server, store,
			api.WithProgress(runner.Progress),
			api.WithDispatchStats(dispatcher.Stats))
		go func() {
			slog.Info("http server is running", "addr", cfg.Server.HTTPAddr, "pid", os.Getpid())
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("server failed: %v", err)
			}
		}()
	}

	var health *api.HealthServer
	if cfg.Server.GRPCAddr != "" {
		health = api.NewHealthServer(cfg.Server.GRPCAddr)
		health.SetServing(true)
		go func() {
			slog.Info("grpc health server is running", "addr", cfg.Server.GRPCAddr)
			if err := health.ListenAndServe(); err != nil {
				log.Fatalf("grpc server failed: %v", err)
			}
		}()
	}

	workDone := make(chan workload.Stats, 1)
	go func() { workDone <- runner.Run(rootCtx) }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case st := <-workDone:
		final, gen := store.SnapshotVersion()
		slog.Info("final value",
			"generation", gen,
			"len", len(final),
			"successes", st.Successes,
			"cell", store.Stats())
		// 没有对外服务时跑完即退出
		if httpServer != nil || health != nil {
			<-quit
		}
	case <-quit:
		cancelRoot()
		<-workDone
	}

	// 优雅退出
	slog.Info("shutting down...")
	if health != nil {
		health.Shutdown()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown failed", "error", err)
		}
	}
	dispatcher.Close()
	cancelRoot()
	if ckptDone != nil {
		<-ckptDone
	}
	slog.Info("exited properly", "dispatch", dispatcher.Stats())
}

func newHandler(c config.LogCfg) slog.Handler {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.NewTextHandler(os.Stderr, opts)
}
