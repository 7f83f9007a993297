package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"bufpool-x/bench"
	"bufpool-x/config"
	bperrors "bufpool-x/errors"
	bplog "bufpool-x/log"
	"bufpool-x/pool"
	"bufpool-x/trace"
)

const Version = "1.0"

const defaultConfigPath = "configs/config.yaml"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run 执行一次完整压测并返回进程退出码。
// 所有资源（周期回收器、信号 Context）都在返回前通过 defer 释放。
// 参数：
// - args: 命令行参数（不含程序名）
// - stdout: 报告与帮助信息的输出
// 返回：
// - int: 0 成功，1 运行失败，2 参数错误
func run(args []string, stdout io.Writer) int {
	flags := flag.NewFlagSet("bufpool-bench", flag.ContinueOnError)
	flags.SetOutput(stdout)
	configPathFlag := flags.String("config_path", defaultConfigPath, "配置文件路径（YAML）。如果是目录，则默认读取该目录下的 config.yaml")
	iterationsFlag := flags.Int("iterations", 0, "覆盖配置中的 bench.iterations（0 表示使用配置值）")
	seedFlag := flags.Int64("seed", time.Now().UnixNano(), "随机种子")
	snapshotFlag := flags.String("snapshot_path", "", "压测结束后把缓冲池快照以 JSON 写入该文件（留空不写）")
	versionFlag := flags.Bool("version", false, "输出版本并退出")
	flags.Usage = func() {
		_, _ = fmt.Fprintf(stdout, "bufpool-bench %s\n\n", Version)
		_, _ = fmt.Fprintln(stdout, "用法：")
		_, _ = fmt.Fprintln(stdout, "  bufpool-bench [--config_path <path>] [--iterations <n>] [--seed <n>] [--snapshot_path <path>] [--version] [--help]")
		_, _ = fmt.Fprintln(stdout, "\n参数：")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *versionFlag {
		_, _ = fmt.Fprintln(stdout, Version)
		return 0
	}

	cfg, err := loadConfig(*configPathFlag)
	if err != nil {
		_, _ = fmt.Fprintln(stdout, err)
		return 1
	}
	if *iterationsFlag > 0 {
		cfg.Bench.Iterations = *iterationsFlag
	}
	if err := bplog.Init(cfg.Logging); err != nil {
		_, _ = fmt.Fprintln(stdout, err)
		return 1
	}

	p := pool.New()
	p.Initialize()
	p.Apply(cfg.Pool)
	bplog.With(logrus.Fields{
		"cleanup_timeout": cfg.Pool.CleanupTimeout,
		"policies":        cfg.Pool.Policies,
		"sweep_interval":  cfg.Pool.SweepInterval.String(),
	}).Info("缓冲池已初始化")

	ctx, cancel := signalContext()
	defer cancel()

	if cfg.Pool.SweepInterval > 0 {
		j := pool.NewJanitor(p, cfg.Pool.SweepInterval)
		if err := j.Start(ctx); err != nil {
			bplog.L().WithError(err).Error("周期回收启动失败")
			return 1
		}
		defer j.Stop()
	}

	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(pool.NewCollector(p, cfg.Metrics.Namespace))
	}

	runner := bench.NewRunner(p, cfg.Bench, bplog.L(), *seedFlag)
	var tracker *trace.Tracker
	if cfg.Bench.Track {
		tracker = trace.New(p, nil)
		runner.UseSource(tracker)
	}
	rep, err := runner.Run(ctx)
	if err != nil {
		bplog.L().WithError(err).Error("压测中止")
		return 1
	}
	_, _ = rep.WriteTo(stdout)

	if tracker != nil {
		tracker.Report(bplog.L(), 0)
	}
	if n := p.InUse(); n > 0 {
		bplog.With(logrus.Fields{"in_use": n}).Warn("压测结束仍有未归还缓冲区")
	}
	if reg != nil {
		dumpMetrics(reg)
	}
	if *snapshotFlag != "" {
		if err := writeSnapshot(*snapshotFlag, p.Snapshot()); err != nil {
			bplog.L().WithError(err).Error("快照写入失败")
			return 1
		}
	}
	return 0
}

// loadConfig 读取配置；默认路径不存在时回退到内置默认配置。
func loadConfig(p string) (config.Config, error) {
	path := resolveConfigPath(p)
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if p == defaultConfigPath && errors.Is(err, fs.ErrNotExist) {
		return config.DefaultConfig(), nil
	}
	return cfg, bperrors.WithMessage(err, "config "+path)
}

func resolveConfigPath(p string) string {
	if p == "" {
		return defaultConfigPath
	}
	st, err := os.Stat(p)
	if err != nil {
		return p
	}
	if st.IsDir() {
		return filepath.Join(p, "config.yaml")
	}
	return p
}

// writeSnapshot 把快照编码为缩进 JSON 写入文件。
func writeSnapshot(path string, snap pool.Snapshot) error {
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(raw, '\n'), 0o644)
}

// dumpMetrics 以日志形式输出一次指标采集结果。
func dumpMetrics(reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		bplog.L().WithError(err).Warn("指标采集失败")
		return
	}
	fields := logrus.Fields{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetGauge() != nil:
				fields[mf.GetName()] = m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				fields[mf.GetName()] = m.GetCounter().GetValue()
			}
		}
	}
	bplog.With(fields).Info("缓冲池指标")
}

// signalContext 创建一个可被 SIGINT/SIGTERM 取消的 Context；cancel 同时注销信号监听。
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
