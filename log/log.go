package log

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"bufpool-x/config"
)

const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

var base = logrus.New()

func init() {
	base.AddHook(runtimeHook{})
}

// Init 按配置初始化日志系统。
// 参数：
// - cfg: 日志配置（级别、输出、格式与文件滚动策略）
// 返回：
// - error: 初始化失败原因（如文件目录无法创建）
func Init(cfg config.LoggingConfig) error {
	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)
	base.SetReportCaller(false)

	if strings.ToLower(cfg.Format) == "json" {
		base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timestampFormat})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: timestampFormat})
	}

	out, err := output(cfg)
	if err != nil {
		return err
	}
	base.SetOutput(out)
	return nil
}

func output(cfg config.LoggingConfig) (io.Writer, error) {
	if strings.ToLower(cfg.Output) != "file" {
		return os.Stdout, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    max(1, int(cfg.MaxSize.Int64()/(1024*1024))),
		MaxAge:     max(1, cfg.MaxAge),
		Compress:   cfg.Compress,
		MaxBackups: 3,
		LocalTime:  true,
	}, nil
}

// L 返回底层 logrus Logger 指针（全局单例）。
func L() *logrus.Logger { return base }

// With 创建带字段的日志 Entry。
func With(fields logrus.Fields) *logrus.Entry { return base.WithFields(fields) }

// Discard 返回一个丢弃所有输出的独立 Logger，供测试与静默场景使用。
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type runtimeHook struct{}

// Levels 返回 Hook 适用的日志级别集合。
func (h runtimeHook) Levels() []logrus.Level { return logrus.AllLevels }

// Fire 在日志输出前补齐 goid/func/ts_ms 字段（若未显式设置）。
func (h runtimeHook) Fire(e *logrus.Entry) error {
	if _, ok := e.Data["goid"]; !ok {
		e.Data["goid"] = goid()
	}
	if _, ok := e.Data["func"]; !ok {
		if pc, _, _, ok := runtime.Caller(8); ok {
			if fn := runtime.FuncForPC(pc); fn != nil {
				e.Data["func"] = fn.Name()
			}
		}
	}
	if _, ok := e.Data["ts_ms"]; !ok {
		e.Data["ts_ms"] = time.Now().UnixMilli()
	}
	return nil
}

// goid 解析当前 goroutine ID（仅用于日志辅助字段）。
func goid() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	s := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	i := strings.IndexByte(s, ' ')
	if i < 0 {
		return 0
	}
	id, _ := strconv.ParseInt(s[:i], 10, 64)
	return id
}
