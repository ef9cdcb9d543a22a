package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel 日志级别
type LogLevel string

const (
	Debug LogLevel = "DEBUG"
	Info  LogLevel = "INFO"
	Warn  LogLevel = "WARN"
	Error LogLevel = "ERROR"
)

var (
	mu         sync.RWMutex
	minLevel   = Info
	fileLogger *lumberjack.Logger
)

func init() {
	log.SetOutput(os.Stdout)
	log.SetFlags(0)
}

func levelPriority(level LogLevel) int {
	switch level {
	case Debug:
		return 0
	case Info:
		return 1
	case Warn:
		return 2
	case Error:
		return 3
	default:
		return 1
	}
}

// ParseLevel 解析级别字符串，未知值返回 Info
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

// SetLevel 设置最低输出级别
func SetLevel(level string) {
	mu.Lock()
	minLevel = ParseLevel(level)
	mu.Unlock()
}

// Init 在配置加载后调用，同时写入 stdout 和滚动日志文件
func Init(logDir string) {
	if logDir == "" {
		return
	}
	if err := os.MkdirAll(logDir, 0700); err != nil {
		log.Printf("failed to create log directory %s: %v", logDir, err)
		return
	}

	mu.Lock()
	defer mu.Unlock()
	fileLogger = &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "obscura.log"),
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, fileLogger))
}

// Close 关闭日志文件
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if fileLogger == nil {
		return nil
	}
	err := fileLogger.Close()
	fileLogger = nil
	log.SetOutput(os.Stdout)
	return err
}

// Log 按级别输出格式化日志
func Log(level LogLevel, format string, v ...interface{}) {
	mu.RLock()
	threshold := minLevel
	mu.RUnlock()
	if levelPriority(level) < levelPriority(threshold) {
		return
	}
	log.Printf("%s [%s] %s", time.Now().Format(time.RFC3339), level, fmt.Sprintf(format, v...))
}

func Debugf(format string, v ...interface{}) { Log(Debug, format, v...) }
func Infof(format string, v ...interface{})  { Log(Info, format, v...) }
func Warnf(format string, v ...interface{})  { Log(Warn, format, v...) }
func Errorf(format string, v ...interface{}) { Log(Error, format, v...) }
