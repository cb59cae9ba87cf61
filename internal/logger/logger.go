package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level 日志级别
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = [...]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

var levelColors = [...]string{
	DEBUG: "\033[36m", // cyan
	INFO:  "\033[32m", // green
	WARN:  "\033[33m", // yellow
	ERROR: "\033[31m", // red
}

const resetColor = "\033[0m"

// 全局默认日志级别与输出
var (
	globalMu    sync.RWMutex
	globalLevel = INFO
	globalOut   io.Writer = os.Stderr
)

// SetGlobalLevel 设置全局日志级别
func SetGlobalLevel(level Level) {
	globalMu.Lock()
	globalLevel = level
	globalMu.Unlock()
}

// SetLevelByName 按名称设置全局日志级别，未知名称保持不变
func SetLevelByName(name string) {
	for level, n := range levelNames {
		if strings.EqualFold(name, n) {
			SetGlobalLevel(Level(level))
			return
		}
	}
}

// SetOutput 设置全局日志输出目标
func SetOutput(w io.Writer) {
	globalMu.Lock()
	globalOut = w
	globalMu.Unlock()
}

// Logger 日志记录器
type Logger struct {
	module string
}

// New 创建新的日志记录器
func New(module string) *Logger {
	return &Logger{module: module}
}

// log 内部日志方法
func (l *Logger) log(level Level, format string, args ...any) {
	globalMu.RLock()
	min, out := globalLevel, globalOut
	globalMu.RUnlock()

	if level < min {
		return
	}

	timestamp := time.Now().Format("15:04:05.000")
	msg := fmt.Sprintf(format, args...)

	fmt.Fprintf(out, "%s%s%s [%s] %s: %s\n",
		levelColors[level], levelNames[level], resetColor,
		timestamp, l.module, msg)
}

// Debug 调试日志
func (l *Logger) Debug(format string, args ...any) {
	l.log(DEBUG, format, args...)
}

// Info 信息日志
func (l *Logger) Info(format string, args ...any) {
	l.log(INFO, format, args...)
}

// Warn 警告日志
func (l *Logger) Warn(format string, args ...any) {
	l.log(WARN, format, args...)
}

// Error 错误日志
func (l *Logger) Error(format string, args ...any) {
	l.log(ERROR, format, args...)
}
