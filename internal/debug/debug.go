package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Build flag for debug mode - can be overridden at build time
// go build -ldflags "-X github.com/standardbeagle/treeq/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// MCPMode tracks if we're serving MCP over stdio (set by main)
var MCPMode = false

// debugOutput is the writer for debug output (defaults to nil, meaning no output)
var debugOutput io.Writer

// debugFile holds the open file handle if debug output goes to a file
var debugFile *os.File

// debugMutex protects access to debug output
var debugMutex sync.Mutex

// SetMCPMode enables MCP mode which suppresses all debug output to stdio
func SetMCPMode(enabled bool) {
	MCPMode = enabled
}

// SetDebugOutput sets a custom writer for debug output.
// Pass nil to disable debug output entirely.
func SetDebugOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugOutput = w
}

// InitDebugLogFile routes debug output to a fresh file under the temp dir,
// named after the process so parallel runs do not share a log. Returns the
// path. Call CloseDebugLog when done.
func InitDebugLogFile() (string, error) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	logDir := filepath.Join(os.TempDir(), "treeq-debug-logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}

	name := fmt.Sprintf("treeq-%d-%s.log", os.Getpid(), time.Now().Format("20060102-150405"))
	logPath := filepath.Join(logDir, name)
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}

	debugFile = file
	debugOutput = file
	return logPath, nil
}

// CloseDebugLog closes the debug log file if one is open
func CloseDebugLog() error {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debugFile == nil {
		return nil
	}
	err := debugFile.Close()
	debugFile = nil
	debugOutput = nil
	return err
}

// IsDebugEnabled reports whether any debug logging is on. The build flag,
// DEBUG=1 and a non-empty TREEQ_DEBUG all enable it; MCP mode always wins.
func IsDebugEnabled() bool {
	if MCPMode {
		return false
	}
	if EnableDebug == "true" {
		return true
	}
	switch os.Getenv("DEBUG") {
	case "1", "true":
		return true
	}
	return os.Getenv("TREEQ_DEBUG") != ""
}

// componentEnabled applies the TREEQ_DEBUG component list, e.g.
// TREEQ_DEBUG=tree,search. Empty, "1", "true" and "all" let everything through.
func componentEnabled(component string) bool {
	list := os.Getenv("TREEQ_DEBUG")
	switch list {
	case "", "1", "true", "all":
		return true
	}
	for _, c := range strings.Split(list, ",") {
		if strings.EqualFold(strings.TrimSpace(c), component) {
			return true
		}
	}
	return false
}

// emit writes under the output lock so concurrent loggers never interleave a line
func emit(format string, args ...interface{}) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	if debugOutput == nil {
		return
	}
	fmt.Fprintf(debugOutput, format, args...)
}

// Printf prints debug information only when debug mode is enabled and output is configured
func Printf(format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	emit("[DEBUG] "+format, args...)
}

// Log provides structured debug logging with component names
func Log(component, format string, args ...interface{}) {
	if !IsDebugEnabled() || !componentEnabled(component) {
		return
	}
	emit("[DEBUG:%s] "+format, append([]interface{}{component}, args...)...)
}

// LogTree logs hierarchy builder activity
func LogTree(format string, args ...interface{}) {
	Log("TREE", format, args...)
}

// LogSearch logs search index and merge activity
func LogSearch(format string, args ...interface{}) {
	Log("SEARCH", format, args...)
}

// LogPipeline logs stage recomputes and invalidations
func LogPipeline(format string, args ...interface{}) {
	Log("PIPELINE", format, args...)
}

// LogSelect logs selection changes
func LogSelect(format string, args ...interface{}) {
	Log("SELECT", format, args...)
}

// LogSource logs async source activity, including swallowed supplier errors
func LogSource(format string, args ...interface{}) {
	Log("SOURCE", format, args...)
}

// LogMCP logs MCP tool handling
func LogMCP(format string, args ...interface{}) {
	Log("MCP", format, args...)
}

// Warn writes a warning regardless of debug mode. Recovered failures (a bad
// source snapshot, an unreadable filter state file) go through here so they
// are visible without DEBUG=1. Suppressed in MCP mode.
func Warn(format string, args ...interface{}) {
	if MCPMode {
		return
	}
	emit("[WARN] "+format, args...)
}
