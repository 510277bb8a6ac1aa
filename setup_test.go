package partition_orchestra_test

import (
	"fmt"
	"strings"
	"sync"
)

type logEntry struct {
	level   string
	msg     string
	keyvals []any
}

// value returns the value logged under key.
func (e logEntry) value(key string) (any, bool) {
	for i := 0; i+1 < len(e.keyvals); i += 2 {
		if k, ok := e.keyvals[i].(string); ok && k == key {
			return e.keyvals[i+1], true
		}
	}
	return nil, false
}

// recordingLogger captures log calls, safe for concurrent batches.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (r *recordingLogger) log(level, msg string, keyvals ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, logEntry{level: level, msg: msg, keyvals: keyvals})
}

func (r *recordingLogger) Debug(msg string, keyvals ...interface{}) { r.log("debug", msg, keyvals...) }
func (r *recordingLogger) Info(msg string, keyvals ...interface{})  { r.log("info", msg, keyvals...) }
func (r *recordingLogger) Warn(msg string, keyvals ...interface{})  { r.log("warn", msg, keyvals...) }
func (r *recordingLogger) Error(msg string, keyvals ...interface{}) { r.log("error", msg, keyvals...) }

// find returns entries at level whose message contains substr.
func (r *recordingLogger) find(level, substr string) []logEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []logEntry
	for _, e := range r.entries {
		if e.level == level && strings.Contains(e.msg, substr) {
			out = append(out, e)
		}
	}
	return out
}

func (r *recordingLogger) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sb strings.Builder
	for _, e := range r.entries {
		fmt.Fprintf(&sb, "%s %s %v\n", e.level, e.msg, e.keyvals)
	}
	return sb.String()
}

func intRange(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}
