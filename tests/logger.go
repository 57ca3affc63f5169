package testutil

import (
	"fmt"
	"strings"
	"sync"

	"github.com/trezcool/moodlegw/core"
)

// LogEntry is one call to a Logger method.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// String renders the entry the way a std logger would, so tests can grep it.
func (e LogEntry) String() string {
	parts := []string{e.Level, e.Msg}
	for _, a := range e.Args {
		parts = append(parts, fmt.Sprintf("%+v", a))
	}
	return strings.Join(parts, " ")
}

// Logger records log entries in memory.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger { return &Logger{} }

// Entries returns the recorded entries, optionally only those of the given level.
func (l *Logger) Entries(level ...string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var res []LogEntry
	for _, e := range l.entries {
		if len(level) == 0 || e.Level == level[0] {
			res = append(res, e)
		}
	}
	return res
}

// Contains reports whether `s` appears in any recorded entry.
func (l *Logger) Contains(s string) bool {
	for _, e := range l.Entries() {
		if strings.Contains(e.String(), s) {
			return true
		}
	}
	return false
}

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args) }

// NewConfig returns a test configuration pointing at `moodleURL` with the fake service token.
func NewConfig(moodleURL string) *core.Config {
	return &core.Config{
		Env:             "TEST",
		AppName:         "Moodle Gateway",
		Build:           "test",
		TestMode:        true,
		FrontendBaseURL: "http://localhost:3000",
		DefaultRoleID:   5,
		Server: core.ServerConfig{
			Addr:             ":0",
			CORSAllowOrigins: []string{"*"},
		},
		Moodle: core.MoodleConfig{
			URL:   moodleURL,
			Token: ServiceToken,
		},
		Mail: core.MailConfig{
			DefaultFromEmail: "noreply@example.com",
		},
	}
}
