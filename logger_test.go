package praxis_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hyperengineering/praxis"
	"go.uber.org/zap"
)

type memorySink struct {
	mu     sync.Mutex
	events []praxis.Event
	limits []int
	err    error
}

func (m *memorySink) AppendEvent(e praxis.Event, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	m.limits = append(m.limits, limit)
	return nil
}

func TestTeeEvents_RecordsInfoAndAbove(t *testing.T) {
	sink := &memorySink{}
	logger := praxis.TeeEvents(zap.NewNop(), sink, 25)

	logger.Debug("ai.debug.noise")
	logger.Info("ai.translate.start", zap.String("source", "en"), zap.Int("term_length", 5))
	logger.With(zap.String("op", "TRANSLATION")).Error("ai.translate.error", zap.Error(errors.New("boom")))

	if len(sink.events) != 2 {
		t.Fatalf("events = %+v, want 2", sink.events)
	}
	start := sink.events[0]
	if start.Name != "ai.translate.start" || start.Level != "info" {
		t.Errorf("event = %+v", start)
	}
	if start.Fields["source"] != "en" || start.Fields["term_length"] != int64(5) {
		t.Errorf("fields = %#v", start.Fields)
	}
	failed := sink.events[1]
	if failed.Level != "error" || failed.Fields["op"] != "TRANSLATION" || failed.Fields["error"] != "boom" {
		t.Errorf("error event = %+v", failed)
	}
	if sink.limits[0] != 25 {
		t.Errorf("limit = %d, want 25", sink.limits[0])
	}
}

func TestTeeEvents_DropsAfterStoreClosed(t *testing.T) {
	sink := &memorySink{err: praxis.ErrStoreClosed}
	logger := praxis.TeeEvents(zap.NewNop(), sink, 0)

	// Must not panic or report an error through zap's error output.
	logger.Info("ai.client.destroyed")
}

func TestNewLogger_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "praxis.log")
	logger, err := praxis.NewLogger(praxis.LogConfig{Debug: true, Path: path})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	logger.Debug("ai.capabilities.probe_failed", zap.String("capability", "prompt"))
	logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, `"event":"ai.capabilities.probe_failed"`) || !strings.Contains(line, `"capability":"prompt"`) {
		t.Errorf("log line = %s", line)
	}
}

func TestNewLogger_DefaultLevelIsWarn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "praxis.log")
	logger, err := praxis.NewLogger(praxis.LogConfig{Path: path})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	logger.Info("ai.scenario.start")
	logger.Warn("ai.scenario.unavailable")
	logger.Sync()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "ai.scenario.start") {
		t.Error("info event written at default level")
	}
	if !strings.Contains(string(data), "ai.scenario.unavailable") {
		t.Error("warn event missing at default level")
	}
}
