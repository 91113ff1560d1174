package monitoring

import (
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("custom logger was not called")
	}

	// nil installs a no-op logger
	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("no-op logger should not have triggered callback")
	}
}

func TestLogfDefault(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
}

func TestDebugfGating(t *testing.T) {
	original := Logf
	defer func() {
		Logf = original
		SetDebug(false)
	}()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})

	Debugf("hidden")
	if len(lines) != 0 {
		t.Errorf("Debugf logged while debug disabled: %v", lines)
	}

	SetDebug(true)
	if !DebugEnabled() {
		t.Error("DebugEnabled should report true after SetDebug(true)")
	}
	Debugf("visible")
	if len(lines) != 1 {
		t.Errorf("expected one debug line, got %v", lines)
	}
}
