package logger

import (
	"fmt"
	"path/filepath"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"default", *DefaultConfig(), false},
		{"debug", *DebugConfig(), false},
		{"json", Config{Level: InfoLevel, Format: JSONFormat}, false},
		{"bad level", Config{Level: "trace", Format: TextFormat}, true},
		{"bad format", Config{Level: InfoLevel, Format: "xml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(nil)
	if err != nil {
		t.Fatalf("NewLogger(nil) returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("NewLogger(nil) returned nil logger")
	}

	if _, err := NewLogger(&Config{Level: "noise", Format: TextFormat}); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestNewLoggerWithFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "reconciler.log")

	logger, err := NewLogger(&Config{Level: DebugLevel, Format: JSONFormat, File: logFile})
	if err != nil {
		t.Fatalf("NewLogger with file returned error: %v", err)
	}

	logger.Info("statement imported")
}

func TestChainedFields(t *testing.T) {
	logger, err := NewLogger(DebugConfig())
	if err != nil {
		t.Fatalf("NewLogger returned error: %v", err)
	}

	chained := logger.
		WithComponent("matcher").
		WithField("account_id", "acc-1").
		WithFields(Fields{"records": 3}).
		WithError(fmt.Errorf("boom"))

	if chained == nil {
		t.Fatal("chained logger is nil")
	}

	// Chaining must not mutate the parent.
	if logger == chained {
		t.Error("With* calls must return a new logger")
	}

	chained.Debugf("matched %d records", 3)
}

func TestGlobalLogger(t *testing.T) {
	original := GetGlobalLogger()
	defer SetGlobalLogger(original)

	if original == nil {
		t.Fatal("global logger must be initialized")
	}

	replacement, err := NewLogger(DebugConfig())
	if err != nil {
		t.Fatalf("NewLogger returned error: %v", err)
	}

	SetGlobalLogger(replacement)
	if GetGlobalLogger() != replacement {
		t.Error("SetGlobalLogger did not replace the instance")
	}
}
