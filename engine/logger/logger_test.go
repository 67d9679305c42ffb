package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		enabled zapcore.Level
		wantErr bool
	}{
		{name: "default info", cfg: Config{}, enabled: zapcore.InfoLevel},
		{name: "debug dev", cfg: Config{Level: "debug", Development: true}, enabled: zapcore.DebugLevel},
		{name: "warn", cfg: Config{Level: "warn"}, enabled: zapcore.WarnLevel},
		{name: "bogus", cfg: Config{Level: "loud"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if !l.Core().Enabled(tt.enabled) {
				t.Errorf("level %v should be enabled", tt.enabled)
			}
			if tt.enabled > zapcore.DebugLevel && l.Core().Enabled(tt.enabled-1) {
				t.Errorf("level %v should be disabled", tt.enabled-1)
			}
		})
	}
}

func TestInitReplacesLog(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	if err := Init(Config{Level: "error"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if Log == prev {
		t.Fatal("Init did not replace Log")
	}
	if Log.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn should be disabled at error level")
	}
}
