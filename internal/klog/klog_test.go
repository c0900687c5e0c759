package klog_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/zaza89/knet-go/internal/klog"
)

func TestWritefFiltersBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	l := klog.NewWriter(&buf, klog.LevelWarn)

	l.Infof("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("Infof below LevelWarn threshold wrote %q, want nothing", buf.String())
	}

	l.Warnf("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Fatalf("Warnf() output = %q, want it to contain the message", buf.String())
	}
}

func TestWritefIncludesLevelTag(t *testing.T) {
	var buf bytes.Buffer
	l := klog.NewWriter(&buf, klog.LevelVerbose)

	l.Errorf("boom: %d", 42)
	out := buf.String()
	if !strings.Contains(out, "[ERRO]") {
		t.Fatalf("Errorf() output = %q, want it to contain [ERRO]", out)
	}
	if !strings.Contains(out, "boom: 42") {
		t.Fatalf("Errorf() output = %q, want formatted message", out)
	}
}

func TestGlobalLoggerSwap(t *testing.T) {
	var buf bytes.Buffer
	l := klog.NewWriter(&buf, klog.LevelVerbose)

	prev := klog.Global()
	klog.SetGlobal(l)
	defer klog.SetGlobal(prev)

	klog.Infof("via package-level helper")
	if !strings.Contains(buf.String(), "via package-level helper") {
		t.Fatalf("package-level Infof did not reach the swapped-in global logger")
	}
}

func TestLevelString(t *testing.T) {
	cases := map[klog.Level]string{
		klog.LevelVerbose: "VERB",
		klog.LevelInfo:    "INFO",
		klog.LevelWarn:    "WARN",
		klog.LevelError:   "ERRO",
		klog.LevelFatal:   "FATA",
	}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Errorf("Level(%d).String() = %q, want %q", level, got, want)
		}
	}
}
