package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestBufferWrap(t *testing.T) {
	b := NewBuffer(3)
	for i := range 5 {
		b.Add(Record{Level: slog.LevelInfo, Message: string(rune('a' + i))})
	}
	if b.Len() != 3 {
		t.Fatalf("expected 3 records, got %d", b.Len())
	}
	got := b.Latest(10, slog.LevelDebug)
	if len(got) != 3 || got[0].Message != "c" || got[2].Message != "e" {
		t.Errorf("expected c..e oldest first, got %+v", got)
	}
	if got := b.Latest(1, slog.LevelDebug); len(got) != 1 || got[0].Message != "e" {
		t.Errorf("expected most recent record, got %+v", got)
	}
	if b.Latest(0, slog.LevelDebug) != nil {
		t.Error("expected nil for n=0")
	}
}

func TestBufferLevel(t *testing.T) {
	b := NewBuffer(0)
	b.Add(Record{Level: slog.LevelDebug, Message: "debug"})
	b.Add(Record{Level: slog.LevelWarn, Message: "warn"})
	b.Add(Record{Level: slog.LevelInfo, Message: "info"})

	got := b.Latest(10, slog.LevelInfo)
	if len(got) != 2 || got[0].Message != "warn" || got[1].Message != "info" {
		t.Errorf("unexpected records %+v", got)
	}
	if got := b.Grep("ar"); len(got) != 1 || got[0].Message != "warn" {
		t.Errorf("unexpected grep result %+v", got)
	}
}

func TestSubscribe(t *testing.T) {
	b := NewBuffer(4)
	sub := b.Subscribe(1)
	b.Add(Record{Message: "one"})
	b.Add(Record{Message: "two"}) // dropped, subscriber is full

	select {
	case rec := <-sub.C:
		if rec.Message != "one" {
			t.Errorf("expected one, got %q", rec.Message)
		}
	case <-time.After(time.Second):
		t.Fatal("no record delivered")
	}

	sub.Close()
	b.Add(Record{Message: "three"})
	select {
	case rec := <-sub.C:
		t.Errorf("closed subscription received %q", rec.Message)
	default:
	}
}

func TestSetup(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var out bytes.Buffer
	b := NewBuffer(8)
	logger := Setup(&out, false, b)

	logger.Debug("hidden")
	logger.With("path", "fw.conf").WithGroup("parse").Info("loaded", "nodes", 12)

	if strings.Contains(out.String(), "hidden") {
		t.Error("debug record written at info level")
	}
	if !strings.Contains(out.String(), "loaded") {
		t.Errorf("record not written:\n%s", out.String())
	}
	got := b.Latest(10, slog.LevelDebug)
	if len(got) != 1 {
		t.Fatalf("expected 1 buffered record, got %d", len(got))
	}
	if want := "loaded path=fw.conf parse.nodes=12"; got[0].Message != want {
		t.Errorf("expected %q, got %q", want, got[0].Message)
	}
	if !slog.Default().Enabled(context.Background(), slog.LevelInfo) {
		t.Error("default logger not installed")
	}
}

func TestSetupDebug(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var out bytes.Buffer
	Setup(&out, true, nil).Debug("visible")
	if !strings.Contains(out.String(), "visible") {
		t.Errorf("debug record missing:\n%s", out.String())
	}
}
