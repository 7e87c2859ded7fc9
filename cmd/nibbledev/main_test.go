package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/momentics/nibblepipe/internal/logging"
)

func TestRunEchoesMessages(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	msgs := [][]byte{[]byte("hello"), []byte(""), bytes.Repeat([]byte("x"), 300)}
	err := run(ctx, logging.Discard(), options{
		blockSize:  64,
		ringSize:   1024,
		maxOpeners: 1,
	}, msgs, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "hello\n\n" + string(bytes.Repeat([]byte("x"), 300)) + "\n"
	if out.String() != want {
		t.Fatalf("output %q", out.String())
	}
}

func TestRunWithConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev.json")
	if err := os.WriteFile(path, []byte(`{"max_openers": 2}`), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	err := run(ctx, logging.Discard(), options{
		blockSize:  4096,
		ringSize:   256,
		maxOpeners: 1,
		configPath: path,
	}, [][]byte{[]byte("cfg")}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.String() != "cfg\n" {
		t.Fatalf("output %q", out.String())
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	err := run(context.Background(), logging.Discard(), options{
		blockSize:  4096,
		ringSize:   1000,
		maxOpeners: 1,
	}, nil, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error for non power-of-two ring")
	}
}

func TestSetupLoggingRejectsUnknownLevel(t *testing.T) {
	if _, err := setupLogging("loud", false); err == nil {
		t.Fatal("expected error")
	}
}
