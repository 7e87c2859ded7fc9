// File: cmd/nibbledev/main.go
// Package main
// Runs a simulated half-byte acquisition device: input messages are clocked
// through a 4-bit port one interrupt per nibble, and the framed messages read
// back from a device session are printed one per line.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/momentics/nibblepipe/adapters"
	"github.com/momentics/nibblepipe/api"
	"github.com/momentics/nibblepipe/control"
	"github.com/momentics/nibblepipe/device"
	"github.com/momentics/nibblepipe/gpio"
	"github.com/momentics/nibblepipe/internal/logging"
	"github.com/momentics/nibblepipe/pool"
)

func main() {
	blockSize := flag.Int("block", pool.PageSize(), "page queue block size in bytes")
	ringSize := flag.Int("ring", 1024, "interrupt ring size (power of two)")
	maxOpeners := flag.Int("max-openers", 1, "concurrent sessions before open blocks")
	maxBlocks := flag.Int("max-blocks", 0, "cap on allocated blocks (0 = unlimited)")
	rate := flag.Duration("rate", 0, "delay between interrupts (0 = as fast as possible)")
	irqCPU := flag.Int("irq-cpu", -1, "pin the interrupt pump to this CPU (-1 = unpinned)")
	configPath := flag.String("config", "", "JSON config file, reapplied on change")
	logLevel := flag.String("log-level", "warn", "log level: debug, info, warn, error")
	jsonLogs := flag.Bool("json", false, "emit JSON logs")
	truncate := flag.Bool("trunc", false, "open with truncate, discarding stale data")
	showStatus := flag.Bool("status", false, "print device status on exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [file ...]\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Each file is sent as one message; without files, each stdin line is.")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger, err := setupLogging(*logLevel, *jsonLogs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	messages, err := loadMessages(flag.Args())
	if err != nil {
		logger.Error("reading input", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, options{
		blockSize:  *blockSize,
		ringSize:   *ringSize,
		maxOpeners: *maxOpeners,
		maxBlocks:  *maxBlocks,
		rate:       *rate,
		irqCPU:     *irqCPU,
		configPath: *configPath,
		truncate:   *truncate,
		showStatus: *showStatus,
	}, messages, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("nibbledev failed", "err", err)
		os.Exit(1)
	}
}

type options struct {
	blockSize  int
	ringSize   int
	maxOpeners int
	maxBlocks  int
	rate       time.Duration
	irqCPU     int
	configPath string
	truncate   bool
	showStatus bool
}

func setupLogging(lvl string, jsonLogs bool) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(lvl)); err != nil {
		return nil, fmt.Errorf("bad -log-level %q: %w", lvl, err)
	}
	logging.SetLevel(l)
	format := logging.FormatText
	if jsonLogs {
		format = logging.FormatJSON
	}
	logger := logging.New(os.Stderr, format)
	logging.SetDefault(logger)
	return logger, nil
}

func loadMessages(files []string) ([][]byte, error) {
	var msgs [][]byte
	if len(files) == 0 {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			msgs = append(msgs, append([]byte(nil), sc.Bytes()...))
		}
		return msgs, sc.Err()
	}
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, b)
	}
	return msgs, nil
}

// run wires port, device and control plane, sends every message and prints
// what a single session reads back.
func run(ctx context.Context, logger *slog.Logger, o options, messages [][]byte, out io.Writer) error {
	ctrl := adapters.NewControlAdapter(logger)
	port := gpio.NewPort(gpio.WithInterval(o.rate), gpio.WithCPU(o.irqCPU), gpio.WithLogger(logger))
	dev, err := device.New(port, nil,
		device.WithBlockSize(o.blockSize),
		device.WithRingSize(o.ringSize),
		device.WithMaxOpeners(o.maxOpeners),
		device.WithMaxBlocks(o.maxBlocks),
		device.WithLogger(logger),
		device.WithMetrics(ctrl.Metrics()),
	)
	if err != nil {
		return err
	}
	ctrl.Bind(dev)
	if err := dev.Start(); err != nil {
		return err
	}
	defer dev.Shutdown()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if o.configPath != "" {
		w, err := control.NewWatcher(o.configPath, ctrl, logger)
		if err != nil {
			return err
		}
		defer w.Close()
		go w.Run(ctx)
	}

	flags := api.ReadOnly
	if o.truncate {
		flags |= api.Truncate
	}
	sess, err := dev.Open(ctx, flags)
	if err != nil {
		return err
	}
	defer sess.Close()

	go func() {
		if err := port.Run(ctx, dev.Interrupt); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("interrupt pump stopped", "err", err)
			cancel()
		}
	}()
	for _, m := range messages {
		port.WriteMessage(m)
	}

	bw := bufio.NewWriter(out)
	defer bw.Flush()
	for range messages {
		msg, err := sess.ReadMessage(ctx)
		if err != nil {
			return err
		}
		bw.Write(msg)
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	if o.showStatus {
		fmt.Fprint(os.Stderr, dev.Status())
		for k, v := range ctrl.Stats() {
			logger.Info("stat", "key", k, "value", v)
		}
	}
	return nil
}
