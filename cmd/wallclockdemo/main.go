// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026 Datadog, Inc.

// Command wallclockdemo starts the wall-clock sampling engine against
// the current process's own thread population and prints a live table
// of captured samples, the way a teacher's pprof-upload loop would
// instead render to a terminal.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/sirupsen/logrus"

	wclog "gopkg.in/DataDog/go-wallclock.v1/internal/log"
	"gopkg.in/DataDog/go-wallclock.v1/internal/handshake"
	"gopkg.in/DataDog/go-wallclock.v1/wallclock"
)

func main() {
	var (
		interval   = flag.Duration("interval", 10*time.Millisecond, "wall-clock sampling interval")
		sampleIdle = flag.Bool("sample-idle", false, "classify and record threads parked in a syscall")
		eventName  = flag.String("event", "wall", "sampling event name (wall|cpu)")
		configPath = flag.String("config", "", "optional YAML config file (flags take precedence)")
		duration   = flag.Duration("duration", 0, "stop after this long, 0 to run until interrupted")
		verbose    = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		wclog.SetLevel(wclog.LevelDebug)
	}
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	fc, err := loadFileConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("loading config")
	}

	intervalSet, idleSet, eventSet := false, false, false
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "interval":
			intervalSet = true
		case "sample-idle":
			idleSet = true
		case "event":
			eventSet = true
		}
	})
	effective := fc.intervalOrDefault(intervalSet, *interval)
	idle := *sampleIdle
	if !idleSet {
		idle = fc.SampleIdle
	}
	name := *eventName
	if !eventSet && fc.EventName != "" {
		name = fc.EventName
	}

	rec := newTableRecorder(os.Stdout)
	args := wallclock.Arguments{WallInterval: effective, EventName: name}

	opts := []wallclock.Option{
		wallclock.WithArguments(args),
		wallclock.WithSampleIdle(idle),
		wallclock.WithRecorder(rec),
	}

	if err := wallclock.Start(opts...); err != nil {
		log.WithError(err).Fatal("starting wall-clock sampler")
	}
	log.Infof("wall-clock sampler started: interval=%s sample_idle=%v event=%s", effective, idle, name)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var timeout <-chan time.Time
	if *duration > 0 {
		timer := time.NewTimer(*duration)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case <-stop:
			log.Info("received interrupt, stopping")
			wallclock.Stop()
			rec.render()
			return
		case <-timeout:
			log.Info("duration elapsed, stopping")
			wallclock.Stop()
			rec.render()
			return
		case <-ticker.C:
			rec.render()
		}
	}
}

// tableRecorder accumulates samples and renders them as a lipgloss
// table, the way danpilch-umd's output.Formatter renders USE-method
// checks to a terminal.
type tableRecorder struct {
	mu      sync.Mutex
	writer  *os.File
	samples []sampleRow
	count   uint64
}

type sampleRow struct {
	pc         uintptr
	state      wallclock.ThreadState
	intervalNS int64
}

func newTableRecorder(w *os.File) *tableRecorder {
	return &tableRecorder{writer: w}
}

func (r *tableRecorder) RecordSample(ctx handshake.CapturedContext, intervalNS int64, _ wallclock.EventKind, event wallclock.ExecutionEvent, _ uintptr) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	row := sampleRow{pc: ctx.PC, state: event.ThreadState, intervalNS: intervalNS}
	r.samples = append(r.samples, row)
	const maxRows = 20
	if len(r.samples) > maxRows {
		r.samples = r.samples[len(r.samples)-maxRows:]
	}
	return r.count, nil
}

func (r *tableRecorder) render() {
	r.mu.Lock()
	rows := make([]sampleRow, len(r.samples))
	copy(rows, r.samples)
	total := r.count
	r.mu.Unlock()

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	stateStyles := map[wallclock.ThreadState]lipgloss.Style{
		wallclock.StateRunning:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		wallclock.StateSleeping: lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		wallclock.StateUnknown:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}

	data := make([][]string, len(rows))
	for i, row := range rows {
		style := stateStyles[row.state]
		data[i] = []string{
			fmt.Sprintf("%#x", row.pc),
			style.Render(row.state.String()),
			time.Duration(row.intervalNS).String(),
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(r, c int) lipgloss.Style {
			if r == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("PC", "STATE", "INTERVAL").
		Rows(data...)

	fmt.Fprintf(r.writer, "\nsamples recorded: %d\n%s\n", total, t)
}
