// Command cellquant analyzes every frame of a z-stack directory and
// writes per-frame counts, proximity and synapse bins.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"cellquant/internal/config"
	"cellquant/internal/frame"
	"cellquant/internal/logger"
	"cellquant/internal/maskprep"
	"cellquant/internal/overlay"
	"cellquant/internal/report"
	"cellquant/internal/version"
	"cellquant/internal/zstack"
)

const component = "CLI"

const (
	exitOK          = 0
	exitConfig      = 1
	exitAllFailed   = 2
	exitInterrupted = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	dir := flag.String("dir", "", "Z-stack directory holding <token>_zNNc1+2+3.tif frames")
	cfgPath := flag.String("config", "", "YAML configuration file (defaults when empty)")
	outDir := flag.String("out", "", "Output directory (overrides output.dir)")
	workers := flag.Int("workers", 0, "Parallel frame workers (overrides workers)")
	overlays := flag.Bool("overlays", false, "Write annotated overlay PNGs per frame")
	level := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return exitOK
	}
	if *dir == "" {
		fmt.Println("Usage: cellquant -dir <stack> [-config run.yaml] [-out dir] [-workers N] [-overlays] [-log-level info]")
		return exitConfig
	}

	log := logger.NewConsoleLogger(logger.ParseLevel(*level))

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			log.Error(component, err, map[string]interface{}{"config": *cfgPath})
			return exitConfig
		}
		cfg = loaded
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *overlays {
		cfg.Output.Overlays = true
	}
	if err := cfg.Validate(); err != nil {
		log.Error(component, err, nil)
		return exitConfig
	}

	pipeline, err := frame.NewPipeline(frame.OptionsFromConfig(cfg), log)
	if err != nil {
		log.Error(component, err, nil)
		return exitConfig
	}
	prep, err := maskprep.New(cfg.Preprocess)
	if err != nil {
		log.Error(component, err, nil)
		return exitConfig
	}

	frames, err := zstack.Discover(*dir)
	if err != nil {
		log.Error(component, err, map[string]interface{}{"dir": *dir})
		return exitConfig
	}
	if len(frames) == 0 {
		log.Warning(component, "no frames found", map[string]interface{}{"dir": *dir})
		return exitConfig
	}
	reportGaps(log, frames)

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		log.Error(component, fmt.Errorf("create output dir: %w", err), nil)
		return exitConfig
	}

	var sinks []frame.Sink

	if cfg.Output.CSV != "" {
		f, err := os.Create(outputPath(cfg, cfg.Output.CSV))
		if err != nil {
			log.Error(component, fmt.Errorf("create csv: %w", err), nil)
			return exitConfig
		}
		defer f.Close()
		w := report.NewCSVWriter(f, cfg.Synapse.BinWidth, cfg.Synapse.BinCount)
		defer flushCSV(log, w)
		sinks = append(sinks, w)
	}

	var (
		store *report.Store
		runID string
	)
	if cfg.Output.SQLite != "" {
		store, err = report.OpenStore(outputPath(cfg, cfg.Output.SQLite), log)
		if err != nil {
			log.Error(component, err, nil)
			return exitConfig
		}
		defer store.Close()
		settings, err := cfg.Marshal()
		if err != nil {
			log.Error(component, fmt.Errorf("encode run settings: %w", err), nil)
		}
		runID, err = store.BeginRun(*dir, settings)
		if err != nil {
			log.Error(component, err, nil)
			return exitConfig
		}
		sinks = append(sinks, store.Sink(runID))
	}

	var collected frame.Collector
	sinks = append(sinks, &collected)

	runner := &frame.Runner{
		Pipeline: pipeline,
		Load:     loader(prep),
		Sink:     frame.MultiSink(sinks...),
		Workers:  cfg.Workers,
		Log:      log,
	}
	if cfg.Output.Overlays {
		ovDir := filepath.Join(cfg.Output.Dir, "overlays")
		if err := os.MkdirAll(ovDir, 0o755); err != nil {
			log.Error(component, fmt.Errorf("create overlay dir: %w", err), nil)
			return exitConfig
		}
		runner.Inspect = func(job frame.Job, m frame.Masks, a *frame.Analysis) error {
			path := filepath.Join(ovDir, job.ID+".png")
			return overlay.Write(path, a, m.Nuclear.Rows(), m.Nuclear.Cols(), overlay.DefaultOptions())
		}
	}

	jobs := make([]frame.Job, len(frames))
	for i, f := range frames {
		jobs[i] = frame.Job{ID: f.ID, Depth: f.Depth, Path: f.Path}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sum, runErr := runner.Run(ctx, jobs)

	if store != nil {
		if err := store.FinishRun(runID, sum); err != nil {
			log.Error(component, err, map[string]interface{}{"run": runID})
		}
	}

	if cfg.Output.Plot != "" && len(collected.Records) > 0 {
		low, high, err := report.SumBins(collected.Records)
		if err == nil {
			labels := report.BinLabels(cfg.Synapse.BinWidth, cfg.Synapse.BinCount)
			err = report.SaveHistogram(outputPath(cfg, cfg.Output.Plot), filepath.Base(*dir), labels, low, high)
		}
		if err != nil {
			log.Error(component, err, nil)
		}
	}

	for _, fe := range sum.Errors {
		fmt.Fprintf(os.Stderr, "  %v\n", fe)
	}
	fmt.Printf("Processed %d of %d frames in %s (%d failed)\n",
		sum.Processed, len(jobs), sum.Elapsed.Round(time.Millisecond), sum.Failed)

	switch {
	case runErr != nil && errors.Is(runErr, context.Canceled):
		log.Warning(component, "interrupted", nil)
		return exitInterrupted
	case runErr != nil:
		log.Error(component, runErr, nil)
		return exitConfig
	case sum.AllFailed():
		return exitAllFailed
	}
	return exitOK
}

func loader(prep *maskprep.Preprocessor) frame.LoadFunc {
	return func(_ context.Context, job frame.Job) (frame.Masks, error) {
		img, err := zstack.Load(job.Path)
		if err != nil {
			return frame.Masks{}, &frame.InputError{FrameID: job.ID, Reason: "unreadable frame", Err: err}
		}
		m, err := prep.FromImage(img)
		if err != nil {
			return frame.Masks{}, &frame.InputError{FrameID: job.ID, Reason: "preprocessing", Err: err}
		}
		return frame.Masks{
			ID:          job.ID,
			Depth:       job.Depth,
			Nuclear:     m.Nuclear,
			Cross:       m.Cross,
			SynapseLow:  m.SynapseLow,
			SynapseHigh: m.SynapseHigh,
		}, nil
	}
}

func flushCSV(log logger.Logger, w *report.CSVWriter) {
	if err := w.Flush(); err != nil {
		log.Error(component, fmt.Errorf("flush csv: %w", err), nil)
	}
}

// reportGaps warns about depths absent from an otherwise numbered stack.
func reportGaps(log logger.Logger, frames []zstack.Frame) {
	gaps, err := zstack.Missing(frames)
	if err != nil {
		log.Error(component, err, nil)
		return
	}
	for _, g := range gaps {
		log.Warning(component, "missing frame", map[string]interface{}{"frame": g.ID, "path": g.Path})
	}
}

func outputPath(cfg *config.Config, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(cfg.Output.Dir, name)
}
