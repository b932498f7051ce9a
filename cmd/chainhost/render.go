package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/justyntemme/vst3host/pkg/audio"
	"github.com/justyntemme/vst3host/pkg/debug"
	"github.com/justyntemme/vst3host/pkg/dsp"
	"github.com/justyntemme/vst3host/pkg/host"
	"github.com/justyntemme/vst3host/pkg/host/chain"
)

type renderOptions struct {
	blocks   int
	freq     float64
	levelDB  float64
	channels int
}

// renderSummary aggregates per-block analysis.
type renderSummary struct {
	blocks  int
	faults  int
	peak    float32
	rmsSum  float64
	clipped int
	nans    int
	infs    int
}

func (s *renderSummary) add(res debug.AnalysisResult, faulted bool) {
	s.blocks++
	if faulted {
		s.faults++
	}
	if res.Peak > s.peak {
		s.peak = res.Peak
	}
	s.rmsSum += float64(res.RMS)
	s.clipped += res.ClippedSamples
	s.nans += res.NaNCount
	s.infs += res.InfCount
}

func (s *renderSummary) meanRMS() float32 {
	if s.blocks == 0 {
		return 0
	}
	return float32(s.rmsSum / float64(s.blocks))
}

type renderBlock struct {
	res     debug.AnalysisResult
	faulted bool
}

func newRenderCmd(a *app) *cobra.Command {
	opts := renderOptions{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a test tone through the saved chain and report levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := coordinator(cmd)
			e, err := a.openChain(ctx)
			if err != nil {
				return err
			}
			if err := e.Prepare(a.cfg.SampleRate, a.cfg.BlockSize); err != nil {
				return err
			}
			defer e.Release()

			sum, err := render(ctx, e, a.cfg.SampleRate, a.cfg.BlockSize, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "blocks:   %d (%d faulted)\n", sum.blocks, sum.faults)
			fmt.Fprintf(out, "peak:     %.2f dB\n", dsp.LinearToDb(float64(sum.peak)))
			fmt.Fprintf(out, "rms:      %.2f dB\n", dsp.LinearToDb(float64(sum.meanRMS())))
			if sum.clipped > 0 || sum.nans > 0 || sum.infs > 0 {
				fmt.Fprintf(out, "problems: %d clipped, %d NaN, %d Inf\n", sum.clipped, sum.nans, sum.infs)
			}
			for i, info := range e.Chain() {
				if info.Fault != "" {
					fmt.Fprintf(out, "slot %d (%s) bypassed: %s\n", i, info.Descriptor.Name, info.Fault)
				}
			}
			if p := e.Profiler(); p != nil && p.IsEnabled() {
				fmt.Fprint(out, p.Report())
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.blocks, "blocks", 100, "number of blocks to render")
	cmd.Flags().Float64Var(&opts.freq, "freq", 440, "test tone frequency in Hz")
	cmd.Flags().Float64Var(&opts.levelDB, "level", -12, "test tone level in dBFS")
	cmd.Flags().IntVar(&opts.channels, "channels", 2, "channels in the rendered buffer")
	return cmd
}

// render runs the chain on the calling goroutine and hands analysis to a collector.
func render(ctx context.Context, e *host.Engine, sampleRate float64, blockSize int, opts renderOptions) (renderSummary, error) {
	if opts.blocks <= 0 || opts.channels <= 0 {
		return renderSummary{}, fmt.Errorf("blocks and channels must be positive")
	}
	if opts.freq <= 0 || opts.freq >= sampleRate/2 {
		return renderSummary{}, fmt.Errorf("frequency %.1f Hz outside (0, %.1f)", opts.freq, sampleRate/2)
	}

	g, ctx := errgroup.WithContext(ctx)
	results := make(chan renderBlock, 16)
	var sum renderSummary

	g.Go(func() error {
		for b := range results {
			sum.add(b.res, b.faulted)
		}
		return nil
	})

	err := func() error {
		defer close(results)
		tone := dsp.NewTone(sampleRate, opts.freq, float32(dsp.DbToLinear(opts.levelDB)))
		buf := audio.NewBuffer(opts.channels, blockSize)
		for i := 0; i < opts.blocks; i++ {
			tone.Fill(buf.Channels)
			faulted := false
			if err := e.Process(buf); err != nil {
				if !errors.Is(err, chain.ErrProcessingFault) {
					return err
				}
				faulted = true
			}
			select {
			case results <- renderBlock{res: debug.Analyze(buf), faulted: faulted}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}()
	if werr := g.Wait(); err == nil {
		err = werr
	}
	return sum, err
}
