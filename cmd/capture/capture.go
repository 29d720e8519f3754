// Package capture implements the capture command: a WAV file read through
// an event driven capture client, reporting the per channel peak level.
package capture

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tphakala/go-audioclient/internal/app"
	"github.com/tphakala/go-audioclient/internal/audioclient"
	"github.com/tphakala/go-audioclient/internal/device"
	"github.com/tphakala/go-audioclient/internal/engine"
	"github.com/tphakala/go-audioclient/internal/engine/soft"
	"github.com/tphakala/go-audioclient/internal/errors"
	"github.com/tphakala/go-audioclient/internal/logger"
)

// Options of a capture run
type Options struct {
	In       string
	Device   string        // hardware device, used instead of In
	Duration time.Duration // capture length for hardware devices
}

// Result summarises a capture run
type Result struct {
	Frames          uint64
	Packets         int
	Discontinuities int
	PeakDBFS        []float64
}

// Command creates the capture command
func Command(provider func() *app.Context) *cobra.Command {
	opts := Options{}
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture audio and report its peak levels",
		Long:  "Drive a capture client in event mode on the software engine with a WAV file or a hardware device as the source.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := provider()
			return a.RunWithMetrics(cmd.Context(), func(ctx context.Context) error {
				res, err := Run(ctx, a, opts)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				p := message.NewPrinter(language.English)
				p.Fprintf(out, "captured %d frames in %d packets (%d discontinuities)\n",
					res.Frames, res.Packets, res.Discontinuities)
				for i, db := range res.PeakDBFS {
					p.Fprintf(out, "  channel %d peak %.1f dBFS\n", i, db)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.In, "in", "", "Input WAV file")
	cmd.Flags().StringVar(&opts.Device, "device", "", "Capture from a hardware device by id or name (\"default\" for the system default)")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 5*time.Second, "Capture length for hardware devices")
	cmd.MarkFlagsMutuallyExclusive("in", "device")
	cmd.MarkFlagsOneRequired("in", "device")

	return cmd
}

// source is a capture endpoint plus its end condition
type source struct {
	soft.Endpoint
	done func() bool
}

func openSource(a *app.Context, opts Options) (*source, func(), error) {
	if opts.Device == "" {
		src, err := device.OpenWAVSource("wav-in", opts.In)
		if err != nil {
			return nil, nil, err
		}
		return &source{Endpoint: src, done: src.Exhausted}, func() {}, nil
	}

	if opts.Duration <= 0 {
		return nil, nil, errors.Newf("capture duration must be positive").
			Category(errors.CategoryValidation).
			Context("duration", opts.Duration.String()).
			Build()
	}
	host, err := device.NewHost()
	if err != nil {
		return nil, nil, err
	}
	info, err := host.Find(engine.Capture, opts.Device)
	if err != nil {
		_ = host.Close()
		return nil, nil, err
	}
	s := a.Settings.Engine
	mix := engine.NewPCM(uint32(s.SampleRate), uint16(s.Channels), uint16(s.BitsPerSample))
	deadline := time.Now().Add(opts.Duration)
	return &source{
		Endpoint: host.Source(info, *mix),
		done:     func() bool { return time.Now().After(deadline) },
	}, func() { _ = host.Close() }, nil
}

// Run captures until the source ends and the stream is drained
func Run(ctx context.Context, a *app.Context, opts Options) (*Result, error) {
	if opts.In == "" && opts.Device == "" {
		return nil, errors.Newf("input file or device is required").
			Category(errors.CategoryValidation).
			Build()
	}

	log := a.Log.Module("capture")
	s := a.Settings.Engine

	src, cleanup, err := openSource(a, opts)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	defer func() { _ = src.Close() }()
	mix := src.MixFormat()

	eng := a.NewEngine()
	if err := eng.AddEndpoint(src.Endpoint); err != nil {
		return nil, err
	}

	client := audioclient.New(eng, a.DeviceID(), engine.Capture, a.ClientOptions()...)
	defer client.Release()

	if err := client.Initialize(engine.Shared, engine.FlagEventCallback, s.BufferDuration, s.Period, &mix, uuid.Nil); err != nil {
		return nil, err
	}
	ev := engine.NewEvent()
	if err := client.SetEventHandle(ev); err != nil {
		return nil, err
	}

	svc, err := client.GetService(audioclient.IIDCaptureClient)
	if err != nil {
		return nil, err
	}
	cc := svc.(*audioclient.CaptureClient)
	defer cc.Release()

	meter := newPeakMeter(&mix)
	res := &Result{}

	drain := func() error {
		for {
			next, err := cc.GetNextPacketSize()
			if err != nil {
				return err
			}
			if next == 0 {
				return nil
			}
			pkt, err := cc.GetBuffer()
			if err != nil {
				return err
			}
			if pkt.Flags&engine.BufferFlagDataDiscontinuity != 0 {
				res.Discontinuities++
			}
			meter.add(pkt.Data)
			res.Frames += uint64(pkt.Frames)
			res.Packets++
			if err := cc.ReleaseBuffer(pkt.Frames); err != nil {
				return err
			}
		}
	}

	if err := client.Start(); err != nil {
		return nil, err
	}
	log.Info("capture started",
		logger.String("device", src.Name()),
		logger.String("format", mix.String()))

	for {
		if err := ev.Wait(ctx); err != nil {
			_ = client.Stop()
			return res, err
		}
		// checked before draining so the last period is not lost
		exhausted := src.done()
		if err := drain(); err != nil {
			_ = client.Stop()
			return res, err
		}
		if exhausted {
			break
		}
	}

	if err := client.Stop(); err != nil {
		return res, err
	}
	res.PeakDBFS = meter.dBFS()
	log.Info("capture finished",
		logger.Uint64("frames", res.Frames),
		logger.Int("packets", res.Packets),
		logger.Int("discontinuities", res.Discontinuities))
	return res, nil
}
