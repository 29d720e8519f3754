// Package render implements the render command: a sine tone played through
// an event driven render client into a WAV file.
package render

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
	"github.com/tphakala/go-audioclient/internal/session"
)

// Options of a render run
type Options struct {
	Freq     float64
	Duration time.Duration
	Out      string
	Device   string // hardware device, empty renders to Out
	Volume   float32
}

// Command creates the render command
func Command(provider func() *app.Context) *cobra.Command {
	opts := Options{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a sine tone to a WAV file or device",
		Long:  "Drive a render client in event mode on the software engine, writing a sine tone into a WAV file sink.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := provider()
			return a.RunWithMetrics(cmd.Context(), func(ctx context.Context) error {
				frames, err := Run(ctx, a, opts)
				if err != nil {
					return err
				}
				target := opts.Out
				if opts.Device != "" {
					target = "device " + opts.Device
				}
				message.NewPrinter(language.English).Fprintf(cmd.OutOrStdout(), "rendered %d frames to %s\n", frames, target)
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&opts.Freq, "freq", 440, "Tone frequency in Hz")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 2*time.Second, "Length of the tone")
	cmd.Flags().StringVar(&opts.Out, "out", "tone.wav", "Output WAV file")
	cmd.Flags().StringVar(&opts.Device, "device", "", "Play on a hardware device by id or name instead (\"default\" for the system default)")
	cmd.Flags().Float32Var(&opts.Volume, "volume", 1, "Session master volume between 0.0 and 1.0")

	return cmd
}

// Run renders the tone and returns the number of frames queued
func Run(ctx context.Context, a *app.Context, opts Options) (uint64, error) {
	if opts.Freq <= 0 || opts.Duration <= 0 {
		return 0, errors.Newf("frequency and duration must be positive").
			Category(errors.CategoryValidation).
			Context("freq", opts.Freq).
			Context("duration", opts.Duration.String()).
			Build()
	}

	log := a.Log.Module("render")
	s := a.Settings.Engine
	mix := engine.NewPCM(uint32(s.SampleRate), uint16(s.Channels), uint16(s.BitsPerSample))

	eng := a.NewEngine()
	var sink soft.Endpoint = device.NewWAVSink("wav-out", opts.Out, *mix)
	if opts.Device != "" {
		host, err := device.NewHost()
		if err != nil {
			return 0, err
		}
		defer func() { _ = host.Close() }()
		info, err := host.Find(engine.Render, opts.Device)
		if err != nil {
			return 0, err
		}
		sink = host.Sink(info, *mix)
	}
	if err := eng.AddEndpoint(sink); err != nil {
		return 0, err
	}

	client := audioclient.New(eng, a.DeviceID(), engine.Render, a.ClientOptions()...)
	defer client.Release()

	if err := client.Initialize(engine.Shared, engine.FlagEventCallback, s.BufferDuration, s.Period, mix, uuid.Nil); err != nil {
		return 0, err
	}
	ev := engine.NewEvent()
	if err := client.SetEventHandle(ev); err != nil {
		return 0, err
	}

	svc, err := client.GetService(audioclient.IIDRenderClient)
	if err != nil {
		return 0, err
	}
	rc := svc.(*audioclient.RenderClient)
	defer rc.Release()

	if opts.Volume != 1 {
		if err := setMasterVolume(client, opts.Volume); err != nil {
			return 0, err
		}
	}

	size, err := client.GetBufferSize()
	if err != nil {
		return 0, err
	}

	gen := newTone(opts.Freq, mix)
	total := mix.FramesFor(opts.Duration)
	var written uint32

	fill := func() error {
		padding, err := client.GetCurrentPadding()
		if err != nil {
			return err
		}
		frames := min(size-padding, total-written)
		if frames == 0 {
			return nil
		}
		buf, err := rc.GetBuffer(frames)
		if err != nil {
			return err
		}
		gen.fill(buf, frames)
		if err := rc.ReleaseBuffer(frames, 0); err != nil {
			return err
		}
		written += frames
		return nil
	}

	if err := fill(); err != nil {
		return 0, err
	}
	if err := client.Start(); err != nil {
		return 0, err
	}
	log.Info("render started",
		logger.Float64("freq", opts.Freq),
		logger.Duration("duration", opts.Duration),
		logger.Uint32("buffer_frames", size))

	for written < total {
		if err := ev.Wait(ctx); err != nil {
			_ = client.Stop()
			return uint64(written), err
		}
		if err := fill(); err != nil {
			_ = client.Stop()
			return uint64(written), err
		}
	}

	// let the engine play out what is queued
	for {
		padding, err := client.GetCurrentPadding()
		if err != nil || padding == 0 {
			break
		}
		if err := ev.Wait(ctx); err != nil {
			break
		}
	}

	if err := client.Stop(); err != nil {
		return uint64(written), err
	}
	log.Info("render finished", logger.Uint32("frames", written))
	return uint64(written), nil
}

func setMasterVolume(client *audioclient.Client, level float32) error {
	svc, err := client.GetService(audioclient.IIDSimpleVolume)
	if err != nil {
		return err
	}
	simple := svc.(*session.SimpleVolume)
	defer simple.Release()
	return simple.SetMasterVolume(level)
}
