// Package info implements the info command: build details and what the
// configured software engine offers clients.
package info

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tphakala/go-audioclient/internal/app"
	"github.com/tphakala/go-audioclient/internal/audioclient"
	"github.com/tphakala/go-audioclient/internal/conf"
	"github.com/tphakala/go-audioclient/internal/device"
	"github.com/tphakala/go-audioclient/internal/engine"
	"github.com/tphakala/go-audioclient/internal/engine/soft"
	"github.com/tphakala/go-audioclient/internal/logger"
)

// FlowReport describes the default device of one flow
type FlowReport struct {
	Flow      engine.Flow
	Mix       *engine.Format
	Period    engine.DevicePeriod
	Requested *engine.Format
	Supported bool
	Closest   *engine.Format
}

// Report is what the info command prints
type Report struct {
	Build string
	Flows []FlowReport
}

// Command creates the info command
func Command(provider func() *app.Context) *cobra.Command {
	var writeDefault string
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show build and engine information",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := provider()
			if writeDefault != "" {
				if err := conf.WriteDefault(writeDefault); err != nil {
					return err
				}
				a.Log.Info("default configuration written", logger.String("path", writeDefault))
			}
			r, err := Collect(a)
			if err != nil {
				return err
			}
			return r.Print(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&writeDefault, "write-default", "", "Write a default configuration file to this path")
	return cmd
}

// Collect queries a software engine with null endpoints running the
// default mix format, asking whether the configured stream format fits
func Collect(a *app.Context) (*Report, error) {
	s := a.Settings.Engine
	requested := engine.NewPCM(uint32(s.SampleRate), uint16(s.Channels), uint16(s.BitsPerSample))
	mix := engine.NewFloat32(conf.DefaultSampleRate, conf.DefaultChannels)

	eng := a.NewEngine()
	if err := eng.AddEndpoint(device.NewNullSink("null-out", *mix)); err != nil {
		return nil, err
	}
	if err := eng.AddEndpoint(device.NewNullSource("null-in", *mix)); err != nil {
		return nil, err
	}

	r := &Report{Build: a.Build.String()}
	for _, flow := range []engine.Flow{engine.Render, engine.Capture} {
		fr, err := collectFlow(a, eng, flow, requested)
		if err != nil {
			return nil, err
		}
		r.Flows = append(r.Flows, *fr)
	}
	return r, nil
}

func collectFlow(a *app.Context, eng *soft.Engine, flow engine.Flow, requested *engine.Format) (*FlowReport, error) {
	client := audioclient.New(eng, a.DeviceID(), flow, a.ClientOptions()...)
	defer client.Release()

	mix, err := client.GetMixFormat()
	if err != nil {
		return nil, err
	}
	period, err := client.GetDevicePeriod()
	if err != nil {
		return nil, err
	}
	fr := &FlowReport{Flow: flow, Mix: mix, Period: period, Requested: requested}

	closest, err := client.IsFormatSupported(engine.Shared, requested)
	switch {
	case err == nil:
		fr.Supported = true
		fr.Closest = closest
	case closest != nil:
		fr.Closest = closest
	default:
		a.Log.Debug("format not supported",
			logger.String("flow", flow.String()),
			logger.String("format", requested.String()),
			logger.Error(err))
	}
	return fr, nil
}

// Print writes the report in a human readable form
func (r *Report) Print(w io.Writer) error {
	if _, err := fmt.Fprintln(w, r.Build); err != nil {
		return err
	}
	for _, f := range r.Flows {
		fmt.Fprintf(w, "%s default device\n", f.Flow)
		fmt.Fprintf(w, "  mix format:  %s\n", f.Mix)
		fmt.Fprintf(w, "  period:      default %s, minimum %s\n", f.Period.Default, f.Period.Minimum)
		status := "not supported"
		if f.Supported {
			status = "supported"
		}
		fmt.Fprintf(w, "  %s: %s\n", f.Requested, status)
		if f.Closest != nil {
			fmt.Fprintf(w, "  closest:     %s\n", f.Closest)
		}
	}
	return nil
}
