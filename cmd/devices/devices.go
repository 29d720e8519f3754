// Package devices implements the devices command
package devices

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tphakala/go-audioclient/internal/app"
	"github.com/tphakala/go-audioclient/internal/device"
	"github.com/tphakala/go-audioclient/internal/logger"
)

// Command creates the devices command
func Command(provider func() *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List hardware audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := device.ListDevices()
			if err != nil {
				provider().Log.Error("device enumeration failed", logger.Error(err))
				return err
			}
			return Print(cmd.OutOrStdout(), infos)
		},
	}
}

// Print writes infos as a table
func Print(w io.Writer, infos []device.Info) error {
	if len(infos) == 0 {
		_, err := fmt.Fprintln(w, "no audio devices found")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FLOW\tDEFAULT\tNAME\tID")
	for _, info := range infos {
		def := ""
		if info.Default {
			def = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.Flow, def, info.Name, info.ID)
	}
	return tw.Flush()
}
