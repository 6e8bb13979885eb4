// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"spectro/internal/audio"
	applog "spectro/internal/log"
	"spectro/internal/tui"

	"github.com/spf13/cobra"
)

func (a *app) newListCmd() *cobra.Command {
	var interactive bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available output devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer func() {
				if err := audio.Terminate(); err != nil {
					applog.Warnf("%v", err)
				}
			}()

			if !interactive {
				devices, err := audio.OutputDevices()
				if err != nil {
					return err
				}
				audio.WriteDevices(cmd.OutOrStdout(), devices)
				return nil
			}

			id, ok, err := tui.PickOutputDevice(audio.OutputDevices)
			if err != nil || !ok {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "audio:\n  backend: portaudio\n  output_device: %d\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false,
		"Pick a device interactively and print the matching config snippet")
	return cmd
}
