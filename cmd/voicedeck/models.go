package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/voicedeck/internal/assets"
	"github.com/dgnsrekt/voicedeck/internal/modes"
	"github.com/dgnsrekt/voicedeck/internal/studio"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect and download model bundles",
}

var modelsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which mode models are on disk",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		var rows [][]string
		for _, mode := range modes.Catalog {
			for _, st := range a.registry.Status(mode) {
				rows = append(rows, []string{mode.Label, st.AssetID, stateLabel(st), st.Path})
			}
		}
		styles := studio.NewStyles(studio.DefaultTheme)
		fmt.Fprintln(cmd.OutOrStdout(), styles.Table([]string{"Mode", "Asset", "State", "Path"}, rows))
		return nil
	},
}

var modelsFetchCmd = &cobra.Command{
	Use:   "fetch <mode>",
	Short: "Download the model of a mode (1, 2, 3 or a mode name)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := modes.Parse(args[0])
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext(a.logger, nil)
		defer cancel()

		out := cmd.OutOrStdout()
		var file string
		err = a.registry.Ensure(ctx, mode, func(p assets.Progress) {
			if p.File != file {
				file = p.File
				fmt.Fprintf(out, "%s %s\n", p.AssetID, p.File)
			}
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s ready\n", mode.Label)
		return nil
	},
}

func stateLabel(st assets.State) string {
	switch {
	case st.Verified:
		return "verified"
	case st.Present:
		return "present"
	default:
		return "missing"
	}
}

func init() {
	modelsCmd.AddCommand(modelsStatusCmd, modelsFetchCmd)
}
