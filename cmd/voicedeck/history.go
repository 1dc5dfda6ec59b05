package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/voicedeck/internal/studio"
)

var (
	historyLimit int
	historyKeep  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent generations",
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

		h, err := a.history()
		if err != nil {
			return err
		}
		entries, err := h.List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No generations yet.")
			return nil
		}

		rows := make([][]string, len(entries))
		for i, e := range entries {
			voice := e.Speaker
			if e.VoiceName != "" {
				voice = e.VoiceName
			}
			rows[i] = []string{
				e.CreatedAt.Format("2006-01-02 15:04:05"),
				string(e.Mode),
				voice,
				fmt.Sprintf("%.1fs", e.Duration.Seconds()),
				e.OutputPath,
			}
		}
		styles := studio.NewStyles(studio.DefaultTheme)
		fmt.Fprintln(cmd.OutOrStdout(), styles.Table([]string{"Time", "Mode", "Voice", "Length", "Output"}, rows))
		return nil
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop all but the newest entries",
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

		h, err := a.history()
		if err != nil {
			return err
		}
		n, err := h.Prune(cmd.Context(), historyKeep)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", n)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of entries to show (0 for all)")
	historyPruneCmd.Flags().IntVar(&historyKeep, "keep", 100, "entries to keep")
	historyCmd.AddCommand(historyPruneCmd)
}
