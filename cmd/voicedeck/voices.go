package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/voicedeck/internal/studio"
	"github.com/dgnsrekt/voicedeck/internal/voices"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "Manage the voice library",
}

// withLibrary runs fn against the voice library.
func withLibrary(fn func(store *voices.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a.voices)
}

var voicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled voices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLibrary(func(store *voices.Store) error {
			var rows [][]string
			for p := range store.List() {
				mark := "—"
				if p.Transcript != "" {
					mark = "✓"
				}
				rows = append(rows, []string{
					p.ID,
					p.Name,
					mark,
					fmt.Sprintf("%.1fs", p.Duration.Seconds()),
					p.CreatedAt.Format("2006-01-02 15:04"),
				})
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved voices.")
				return nil
			}
			styles := studio.NewStyles(studio.DefaultTheme)
			fmt.Fprintln(cmd.OutOrStdout(), styles.Table([]string{"ID", "Name", "Transcript", "Length", "Created"}, rows))
			return nil
		})
	},
}

var voicesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a voice and its audio copy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLibrary(func(store *voices.Store) error {
			report, err := store.Delete(args[0])
			if err != nil {
				return err
			}
			if report.AudioMissing {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: audio for %s was already missing\n", report.Profile.Name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s)\n", report.Profile.Name, report.Profile.ID)
			return nil
		})
	},
}

var voicesRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a voice",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.Join(args[1:], " ")
		return withLibrary(func(store *voices.Store) error {
			p, err := store.Update(args[0], voices.Update{Name: &name})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", p.ID, p.Name)
			return nil
		})
	},
}

var voicesImportCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import <name>.wav + <name>.txt pairs from a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLibrary(func(store *voices.Store) error {
			n, err := store.ImportLegacy(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d voices\n", n)
			return nil
		})
	},
}

func init() {
	voicesCmd.AddCommand(voicesListCmd, voicesDeleteCmd, voicesRenameCmd, voicesImportCmd)
}
