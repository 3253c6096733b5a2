package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/tvoverlay/internal/config"
	"github.com/jmylchreest/tvoverlay/internal/theme"
)

var themesOpts struct {
	format     string
	daemonConf string
}

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "List available overlay themes",
	Long: `List the bundled themes and the user themes in the overlayd theme
directory. The theme overlayd is configured to use is marked active.`,
	Args: cobra.NoArgs,
	RunE: runThemes,
}

func init() {
	rootCmd.AddCommand(themesCmd)

	themesCmd.Flags().StringVarP(&themesOpts.format, "format", "f", "plain",
		"Output format (plain, json, yaml)")
	themesCmd.Flags().StringVar(&themesOpts.daemonConf, "daemon-config", "",
		"Path to the overlayd config (default: ~/.config/tvoverlay/overlayd.toml)")
}

// themeRow is one line of themes output.
type themeRow struct {
	theme.Info `yaml:",inline"`
	Active     bool `json:"active" yaml:"active"`
}

func runThemes(cmd *cobra.Command, args []string) error {
	dcfg, err := config.LoadDaemonConfig(themesOpts.daemonConf)
	if err != nil {
		return err
	}

	themes, err := theme.List(dcfg.ThemeDir())
	if err != nil {
		return fmt.Errorf("failed to list themes: %w", err)
	}
	rows := themeRows(themes, dcfg.Theme.Name)

	w := cmd.OutOrStdout()
	switch themesOpts.format {
	case "plain":
		return writeThemes(w, rows)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(rows)
	default:
		return fmt.Errorf("unknown format %q (use plain, json or yaml)", themesOpts.format)
	}
}

// themeRows marks the configured theme, or the default when none is set.
func themeRows(themes []theme.Info, configured string) []themeRow {
	if configured == "" {
		configured = theme.DefaultThemeName
	}
	rows := make([]themeRow, len(themes))
	for i, t := range themes {
		rows[i] = themeRow{Info: t, Active: t.Name == configured}
	}
	return rows
}

func writeThemes(w io.Writer, rows []themeRow) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range rows {
		marker := " "
		if r.Active {
			marker = "*"
		}
		source := r.Path
		if source == "" {
			source = "(bundled)"
		}
		fmt.Fprintf(tw, "%s %s\t%s\n", marker, r.Name, source)
	}
	return tw.Flush()
}
