package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"framelift/internal/media"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe [file...]",
		Short: "Check tool availability and inspect media files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			tools := displayTable("TOOL", "AVAILABLE", "DETAIL")
			unavailable := 0
			for _, binary := range []string{cfg.Tools.FFmpeg, cfg.Tools.FFprobe} {
				capability := media.ProbeTool(cmd.Context(), binary)
				detail := capability.Version
				if !capability.Available {
					unavailable++
					detail = capability.Detail
				}
				tools.AppendRow(table.Row{
					capability.Command,
					yesNo(capability.Available),
					detail,
				})
			}
			fmt.Fprintln(out, tools.Render())

			if len(args) > 0 && unavailable > 0 {
				return fmt.Errorf("cannot inspect files, %d tool(s) unavailable", unavailable)
			}

			if len(args) > 0 {
				files := displayTable("FILE", "DURATION", "AUDIO", "VIDEO", "FORMAT")
				for _, arg := range args {
					absPath, err := filepath.Abs(arg)
					if err != nil {
						return fmt.Errorf("resolve path: %w", err)
					}
					result, err := media.Inspect(cmd.Context(), cfg.Tools.FFprobe, absPath)
					if err != nil {
						files.AppendRow(table.Row{filepath.Base(absPath), "-", "-", "-", err.Error()})
						continue
					}
					duration := time.Duration(result.DurationSeconds() * float64(time.Second)).Round(time.Second)
					files.AppendRow(table.Row{
						filepath.Base(absPath),
						duration.String(),
						yesNo(result.HasAudioStream()),
						yesNo(result.HasVideoStream()),
						result.Format.FormatName,
					})
				}
				files.SetColumnConfigs([]table.ColumnConfig{
					{Name: "DURATION", Align: text.AlignRight, AlignHeader: text.AlignLeft},
				})
				fmt.Fprintln(out, files.Render())
			}

			if unavailable > 0 {
				return fmt.Errorf("%d tool(s) unavailable", unavailable)
			}
			return nil
		},
	}
}
