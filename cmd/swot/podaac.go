package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/745739396/SWOT-program/internal/podaac"
)

func newPodaacCmd(c *cli) *cobra.Command {
	var req podaac.Request

	cmd := &cobra.Command{
		Use:   "podaac",
		Short: "Download through the podaac-data-downloader tool",
		Example: `  swot podaac -c SWOT_L2_HR_LakeSP_D -d data_downloads/downloader_data \
    --start 2025-05-27T00:00:00Z --end 2025-05-28T00:00:00Z \
    -b 116,28.9,116.4,29.2 -g '*Obs_033_228*'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.load()
			if err != nil {
				return err
			}
			ctx, cancel := c.signalContext(cmd.Context())
			defer cancel()

			req.Collection = cfg.Collection
			req.OutputDir = cfg.Dir
			req.StartDate = cfg.Start
			req.EndDate = cfg.End
			req.BoundingBox = cfg.BoundingBox
			req.GranuleName = cfg.GranuleName
			req.Limit = cfg.Limit
			if cmd.Flags().Changed("provider") {
				req.Provider = cfg.Provider
			}

			invoker := podaac.NewInvoker(logger, podaac.Options{
				Tool:         cfg.Tool,
				StrictBounds: cfg.StrictBounds,
			})
			result := invoker.Run(ctx, req)

			switch result.Kind {
			case podaac.Succeeded:
				fmt.Fprintln(c.stdout, "[swot] Download complete")
				return nil
			case podaac.Invalid:
				for _, p := range result.Problems {
					fmt.Fprintf(c.stderr, "[swot] %s\n", p)
				}
				return exit(ExitValidationFailed, nil)
			case podaac.ToolNotFound:
				return exit(ExitToolFailed, fmt.Errorf("%s not found, check that it is installed: %w", cfg.Tool, result.Err))
			case podaac.ExitFailure:
				return exit(ExitToolFailed, fmt.Errorf("%s exited with status %d", cfg.Tool, result.ExitCode))
			default:
				return exit(ExitGeneralError, result.Err)
			}
		},
	}

	c.addQueryFlags(cmd)
	f := cmd.Flags()
	f.StringVarP(&c.override.Dir, "dir", "d", "", "download directory, created if missing (default data_downloads)")
	f.StringVar(&c.override.Tool, "tool", "", "downloader executable (default "+podaac.DefaultTool+")")
	f.BoolVar(&c.override.StrictBounds, "strict-bounds", false, "reject a malformed bounding box instead of warning")
	f.StringVarP(&req.Extensions, "extensions", "e", "", "regular expression on file extensions")
	f.BoolVarP(&req.Force, "force", "f", false, "download even if the file already exists")
	f.BoolVar(&req.Verbose, "verbose", false, "verbose tool output")
	f.BoolVar(&req.DryRun, "dry-run", false, "list granules without downloading")
	f.StringVar(&req.ProcessCmd, "process", "", "command run on each downloaded file")
	f.IntSliceVar(&req.Cycles, "cycle", nil, "cycle number, repeatable")
	f.IntVar(&req.Offset, "offset", 0, "time offset in hours")
	f.StringVar(&req.DirLayout, "layout", "", "directory layout: cycle, doy, ymd or year")
	return cmd
}
