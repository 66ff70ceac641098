package main

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/olehluchkiv/diverify/internal/analyzer"
	"github.com/olehluchkiv/diverify/internal/config"
	"github.com/olehluchkiv/diverify/internal/diagram"
	"github.com/olehluchkiv/diverify/internal/pipeline"
	"github.com/olehluchkiv/diverify/internal/report"
	"github.com/olehluchkiv/diverify/internal/server"
)

var (
	outputFormats = []string{"text", "json"}
	directions    = []string{"LR", "TB", "RL", "BT"}
)

func newCheckCmd(a *app) *cobra.Command {
	var (
		format string
		filter string
		all    bool
	)
	cmd := &cobra.Command{
		Use:   "check <manifest|dir|github-url>",
		Short: "Report unresolvable services; exits 1 when there are any",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(outputFormats, format) {
				return fmt.Errorf("invalid output format: %s. Valid options: %v", format, outputFormats)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pipeline.Options{
				Input:  args[0],
				Filter: analyzer.FilterOptions{Prefix: filter},
			}
			run, cleanup, err := pipeline.Execute(cmd.Context(), opts, a.logger)
			if err != nil {
				return err
			}
			defer cleanup()

			rep := run.Report()
			out := cmd.OutOrStdout()
			if format == "json" {
				err = report.WriteJSON(out, rep)
			} else {
				err = report.WriteText(out, rep, report.TextOptions{ShowValid: all})
			}
			if err != nil {
				return err
			}
			if !rep.OK() {
				return errFindings
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text, json)")
	cmd.Flags().StringVar(&filter, "filter", "", "only report services whose package path has this prefix")
	cmd.Flags().BoolVar(&all, "all", false, "also list resolvable services and typed factories")
	return cmd
}

func newDiagramCmd(a *app) *cobra.Command {
	var (
		output      string
		filter      string
		onlyInvalid bool
		direction   string
	)
	cmd := &cobra.Command{
		Use:   "diagram <manifest|dir|github-url>",
		Short: "Print the registration graph as a Mermaid flowchart",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(directions, direction) {
				return fmt.Errorf("invalid direction: %s. Valid options: %v", direction, directions)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pipeline.Options{
				Input:  args[0],
				Filter: analyzer.FilterOptions{Prefix: filter, OnlyInvalid: onlyInvalid},
			}
			run, cleanup, err := pipeline.Execute(cmd.Context(), opts, a.logger)
			if err != nil {
				return err
			}
			defer cleanup()

			diagramOpts := diagram.DefaultDiagramOptions()
			diagramOpts.Direction = direction
			if output == "" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), diagram.GenerateMermaid(run.Result, diagramOpts))
				return err
			}

			// File output: include %%{init:}%% for standalone .mmd rendering
			diagramOpts.IncludeInit = true
			content := diagram.GenerateMermaid(run.Result, diagramOpts)
			if err := os.WriteFile(output, []byte(content+"\n"), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote diagram to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the diagram to a file instead of stdout")
	cmd.Flags().StringVar(&filter, "filter", "", "only draw services whose package path has this prefix")
	cmd.Flags().BoolVar(&onlyInvalid, "only-invalid", false, "only draw unresolvable services")
	cmd.Flags().StringVar(&direction, "direction", "LR", "flowchart direction (LR, TB, RL, BT)")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var (
		port      int
		noBrowser bool
		watch     bool
		filter    string
	)
	cmd := &cobra.Command{
		Use:   "serve <manifest|dir|github-url>",
		Short: "Serve an interactive report and diagram over HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("port") {
				port = a.cfg.Port
			}
			if !cmd.Flags().Changed("no-browser") {
				noBrowser = a.cfg.NoBrowser
			}

			opts := pipeline.Options{
				Input:  args[0],
				Filter: analyzer.FilterOptions{Prefix: filter},
			}
			srv, err := server.New(func(ctx context.Context) (*pipeline.Run, func(), error) {
				return pipeline.Execute(ctx, opts, a.logger)
			}, a.logger)
			if err != nil {
				return err
			}
			if err := srv.Refresh(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Starting server on http://localhost:%d\n", port)
			return srv.Serve(cmd.Context(), server.Options{
				Port:        port,
				OpenBrowser: !noBrowser,
				Watch:       watch,
			})
		},
	}
	defaults := config.Default()
	cmd.Flags().IntVar(&port, "port", defaults.Port, "HTTP server port")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "skip auto-opening browser")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-analyze when the input changes")
	cmd.Flags().StringVar(&filter, "filter", "", "only show services whose package path has this prefix")
	return cmd
}
