package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-graphviz"
	"github.com/spf13/cobra"

	"github.com/okvist/quarry/pkg/collector"
	"github.com/okvist/quarry/pkg/errors"
	"github.com/okvist/quarry/pkg/graph"
)

// newExportCmd creates the export command.
func newExportCmd(configPath *string) *cobra.Command {
	var (
		format   string
		outPath  string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "export coordinate[@scope]",
		Short: "Collect a dependency graph and render it as DOT, SVG, or PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := LoadConfig(*configPath)
			if err != nil {
				return err
			}
			root, err := parseDependencyArg(args[0])
			if err != nil {
				return err
			}

			eng, err := newEngine(ctx, cfg)
			if err != nil {
				return err
			}
			defer eng.Close()

			spinner := newSpinner(ctx, "Collecting "+args[0])
			spinner.Start()
			result, err := eng.collector.Collect(ctx, eng.session, &collector.Request{
				Root:         &root,
				Repositories: eng.remotes,
			})
			spinner.Stop()
			if err != nil {
				return err
			}

			dot := graph.ToDOT(result.Root, graph.DOTOptions{Detailed: detailed})

			var data []byte
			switch format {
			case "dot":
				data = []byte(dot)
			case "svg":
				data, err = renderDOT(ctx, dot, graphviz.SVG)
			case "png":
				data, err = renderDOT(ctx, dot, graphviz.PNG)
			default:
				return errors.New(errors.ErrCodeInvalidRequest,
					"unknown format %q (expected dot, svg, or png)", format)
			}
			if err != nil {
				return err
			}

			if outPath == "" {
				outPath = "graph." + format
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return err
			}

			printSuccess("Exported %d nodes", result.Root.Size())
			printFile(outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "svg", "output format: dot, svg, or png")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default graph.<format>)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include versions and management info in labels")

	return cmd
}

// renderDOT runs Graphviz over the DOT text.
func renderDOT(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
