package cli

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okvist/quarry/pkg/collector"
	"github.com/okvist/quarry/pkg/errors"
	"github.com/okvist/quarry/pkg/graph"
	"github.com/okvist/quarry/pkg/repository"
)

// newCollectCmd creates the collect command.
func newCollectCmd(configPath *string) *cobra.Command {
	var (
		repoFlags   []string
		managed     []string
		scopes      []string
		interactive bool
		asText      bool
	)

	cmd := &cobra.Command{
		Use:   "collect coordinate[@scope] [coordinate[@scope]...]",
		Short: "Resolve the transitive dependency graph of one or more coordinates",
		Long: `Collect resolves the full dependency graph of the given coordinates.

A single coordinate becomes the root of the graph; several coordinates are
collected together under an artificial root, as a set of co-required
artifacts. Version specifications may be ranges, e.g. "[1.0,2.0)".

Examples:
  quarry collect org.apache.commons:commons-lang3:3.14.0
  quarry collect com.google.guava:guava:[33.0,)@compile
  quarry collect g:a:1.0 g:b:2.0 --repo mirror=https://mirror.example/maven2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := LoadConfig(*configPath)
			if err != nil {
				return err
			}

			deps, err := parseDependencyArgs(args)
			if err != nil {
				return err
			}
			managedDeps, err := parseDependencyArgs(managed)
			if err != nil {
				return err
			}

			eng, err := newEngine(ctx, cfg)
			if err != nil {
				return err
			}
			defer eng.Close()

			if len(scopes) > 0 {
				eng.session.IgnoredScopes = scopes
			}
			remotes := eng.remotes
			for _, rf := range repoFlags {
				id, url, err := parseRepoFlag(rf)
				if err != nil {
					return err
				}
				remotes = append(remotes, repository.NewRemote(id, url))
			}

			req := &collector.Request{
				ManagedDependencies: managedDeps,
				Repositories:        remotes,
			}
			if len(deps) == 1 {
				req.Root = &deps[0]
			} else {
				req.Roots = deps
			}

			prog := newProgress(logger)
			spinner := newSpinner(ctx, "Collecting "+args[0])
			spinner.Start()
			result, err := eng.collector.Collect(ctx, eng.session, req)
			spinner.Stop()

			if err != nil {
				var cerr *collector.Error
				if !stderrors.As(err, &cerr) || cerr.Result.Root == nil {
					return err
				}
				// partial graph: show what was collected, then fail
				printCollectResult(cerr.Result)
				return err
			}

			prog.done(fmt.Sprintf("Collected %d nodes", result.Root.Size()))
			printCollectResult(result)

			if interactive {
				return browseGraph(result.Root)
			}
			if asText {
				fmt.Print(graph.Marshal(result.Root))
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&repoFlags, "repo", nil, "additional repository as id=url (repeatable)")
	cmd.Flags().StringArrayVar(&managed, "managed", nil, "managed dependency coordinate[@scope] (repeatable)")
	cmd.Flags().StringSliceVar(&scopes, "ignore-scope", nil, "scopes to skip below the roots (overrides config)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse the graph interactively")
	cmd.Flags().BoolVar(&asText, "text", false, "print the graph in its textual form (machine-parseable)")

	return cmd
}

// printCollectResult renders the tree with scopes and management markers,
// followed by stats and accumulated errors.
func printCollectResult(result *collector.Result) {
	result.Root.Walk(func(n *graph.Node, depth int) bool {
		fmt.Println(strings.Repeat("  ", depth) + renderNode(n))
		return true
	})

	printStats(result.Root.Size(), len(result.Cycles), len(result.Exceptions))
	for _, err := range result.Exceptions {
		printWarning("%s", errors.UserMessage(err))
	}
}

func renderNode(n *graph.Node) string {
	if n.Dependency == nil {
		return StyleDim.Render("(root)")
	}
	line := n.Dependency.Coordinate.String()
	if s := n.Dependency.Scope; s != "" {
		line += " " + styleScope.Render("("+s+")")
	}
	if n.Dependency.IsOptional() {
		line += " " + StyleDim.Render("optional")
	}
	if n.ManagedBits != 0 {
		line += " " + styleManaged.Render(managedMarker(n))
	}
	return line
}

// managedMarker summarizes which aspects management overrode.
func managedMarker(n *graph.Node) string {
	var parts []string
	for _, bit := range []struct {
		mask  int
		label string
	}{
		{graph.ManagedVersion, "version"},
		{graph.ManagedScope, "scope"},
		{graph.ManagedOptional, "optional"},
		{graph.ManagedProperties, "properties"},
		{graph.ManagedExclusions, "exclusions"},
	} {
		if n.ManagedBits&bit.mask != 0 {
			label := bit.label
			if pre, ok := premanagedLabel(n, bit.mask); ok {
				label += " was " + pre
			}
			parts = append(parts, label)
		}
	}
	return "[managed: " + strings.Join(parts, ", ") + "]"
}

func premanagedLabel(n *graph.Node, mask int) (string, bool) {
	switch mask {
	case graph.ManagedVersion:
		v, ok := n.PremanagedVersion()
		return v, ok
	case graph.ManagedScope:
		s, ok := n.PremanagedScope()
		if ok && s == "" {
			s = `""`
		}
		return s, ok
	}
	return "", false
}
