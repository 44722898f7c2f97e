package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stacksolve/internal/config"
	"github.com/matzehuels/stacksolve/pkg/artifact"
	"github.com/matzehuels/stacksolve/pkg/errors"
	"github.com/matzehuels/stacksolve/pkg/graph"
	"github.com/matzehuels/stacksolve/pkg/metadata"
	"github.com/matzehuels/stacksolve/pkg/observability"
	"github.com/matzehuels/stacksolve/pkg/report"
	"github.com/matzehuels/stacksolve/pkg/resolve"
	"github.com/matzehuels/stacksolve/pkg/selector"
	"github.com/matzehuels/stacksolve/pkg/visit"
)

// resolveOpts holds the command-line flags for the resolve command.
// catalog, root, workers and timeout are read back through config.Load.
type resolveOpts struct {
	catalog       string
	root          string
	requires      []string // group:name[:constraint] or :project
	stricts       []string // group:name:version
	workers       int
	timeout       time.Duration
	lockfile      string
	report        string
	dot           string // .dot writes Graphviz source, .svg renders it
	json          string
	artifacts     bool
	artifactTypes []string
	noCache       bool
	refresh       bool
}

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	var opts resolveOpts

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve requirements against a catalog",
		Long: `Resolve the configured requirements against a component catalog and print
the resolved dependency tree together with every problem found.

Exits with status 1 when a version conflict is left in the graph.`,
		Example: `  stacksolve resolve --catalog catalog.toml --require org.example:core:[1.0,2.0)
  stacksolve resolve --strict org.example:util:1.4 --lockfile stacksolve.lock --report report.html
  stacksolve resolve --root :app --dot graph.svg --artifacts`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			if err := opts.apply(&cfg); err != nil {
				return err
			}
			return c.runResolve(cmd.Context(), cmd.OutOrStdout(), cfg, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.catalog, "catalog", "", "component catalog (.toml, .yaml, .json)")
	cmd.Flags().StringVar(&opts.root, "root", "", "resolve the dependencies of this catalog project (e.g. :app)")
	cmd.Flags().StringArrayVar(&opts.requires, "require", nil, "requirement group:name[:constraint] or :project (repeatable)")
	cmd.Flags().StringArrayVar(&opts.stricts, "strict", nil, "strict requirement group:name:version (repeatable)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "concurrent provider requests")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "abort resolution after this duration")
	cmd.Flags().StringVar(&opts.lockfile, "lockfile", "", "write a TOML lockfile")
	cmd.Flags().StringVar(&opts.report, "report", "", "write an HTML problems report")
	cmd.Flags().StringVar(&opts.dot, "dot", "", "write the graph as Graphviz (.dot) or rendered SVG (.svg)")
	cmd.Flags().StringVar(&opts.json, "json", "", "write the graph as JSON")
	cmd.Flags().BoolVar(&opts.artifacts, "artifacts", false, "resolve the declared artifacts of every component")
	cmd.Flags().StringSliceVar(&opts.artifactTypes, "artifact-type", nil, "also resolve all artifacts of these types (with --artifacts)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the metadata cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached metadata but store fresh responses")

	return cmd
}

// apply appends the flag requirements to the configured ones. The scalar
// flags are layered over the config by config.Load.
func (o *resolveOpts) apply(cfg *config.Config) error {
	for _, r := range o.requires {
		d, err := requireDoc(r)
		if err != nil {
			return err
		}
		cfg.Require = append(cfg.Require, d)
	}
	for _, s := range o.stricts {
		d, err := strictDoc(s)
		if err != nil {
			return err
		}
		cfg.Require = append(cfg.Require, d)
	}

	if cfg.Catalog == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "no catalog: set --catalog, catalog in %s or STACKSOLVE_CATALOG", config.DefaultFile)
	}
	return cfg.Validate()
}

// requireDoc parses a --require value.
func requireDoc(s string) (metadata.DependencyDoc, error) {
	if strings.HasPrefix(s, ":") {
		return metadata.DependencyDoc{Project: s}, nil
	}
	ms, err := selector.ParseModuleSelector(s)
	if err != nil {
		return metadata.DependencyDoc{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "--require %s", s)
	}
	return metadata.DependencyFromSelector(ms), nil
}

// strictDoc parses a --strict value, which must name a version.
func strictDoc(s string) (metadata.DependencyDoc, error) {
	ms, err := selector.ParseModuleSelector(s)
	if err != nil {
		return metadata.DependencyDoc{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "--strict %s", s)
	}
	if ms.Constraint.Required == "" {
		return metadata.DependencyDoc{}, errors.New(errors.ErrCodeInvalidInput, "--strict %s: version required", s)
	}
	ms.Constraint = selector.Strictly(ms.Constraint.Required)
	return metadata.DependencyFromSelector(ms), nil
}

// outputs buffers every file the traversal produces so nothing is written
// when the traversal fails.
type outputs struct {
	lockfile bytes.Buffer
	report   bytes.Buffer
	dot      bytes.Buffer
}

func (c *CLI) runResolve(ctx context.Context, out io.Writer, cfg config.Config, opts *resolveOpts) error {
	logger := loggerFromContext(ctx)

	reqs, err := cfg.Requirements()
	if err != nil {
		return err
	}

	if cfg.Metrics.Textfile != "" {
		reg := prometheus.NewRegistry()
		observability.NewPrometheusHooks(reg).Install()
		defer observability.Reset()
		defer func() {
			if err := prometheus.WriteToTextfile(cfg.Metrics.Textfile, reg); err != nil {
				logger.Warn("Write metrics failed", "path", cfg.Metrics.Textfile, "err", err)
			}
		}()
	}

	cat, err := metadata.LoadCatalog(cfg.Catalog)
	if err != nil {
		return err
	}
	logger.Debug("Loaded catalog", "path", cfg.Catalog, "modules", len(cat.Modules()))

	store, err := openCache(ctx, cfg.Cache, opts.noCache)
	if err != nil {
		return err
	}
	defer store.Close()

	source, err := filepath.Abs(cfg.Catalog)
	if err != nil {
		source = cfg.Catalog
	}
	provider := metadata.NewCachingProvider(cat, store, metadata.CacheOptions{
		Source:  source,
		TTL:     cfg.Cache.TTL,
		Refresh: opts.refresh,
		Logger:  logger,
	})

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	prog := newProgress(logger)
	engine := resolve.NewEngine(provider, resolve.Options{
		Workers:       cfg.Workers,
		MaxIterations: cfg.MaxIterations,
		Logger:        logger,
	})
	spin := newSpinner(ctx, os.Stderr, "Resolving "+cfg.Catalog)
	spin.Start()
	res, resolveErr := engine.Resolve(ctx, resolve.Request{Root: cfg.Root, Dependencies: reqs})
	spin.Stop()
	if res == nil {
		return resolveErr
	}
	prog.done("Resolved graph", "components", len(res.Components()), "failures", len(res.Failures))

	var buf outputs
	problems := report.NewConflictReporter()
	visitors := []visit.Visitor{problems}
	if opts.lockfile != "" {
		visitors = append(visitors, report.NewLockfileWriter(&buf.lockfile))
	}
	if opts.report != "" {
		visitors = append(visitors, report.NewProblemsReport(&buf.report, ""))
	}
	if opts.dot != "" && !isSVG(opts.dot) {
		visitors = append(visitors, report.NewDotWriter(&buf.dot))
	}
	var collector *report.ArtifactCollector
	if opts.artifacts {
		collector = report.NewArtifactCollector(ctx, artifact.NewDefaultResolver(cat), artifact.Options{
			Workers: cfg.Workers,
			Types:   opts.artifactTypes,
		})
		visitors = append(visitors, collector)
	}

	if err := resolve.Traverse(ctx, res, visitors...); err != nil {
		return err
	}

	printTree(out, res.Graph)
	printProblems(out, problems.Problems())

	written, err := writeOutputs(ctx, res.Graph, opts, &buf)
	if len(written) > 0 {
		printNewline(out)
		printSuccess(out, "Wrote %d file(s)", len(written))
		for _, p := range written {
			printFile(out, p)
		}
	}
	if err != nil {
		return err
	}

	if collector != nil {
		printArtifacts(out, collector.Report())
	}

	printNewline(out)
	if conflicts := len(problems.Conflicts()); conflicts > 0 {
		printError(out, "%d version conflict(s), %d problem(s)", conflicts, len(problems.Problems()))
	} else if n := len(problems.Problems()); n > 0 {
		printWarning(out, "Resolved with %d problem(s)", n)
	} else {
		printSuccess(out, "Resolved %d components", len(res.Components()))
	}
	return resolveErr
}

// writeOutputs writes the requested files and returns their paths.
func writeOutputs(ctx context.Context, g *graph.Graph, opts *resolveOpts, buf *outputs) ([]string, error) {
	var written []string
	write := func(path string, data []byte) error {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
		}
		written = append(written, path)
		return nil
	}

	if opts.lockfile != "" {
		if err := write(opts.lockfile, buf.lockfile.Bytes()); err != nil {
			return written, err
		}
	}
	if opts.report != "" {
		if err := write(opts.report, buf.report.Bytes()); err != nil {
			return written, err
		}
	}
	if opts.dot != "" {
		data := buf.dot.Bytes()
		if isSVG(opts.dot) {
			dot, err := report.ToDOT(ctx, g)
			if err != nil {
				return written, err
			}
			if data, err = report.RenderSVG(ctx, dot); err != nil {
				return written, err
			}
		}
		if err := write(opts.dot, data); err != nil {
			return written, err
		}
	}
	if opts.json != "" {
		if err := graph.WriteGraphFile(g, opts.json); err != nil {
			return written, errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", opts.json)
		}
		written = append(written, opts.json)
	}
	return written, nil
}

func isSVG(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".svg")
}

// printArtifacts lists resolved files and isolated artifact failures.
func printArtifacts(w io.Writer, rep *artifact.Report) {
	if rep == nil {
		return
	}
	files := rep.Files()
	failures := rep.Failures()

	printNewline(w)
	printInfo(w, "Artifacts: %d resolved, %d failed", len(files), len(failures))
	for _, f := range files {
		printDetail(w, "%s %s %s", f.ID, iconArrow, f.Location)
	}
	for _, err := range failures {
		printWarning(w, "%s", errors.UserMessage(err))
	}
}
