// Command contentctl validates, inspects and rewrites level content.
//
//	contentctl [-config levelkit.hcl] <command> [flags]
//
// Commands: validate, resolve, grid, fix, assign, watch.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/milk9111/levelkit/authoring"
	"github.com/milk9111/levelkit/config"
	"github.com/milk9111/levelkit/content"
	"github.com/milk9111/levelkit/data"
	"github.com/milk9111/levelkit/levels"
	"github.com/milk9111/levelkit/material"
)

// errUsage is returned after usage has already been printed.
var errUsage = errors.New("usage")

func main() {
	if err := run(context.Background(), os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

type env struct {
	ctx    context.Context
	cfg    config.Config
	out    io.Writer
	logger *slog.Logger
}

type command struct {
	name  string
	usage string
	run   func(e *env, args []string) error
}

var commands = []command{
	{"validate", "validate [-all]", cmdValidate},
	{"resolve", "resolve <ref>...", cmdResolve},
	{"grid", "grid [-row N -col N]", cmdGrid},
	{"fix", "fix [-write]", cmdFix},
	{"assign", "assign -textures DIR [-seed N] [-mode all|missing] [-write]", cmdAssign},
	{"watch", "watch", cmdWatch},
}

func run(ctx context.Context, outW, errW io.Writer, args []string) error {
	fset := flag.NewFlagSet("contentctl", flag.ContinueOnError)
	fset.SetOutput(errW)
	configPath := fset.String("config", "", "HCL config file")
	fset.Usage = func() {
		fmt.Fprintln(errW, "usage: contentctl [-config file] <command> [flags]")
		for _, c := range commands {
			fmt.Fprintf(errW, "  %s\n", c.usage)
		}
	}
	if err := fset.Parse(args); err != nil {
		return errUsage
	}
	if fset.NArg() == 0 {
		fset.Usage()
		return errUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	e := &env{ctx: ctx, cfg: cfg, out: outW, logger: cfg.Logger(errW)}

	name := fset.Arg(0)
	for _, c := range commands {
		if c.name == name {
			return c.run(e, fset.Args()[1:])
		}
	}
	fmt.Fprintf(errW, "contentctl: unknown command %q\n", name)
	fset.Usage()
	return errUsage
}

func subFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%s: %w", fs.Name(), err)
	}
	return nil
}

func (e *env) store() *content.Store {
	return content.NewStore(e.cfg.Validator(), e.logger)
}

func (e *env) load() (*content.Batch, error) {
	return content.Load(e.cfg.Source())
}

func cmdValidate(e *env, args []string) error {
	fs := subFlags("validate")
	all := fs.Bool("all", e.cfg.ReportAll, "report every violation instead of stopping at the first")
	if err := parse(fs, args); err != nil {
		return err
	}

	batch, err := e.load()
	if err != nil {
		return err
	}
	v := e.cfg.Validator()
	v.ReportAll = *all
	v.Rules = batch.Rules

	report, err := v.Validate(batch.Manifest, batch.Levels)
	for _, violation := range report.Violations {
		fmt.Fprintf(e.out, "FAIL %v\n", violation)
	}
	if err != nil {
		return fmt.Errorf("validate: %d violation(s)", len(report.Violations))
	}
	fmt.Fprintf(e.out, "ok: %d levels, %d profiles, %d rules\n", report.Levels, report.Profiles, len(batch.Rules))
	return nil
}

func cmdResolve(e *env, args []string) error {
	fs := subFlags("resolve")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("resolve: no profile references given")
	}

	store := e.store()
	if _, err := store.Reload(e.cfg.Source()); err != nil {
		return err
	}

	var failed int
	for _, arg := range fs.Args() {
		res, err := store.Resolve(material.Ref(arg))
		if err != nil {
			fmt.Fprintf(e.out, "%s: %v\n", arg, err)
			failed++
			continue
		}
		fmt.Fprintf(e.out, "%s\n", arg)
		fmt.Fprintf(e.out, "  source:    %s\n", res.Source)
		fmt.Fprintf(e.out, "  chain:     %s\n", joinRefs(res.Path))
		fmt.Fprintf(e.out, "  albedo:    %s\n", res.AlbedoPath)
		if res.NormalPath != "" {
			fmt.Fprintf(e.out, "  normal:    %s\n", res.NormalPath)
		}
		fmt.Fprintf(e.out, "  roughness: %g\n", res.Roughness)
		fmt.Fprintf(e.out, "  metallic:  %g\n", res.Metallic)
		fmt.Fprintf(e.out, "  uv:        scale %g,%g offset %g,%g\n", res.UVScale[0], res.UVScale[1], res.UVOffset[0], res.UVOffset[1])
	}
	if failed > 0 {
		return fmt.Errorf("resolve: %d of %d references failed", failed, fs.NArg())
	}
	return nil
}

func joinRefs(refs []material.Ref) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = string(r)
	}
	return strings.Join(parts, " -> ")
}

func cmdGrid(e *env, args []string) error {
	fs := subFlags("grid")
	row := fs.Int("row", -1, "cell row to locate")
	col := fs.Int("col", -1, "cell column to locate")
	if err := parse(fs, args); err != nil {
		return err
	}

	layout, err := e.cfg.Layout()
	if err != nil {
		return err
	}
	xs, ys, err := layout.Lines()
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "grid %s on %gx%g plane\n", layout.Dims, layout.PlaneW, layout.PlaneH)
	fmt.Fprintf(e.out, "cell %gx%g\n", layout.CellW, layout.CellH)
	fmt.Fprintf(e.out, "x lines (%d): %s\n", len(xs), joinFloats(xs))
	fmt.Fprintf(e.out, "y lines (%d): %s\n", len(ys), joinFloats(ys))

	if *row >= 0 || *col >= 0 {
		c, err := layout.CellCenter(*row, *col)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "cell %d,%d center %g,%g\n", *row, *col, c.X, c.Y)
	}
	return nil
}

func joinFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return strings.Join(parts, " ")
}

// contentDir returns the on-disk content directory, or an error when the
// configured content comes from the embedded copy.
func (e *env) contentDir(cmd string) (string, error) {
	dir := e.cfg.ContentDir
	if !data.OnDisk(dir) {
		return "", fmt.Errorf("%s: %q has no %s; nothing on disk to rewrite", cmd, dir, data.ManifestPath)
	}
	return dir, nil
}

func writeLevel(dir string, def *levels.Definition) error {
	out, err := levels.Encode(def)
	if err != nil {
		return err
	}
	name := def.Path
	if name == "" {
		name = filepath.ToSlash(filepath.Join(data.LevelsDir, levels.FileName(def.Number)))
	}
	return os.WriteFile(filepath.Join(dir, filepath.FromSlash(name)), out, 0o644)
}

func writeManifest(dir string, m *material.Manifest) error {
	out, err := m.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, data.ManifestPath), out, 0o644)
}

func cmdFix(e *env, args []string) error {
	fs := subFlags("fix")
	write := fs.Bool("write", false, "rewrite changed level files")
	if err := parse(fs, args); err != nil {
		return err
	}

	batch, err := e.load()
	if err != nil {
		return err
	}
	var changed int
	for _, res := range authoring.Fix(batch.Levels, e.cfg.Grid) {
		if !res.Changed() {
			continue
		}
		changed++
		m := res.Metrics
		fmt.Fprintf(e.out, "level %d: rows +%d/-%d cols +%d/-%d presentation %v\n",
			res.Level.Number, m.PaddedRows, m.TruncatedRows, m.PaddedCols, m.TruncatedCols, res.PresentationFixed)
		if !*write {
			continue
		}
		dir, err := e.contentDir("fix")
		if err != nil {
			return err
		}
		if err := writeLevel(dir, res.Level); err != nil {
			return fmt.Errorf("fix: %w", err)
		}
		e.logger.Info("level rewritten", "level", res.Level.Number, "path", res.Level.Path)
	}
	fmt.Fprintf(e.out, "%d of %d levels need fixing\n", changed, len(batch.Levels))
	return nil
}

func cmdAssign(e *env, args []string) error {
	fs := subFlags("assign")
	texDir := fs.String("textures", "", "directory of ground texture files")
	albedoDir := fs.String("albedo-dir", "textures/background", "albedo path prefix for new profiles")
	seed := fs.Uint64("seed", 1, "shuffle seed")
	modeFlag := fs.String("mode", string(authoring.ModeAll), "all or missing")
	write := fs.Bool("write", false, "write levels and manifest")
	if err := parse(fs, args); err != nil {
		return err
	}
	mode, err := authoring.ParseMode(*modeFlag)
	if err != nil {
		return err
	}
	if *texDir == "" {
		return fmt.Errorf("assign: -textures is required")
	}
	textures, err := listFiles(*texDir)
	if err != nil {
		return fmt.Errorf("assign: %w", err)
	}

	batch, err := e.load()
	if err != nil {
		return err
	}
	res, err := authoring.AssignGround(batch.Manifest, batch.Levels, authoring.AssignOptions{
		Mode:      mode,
		Seed:      *seed,
		Textures:  textures,
		AlbedoDir: *albedoDir,
	})
	if err != nil {
		return err
	}
	for _, a := range res.Assigned {
		fmt.Fprintf(e.out, "level %d: %s\n", a.Level, a.Profile)
	}
	for _, ref := range res.Added {
		fmt.Fprintf(e.out, "added %s\n", ref)
	}
	if len(res.Assigned) == 0 {
		fmt.Fprintln(e.out, "no levels to assign")
		return nil
	}
	if !*write {
		return nil
	}

	dir, err := e.contentDir("assign")
	if err != nil {
		return err
	}
	assigned := map[uint32]bool{}
	for _, a := range res.Assigned {
		assigned[a.Level] = true
	}
	for _, def := range res.Levels {
		if !assigned[def.Number] {
			continue
		}
		if err := writeLevel(dir, def); err != nil {
			return fmt.Errorf("assign: %w", err)
		}
	}
	if len(res.Added) > 0 {
		if err := writeManifest(dir, res.Manifest); err != nil {
			return fmt.Errorf("assign: %w", err)
		}
	}
	e.logger.Info("assignment written", "levels", len(res.Assigned), "profiles_added", len(res.Added))
	return nil
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			out = append(out, entry.Name())
		}
	}
	return out, nil
}

func cmdWatch(e *env, args []string) error {
	fs := subFlags("watch")
	if err := parse(fs, args); err != nil {
		return err
	}
	dir, err := e.contentDir("watch")
	if err != nil {
		return err
	}

	src := e.cfg.Source()
	store := e.store()
	if _, err := store.Reload(src); err != nil {
		e.logger.Warn("initial load rejected; waiting for changes", "err", err)
	}

	dirs := []string{dir, filepath.Join(dir, data.LevelsDir)}
	if e.cfg.RulesDir != "" {
		if info, err := os.Stat(filepath.Join(dir, e.cfg.RulesDir)); err == nil && info.IsDir() {
			dirs = append(dirs, filepath.Join(dir, e.cfg.RulesDir))
		}
	}
	w, err := content.NewWatcher(dirs...)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(e.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	e.logger.Info("watching content", "dirs", dirs)
	return store.Watch(ctx, src, w)
}
