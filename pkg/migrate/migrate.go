package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/pressly/goose/v3"
)

// DefaultDir names the migrations compiled into the binary. Any other dir is
// read from disk.
const DefaultDir = "migrations"

// SourceDir is where DefaultDir lives in the repository, for commands that
// write or lint migration files.
const SourceDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Commands lists what Run accepts.
var Commands = []string{"up", "up-by-one", "down", "redo", "status"}

// Migrator applies one migrations directory to one database.
type Migrator struct {
	provider *goose.Provider
	out      io.Writer
}

// New builds a Migrator over dir; DefaultDir selects the embedded set.
// Results are written to out, which may be nil.
func New(db *sql.DB, dir string, out io.Writer) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	fsys, err := source(dir)
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	if out == nil {
		out = io.Discard
	}
	return &Migrator{provider: provider, out: out}, nil
}

func source(dir string) (fs.FS, error) {
	switch dir {
	case "":
		return nil, errors.New("dir is required")
	case DefaultDir:
		return fs.Sub(embedded, DefaultDir)
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("migrations dir %q: %w", dir, err)
	}
	return os.DirFS(dir), nil
}

// Run executes one of Commands.
func (m *Migrator) Run(ctx context.Context, command string) error {
	var (
		results []*goose.MigrationResult
		err     error
	)
	switch command {
	case "up":
		results, err = m.provider.Up(ctx)
	case "up-by-one":
		results, err = m.one(m.provider.UpByOne(ctx))
	case "down":
		results, err = m.one(m.provider.Down(ctx))
	case "redo":
		if results, err = m.one(m.provider.Down(ctx)); err == nil {
			var up []*goose.MigrationResult
			up, err = m.one(m.provider.UpByOne(ctx))
			results = append(results, up...)
		}
	case "status":
		return m.status(ctx)
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
	m.report(results)
	if err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// To migrates up or down until the database sits at version.
func (m *Migrator) To(ctx context.Context, version string) error {
	target, err := parseVersion(version)
	if err != nil {
		return err
	}
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}
	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil
	case current < target:
		results, err = m.provider.UpTo(ctx, target)
	default:
		results, err = m.provider.DownTo(ctx, target)
	}
	m.report(results)
	if err != nil {
		return fmt.Errorf("goose migrate to %d: %w", target, err)
	}
	return nil
}

func parseVersion(raw string) (int64, error) {
	if raw == "" {
		return 0, errors.New("target version is required")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", raw)
	}
	return v, nil
}

// one adapts single-step provider calls. Having nothing to apply or roll
// back is not a failure.
func (m *Migrator) one(result *goose.MigrationResult, err error) ([]*goose.MigrationResult, error) {
	if errors.Is(err, goose.ErrNoNextVersion) || errors.Is(err, goose.ErrNoCurrentVersion) {
		err = nil
	}
	if result == nil {
		return nil, err
	}
	return []*goose.MigrationResult{result}, err
}

func (m *Migrator) report(results []*goose.MigrationResult) {
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		fmt.Fprintf(m.out, "%-4s %d %s (%s)\n", r.Direction, r.Source.Version, r.Source.Path, r.Duration.Round(time.Millisecond))
	}
}

func (m *Migrator) status(ctx context.Context) error {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return fmt.Errorf("goose status: %w", err)
	}
	tw := tabwriter.NewWriter(m.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
	for _, s := range statuses {
		applied := "-"
		if !s.AppliedAt.IsZero() {
			applied = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
	}
	return tw.Flush()
}
