// Package seeder populates the workspace catalog from a YAML fixture so the
// extension can run against a local host.
package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/heartmarshall/sketch2code/internal/domain"
	"github.com/heartmarshall/sketch2code/pkg/ctxutil"
)

type workspaceWriter interface {
	CreateTable(ctx context.Context, t domain.Table) error
	CreateField(ctx context.Context, f domain.Field) error
	CreateView(ctx context.Context, v domain.View) error
	CreateRecord(ctx context.Context, tableID, recordID string) error
}

type settingsWriter interface {
	UpdateMany(ctx context.Context, values map[domain.ConfigKey]any) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Result counts what a run wrote, or would have written on a dry run.
type Result struct {
	InstallationID string
	Tables         int
	Fields         int
	Views          int
	Records        int
	Settings       int
	Duration       time.Duration
}

// Pipeline writes a fixture in a single transaction.
type Pipeline struct {
	log      *slog.Logger
	repo     workspaceWriter
	settings settingsWriter
	tx       txManager
	cfg      Config
}

// NewPipeline creates a new Pipeline.
func NewPipeline(log *slog.Logger, repo workspaceWriter, settings settingsWriter, tx txManager, cfg Config) *Pipeline {
	return &Pipeline{
		log:      log.With("component", "seeder"),
		repo:     repo,
		settings: settings,
		tx:       tx,
		cfg:      cfg,
	}
}

// Run writes fx. Nothing is written when any step fails or DryRun is set.
func (p *Pipeline) Run(ctx context.Context, fx *Fixture) (Result, error) {
	start := time.Now()

	if err := fx.Validate(); err != nil {
		return Result{}, fmt.Errorf("seeder.Run: %w", err)
	}

	if p.cfg.DryRun {
		res := count(fx)
		res.InstallationID = p.cfg.InstallationID
		res.Duration = time.Since(start)
		p.log.InfoContext(ctx, "dry run, nothing written",
			slog.Int("tables", res.Tables),
			slog.Int("fields", res.Fields),
			slog.Int("views", res.Views),
			slog.Int("records", res.Records),
		)
		return res, nil
	}

	var res Result
	err := p.tx.RunInTx(ctx, func(ctx context.Context) error {
		res = Result{}
		for _, t := range fx.Tables {
			if err := p.writeTable(ctx, t, &res); err != nil {
				return err
			}
		}

		values := fx.ConfigValues()
		if len(values) == 0 {
			return nil
		}
		if p.cfg.InstallationID == "" {
			return domain.NewValidationError("installation_id", "required to seed settings")
		}
		ctx = ctxutil.WithInstallationID(ctx, p.cfg.InstallationID)
		if err := p.settings.UpdateMany(ctx, values); err != nil {
			return fmt.Errorf("settings: %w", err)
		}
		res.Settings = len(values)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("seeder.Run: %w", err)
	}

	res.InstallationID = p.cfg.InstallationID
	res.Duration = time.Since(start)
	p.log.InfoContext(ctx, "fixture seeded",
		slog.Int("tables", res.Tables),
		slog.Int("fields", res.Fields),
		slog.Int("views", res.Views),
		slog.Int("records", res.Records),
		slog.Int("settings", res.Settings),
		slog.Duration("duration", res.Duration),
	)
	return res, nil
}

func (p *Pipeline) writeTable(ctx context.Context, t TableFixture, res *Result) error {
	if err := p.repo.CreateTable(ctx, domain.Table{ID: t.ID, Name: t.Name}); err != nil {
		return fmt.Errorf("table %s: %w", t.ID, err)
	}
	res.Tables++

	for _, f := range t.Fields {
		field := domain.Field{ID: f.ID, TableID: t.ID, Name: f.Name, Type: domain.FieldType(f.Type)}
		if err := p.repo.CreateField(ctx, field); err != nil {
			return fmt.Errorf("field %s: %w", f.ID, err)
		}
		res.Fields++
	}

	for _, v := range t.Views {
		view := domain.View{ID: v.ID, TableID: t.ID, Name: v.Name, Type: domain.ViewType(v.Type)}
		if err := p.repo.CreateView(ctx, view); err != nil {
			return fmt.Errorf("view %s: %w", v.ID, err)
		}
		res.Views++
	}

	for _, id := range t.Records {
		if err := p.repo.CreateRecord(ctx, t.ID, id); err != nil {
			return fmt.Errorf("record %s: %w", id, err)
		}
		res.Records++
	}

	p.log.DebugContext(ctx, "table seeded", slog.String("table_id", t.ID))
	return nil
}

func count(fx *Fixture) Result {
	res := Result{Tables: len(fx.Tables), Settings: len(fx.Settings)}
	for _, t := range fx.Tables {
		res.Fields += len(t.Fields)
		res.Views += len(t.Views)
		res.Records += len(t.Records)
	}
	return res
}
