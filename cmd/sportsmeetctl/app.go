package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/okian/sportsmeet/internal/adapters/report"
	"github.com/okian/sportsmeet/internal/adapters/repository"
	app "github.com/okian/sportsmeet/internal/app"
	"github.com/okian/sportsmeet/internal/app/catalog"
	"github.com/okian/sportsmeet/internal/app/schools"
	"github.com/okian/sportsmeet/internal/config"
	"github.com/okian/sportsmeet/internal/domain/model"
	"github.com/okian/sportsmeet/internal/seed"
	"github.com/okian/sportsmeet/pkg/logger"
)

const exportPermission = 0600

// storeOpener opens the backend named by the configuration.
type storeOpener func(ctx context.Context, cfg *config.Config) (repository.Store, error)

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	return repository.Open(ctx, repository.Settings{
		Driver:                cfg.StoreDriver,
		RedisAddr:             cfg.RedisAddr,
		RedisPassword:         cfg.RedisPassword,
		RedisDB:               cfg.RedisDB,
		RedisPrefix:           cfg.RedisPrefix,
		DynamoRegion:          cfg.DynamoDBRegion,
		DynamoEndpoint:        cfg.DynamoDBEndpoint,
		DynamoConsistentReads: cfg.DynamoDBConsistentReads,
	})
}

func newApp(out io.Writer, open storeOpener) *cli.App {
	return &cli.App{
		Name:   "sportsmeetctl",
		Usage:  "seed and inspect a sports meet store",
		Writer: out,
		Commands: []*cli.Command{
			newSeedCommand(out, open),
			newFakeCommand(out),
			newScoreboardCommand(out, open),
		},
	}
}

func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}

func tables(cfg *config.Config) repository.Tables {
	return repository.NewTables(cfg.TableScores, cfg.TableParticipants, cfg.TableRegistrations, cfg.TableSchools)
}

func catalogEvents(cfg *config.Config) []model.CatalogEvent {
	events := make([]model.CatalogEvent, 0, len(cfg.Events))
	for _, e := range cfg.Events {
		events = append(events, model.CatalogEvent{ID: e.ID, Name: e.Name, Category: e.Category})
	}
	return events
}

func newSeedCommand(out io.Writer, open storeOpener) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "load schools, participants and registrations from a YAML file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "seed file path", Required: true},
			&cli.IntFlag{Name: "workers", Usage: "concurrent writes", Value: seed.DefaultWorkers},
		},
		Action: func(c *cli.Context) error {
			f, err := seed.ReadFile(c.String("file"))
			if err != nil {
				return err
			}
			cfg, err := loadConfig(c.Context)
			if err != nil {
				return err
			}
			store, err := open(c.Context, cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() { _ = store.Close() }()

			t := tables(cfg)
			scores := repository.NewScores(store, t.Scores)
			registry := schools.New(repository.NewSchools(store, t.Schools), scores, nil, logger.Named("schools"))
			loader := seed.NewLoader(registry,
				repository.NewParticipants(store, t.Participants),
				repository.NewRegistrations(store, t.Registrations),
				seed.WithWorkers(c.Int("workers")),
				seed.WithEventLookup(catalog.New(nil, catalog.WithEvents(catalogEvents(cfg)))),
			)

			rep, err := loader.Load(c.Context, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "schools: %d created, %d already present\n", rep.Schools, rep.SchoolsSkipped)
			fmt.Fprintf(out, "participants: %d\n", rep.Participants)
			fmt.Fprintf(out, "registrations: %d\n", rep.Registrations)
			return nil
		},
	}
}

func newFakeCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "fake",
		Usage: "generate a seed file with fake participants",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "schools", Value: seed.DefaultSchools},
			&cli.IntFlag{Name: "participants", Value: seed.DefaultParticipants},
			&cli.Float64Flag{Name: "duplicates", Usage: "share of people registered twice", Value: seed.DefaultDuplicateRate},
			&cli.IntFlag{Name: "events-per-person", Value: seed.DefaultEventsPerPerson},
			&cli.Uint64Flag{Name: "seed", Usage: "random seed, 0 picks one", Value: 1},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output path, stdout when empty"},
		},
		Action: func(c *cli.Context) error {
			f := seed.NewGenerator(c.Uint64("seed")).Generate(seed.Options{
				Schools:         c.Int("schools"),
				Participants:    c.Int("participants"),
				DuplicateRate:   c.Float64("duplicates"),
				EventsPerPerson: c.Int("events-per-person"),
				Events:          catalog.Default(),
			})
			if path := c.String("out"); path != "" {
				if err := seed.WriteFile(path, f); err != nil {
					return err
				}
				fmt.Fprintf(out, "wrote %d participants to %s\n", len(f.Participants), path)
				return nil
			}
			return seed.Write(out, f)
		},
	}
}

func newScoreboardCommand(out io.Writer, open storeOpener) *cli.Command {
	return &cli.Command{
		Name:  "scoreboard",
		Usage: "print school standings",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "xlsx", Usage: "also write the workbook to this path"},
			&cli.StringFlag{Name: "chart", Usage: "also write the top schools chart to this path"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c.Context)
			if err != nil {
				return err
			}
			store, err := open(c.Context, cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}

			svc := app.New(
				app.WithStore(store),
				app.WithTables(tables(cfg)),
				app.WithLogger(logger.Named("sportsmeetctl")),
				app.WithScoreboardLimits(cfg.TopSchools, cfg.RecentWinners),
				app.WithTieBreak(cfg.TieBreak),
				app.WithPositionPoints(cfg.PositionPoints),
				app.WithEvents(catalogEvents(cfg)),
			)
			if err := svc.Start(c.Context); err != nil {
				_ = store.Close()
				return err
			}
			defer svc.Stop()

			board, err := svc.Scoreboard(c.Context)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tSCHOOL\tPOINTS\tWINS")
			for i, t := range report.Standings(board) {
				wins := 0
				for _, n := range t.Wins {
					wins += n
				}
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", i+1, t.School, t.TotalPoints, wins)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if path := c.String("xlsx"); path != "" {
				body, err := report.Workbook(board)
				if err != nil {
					return err
				}
				if err := os.WriteFile(path, body, exportPermission); err != nil {
					return fmt.Errorf("write workbook: %w", err)
				}
			}
			if path := c.String("chart"); path != "" {
				body, err := report.TopSchoolsChart(board, report.DefaultPalette())
				if err != nil {
					return err
				}
				if err := os.WriteFile(path, body, exportPermission); err != nil {
					return fmt.Errorf("write chart: %w", err)
				}
			}
			return nil
		},
	}
}
