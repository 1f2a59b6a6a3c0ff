package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/sportsmeet/internal/adapters/repository"
	app "github.com/okian/sportsmeet/internal/app"
	"github.com/okian/sportsmeet/internal/app/results"
	"github.com/okian/sportsmeet/internal/config"
	"github.com/okian/sportsmeet/internal/domain/model"
	"github.com/okian/sportsmeet/internal/seed"
)

func sharedStore(store repository.Store) storeOpener {
	return func(context.Context, *config.Config) (repository.Store, error) { return store, nil }
}

func TestFakeCommand(t *testing.T) {
	Convey("Given the fake command", t, func() {
		var out bytes.Buffer
		cli := newApp(&out, sharedStore(repository.NewMemoryStore()))

		Convey("When it writes to stdout", func() {
			err := cli.Run([]string{"sportsmeetctl", "fake", "--schools", "3", "--participants", "5", "--duplicates", "0", "--seed", "9"})

			Convey("Then the output is a readable seed file", func() {
				So(err, ShouldBeNil)
				f, err := seed.Read(&out)
				So(err, ShouldBeNil)
				So(f.Schools, ShouldHaveLength, 3)
				So(f.Participants, ShouldHaveLength, 5)
			})
		})

		Convey("When it writes to a file", func() {
			path := filepath.Join(t.TempDir(), "meet.yaml")
			err := cli.Run([]string{"sportsmeetctl", "fake", "--participants", "4", "--out", path})

			Convey("Then the file is created", func() {
				So(err, ShouldBeNil)
				So(out.String(), ShouldContainSubstring, path)
				f, err := seed.ReadFile(path)
				So(err, ShouldBeNil)
				So(len(f.Participants), ShouldBeGreaterThanOrEqualTo, 4)
			})
		})
	})
}

func TestSeedAndScoreboardCommands(t *testing.T) {
	Convey("Given a memory store shared across commands", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		dir := t.TempDir()

		path := filepath.Join(dir, "meet.yaml")
		So(seed.WriteFile(path, seed.File{
			Schools: []string{"North High", "South High"},
			Participants: []seed.Participant{
				{ClearID: "p1", FullName: "Asha Rao", RegistrationNumber: "REG1", InstitutionalEmail: "asha@school.edu", SchoolShort: "NH"},
			},
			Registrations: []seed.Registration{{EventID: "SIDI01", ClearID: "p1"}},
		}), ShouldBeNil)

		Convey("When the file is seeded", func() {
			var out bytes.Buffer
			err := newApp(&out, sharedStore(store)).Run([]string{"sportsmeetctl", "seed", "--file", path})

			Convey("Then the report is printed", func() {
				So(err, ShouldBeNil)
				So(out.String(), ShouldContainSubstring, "schools: 2 created, 0 already present")
				So(out.String(), ShouldContainSubstring, "participants: 1")
				So(out.String(), ShouldContainSubstring, "registrations: 1")

				reg, err := repository.NewRegistrations(store, repository.DefaultTables().Registrations).Get(ctx, "SIDI01", "p1")
				So(err, ShouldBeNil)
				So(reg.EventName, ShouldEqual, "100m")
			})

			Convey("Then seeding again skips the schools", func() {
				out.Reset()
				err := newApp(&out, sharedStore(store)).Run([]string{"sportsmeetctl", "seed", "--file", path})
				So(err, ShouldBeNil)
				So(out.String(), ShouldContainSubstring, "schools: 0 created, 2 already present")
			})
		})

		Convey("When the seed file is missing", func() {
			var out bytes.Buffer
			err := newApp(&out, sharedStore(store)).Run([]string{"sportsmeetctl", "seed", "--file", filepath.Join(dir, "absent.yaml")})

			Convey("Then the command fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When results exist and the scoreboard is requested", func() {
			svc := app.New(app.WithStore(store))
			So(svc.Start(ctx), ShouldBeNil)
			_, err := svc.SubmitScores(ctx, results.Submission{
				EventType: model.EventIndividual,
				EventName: "100m",
				Winners:   []results.Winner{{Position: 1, ChestNo: "101", Name: "Asha Rao", School: "North High"}},
			})
			So(err, ShouldBeNil)

			var out bytes.Buffer
			xlsx := filepath.Join(dir, "board.xlsx")
			chart := filepath.Join(dir, "board.png")
			err = newApp(&out, sharedStore(store)).Run([]string{"sportsmeetctl", "scoreboard", "--xlsx", xlsx, "--chart", chart})

			Convey("Then standings are printed and exports written", func() {
				So(err, ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(out.String()), "\n")
				So(lines, ShouldHaveLength, 2)
				So(lines[0], ShouldStartWith, "RANK")
				So(lines[1], ShouldContainSubstring, "North High")

				for _, p := range []string{xlsx, chart} {
					info, err := os.Stat(p)
					So(err, ShouldBeNil)
					So(info.Size(), ShouldBeGreaterThan, 0)
				}
			})
		})

		Convey("When the store cannot be opened", func() {
			failing := func(context.Context, *config.Config) (repository.Store, error) {
				return nil, repository.ErrUnknownDriver
			}
			err := newApp(&bytes.Buffer{}, failing).Run([]string{"sportsmeetctl", "scoreboard"})

			Convey("Then the error is returned", func() {
				So(errors.Is(err, repository.ErrUnknownDriver), ShouldBeTrue)
			})
		})
	})
}
