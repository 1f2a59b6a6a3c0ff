package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/okian/sportsmeet/internal/adapters/repository"
	service "github.com/okian/sportsmeet/internal/app"
	"github.com/okian/sportsmeet/internal/app/results"
	"github.com/okian/sportsmeet/internal/domain/errs"
	"github.com/okian/sportsmeet/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var meetDay = time.Date(2025, 2, 14, 9, 0, 0, 0, time.UTC)

func seedPeople(ctx context.Context, store repository.Store) {
	tables := repository.DefaultTables()
	ps := repository.NewParticipants(store, tables.Participants)
	regs := repository.NewRegistrations(store, tables.Registrations)
	for _, p := range []model.Participant{
		{ClearID: "CLR-1", FullName: "Asha Rao", RegistrationNumber: "2021001", InstitutionalEmail: "asha@uni.edu", SchoolShort: "SOE", CreatedAt: meetDay},
		{ClearID: "CLR-2", FullName: "Asha Rao", RegistrationNumber: "2021001", InstitutionalEmail: "asha@uni.edu", SchoolShort: "SOE", CreatedAt: meetDay.Add(time.Minute)},
	} {
		So(ps.Put(ctx, p), ShouldBeNil)
	}
	for _, r := range []model.Registration{
		{EventID: "SIDI01", PlayerClearID: "CLR-1", CreatedAt: meetDay},
		{EventID: "SIDI01", PlayerClearID: "CLR-2", CreatedAt: meetDay},
		{EventID: "CHESS01", PlayerClearID: "CLR-2", EventName: "Chess", CreatedAt: meetDay},
	} {
		So(regs.Put(ctx, r), ShouldBeNil)
	}
}

func runMeet(ctx context.Context, store repository.Store) {
	svc := service.New(service.WithStore(store), service.WithClock(func() time.Time { return meetDay }))
	So(svc.Start(ctx), ShouldBeNil)
	defer svc.Stop()
	seedPeople(ctx, store)

	// schools
	for _, name := range []string{"SOE", "SOL"} {
		_, err := svc.CreateSchool(ctx, name)
		So(err, ShouldBeNil)
	}
	list, err := svc.ListSchools(ctx)
	So(err, ShouldBeNil)
	So(list, ShouldHaveLength, 2)

	// results
	res, err := svc.SubmitScores(ctx, results.Submission{
		EventType: model.EventIndividual,
		EventName: "100m",
		Winners: []results.Winner{
			{Position: 1, ChestNo: "101", Name: "Asha Rao", School: "SOE"},
			{Position: 2, ChestNo: "201", Name: "Ravi", School: "SOL"},
			{Position: 3, ChestNo: "102", Name: "Meera", School: "SOE"},
		},
	})
	So(err, ShouldBeNil)
	So(res.ItemsSaved, ShouldEqual, 4)

	_, err = svc.SubmitScores(ctx, results.Submission{
		EventType: model.EventTeam,
		EventName: "Relay",
		Team:      &results.TeamEntry{TeamName: "Lions", School: "SOL", Points: 8},
	})
	So(err, ShouldBeNil)

	board, err := svc.Scoreboard(ctx)
	So(err, ShouldBeNil)
	So(board.TopSchools[0].School, ShouldEqual, "SOL")
	So(board.TopSchools[0].TotalPoints, ShouldEqual, 11)
	So(board.TotalsPerSchool["SOE"].TotalPoints, ShouldEqual, 6)

	// Meera moves from third to fourth: SOE loses the third-place point.
	_, err = svc.EditWinner(ctx, results.Edit{
		EventID: "EVENT#100M", PositionID: "POS#03",
		EventName: "100m", Position: 4, ChestNo: "102", StudentName: "Meera", SchoolName: "SOE",
	})
	So(err, ShouldBeNil)
	board, err = svc.Scoreboard(ctx)
	So(err, ShouldBeNil)
	So(board.TotalsPerSchool["SOE"].TotalPoints, ShouldEqual, 5)

	err = svc.DeleteWinner(ctx, results.Removal{EventName: "100m", Position: 2, ChestNo: "201", StudentName: "Ravi", SchoolName: "SOE"})
	So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
	So(svc.DeleteWinner(ctx, results.Removal{EventName: "100m", Position: 2, ChestNo: "201", StudentName: "Ravi", SchoolName: "SOL"}), ShouldBeNil)

	err = svc.DeleteSchool(ctx, "SOE")
	So(errors.Is(err, errs.ErrConflict), ShouldBeTrue)

	// participants
	profile, err := svc.LookupParticipant(ctx, "asha@uni.edu")
	So(err, ShouldBeNil)
	So(profile.Participant.ClearID, ShouldEqual, "CLR-1")
	So(profile.Duplicates, ShouldHaveLength, 1)
	So(profile.RegisteredEvents, ShouldHaveLength, 2)

	marked, err := svc.MarkAttendance(ctx, "2021001", "SIDI01")
	So(err, ShouldBeNil)
	So(marked.UpdatedCount, ShouldEqual, 2)

	_, err = svc.AssignChestNumber(ctx, "CLR-1", "101")
	So(err, ShouldBeNil)

	rows, err := svc.Registrants(ctx, "SIDI01")
	So(err, ShouldBeNil)
	So(rows, ShouldHaveLength, 2)
	for _, row := range rows {
		So(row.Attendance, ShouldBeTrue)
		So(row.Duplicates, ShouldEqual, 1)
	}

	events, err := svc.Events(ctx)
	So(err, ShouldBeNil)
	So(events, ShouldHaveLength, 11)
	So(events[10].ID, ShouldEqual, "CHESS01")
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service over the memory store", t, func() {
		runMeet(context.Background(), repository.NewMemoryStore())
	})

	Convey("Given a service over a Redis store", t, func() {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		runMeet(context.Background(), repository.NewRedisStore(rdb, repository.WithKeyPrefix("it")))
	})
}
