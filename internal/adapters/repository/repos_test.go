package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/sportsmeet/internal/adapters/repository"
	"github.com/okian/sportsmeet/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScores(t *testing.T) {
	Convey("Given score records in a memory store", t, func() {
		ctx := context.Background()
		tables := repository.DefaultTables()
		scores := repository.NewScores(repository.NewMemoryStore(), tables.Scores)
		at := time.Date(2025, 1, 20, 9, 30, 0, 0, time.UTC)
		zero := 0

		failed, err := scores.BatchPut(ctx, []model.ScoreRecord{
			{EventID: "EVENT#100M", SlotID: "METADATA", EventName: "100m", EventType: model.EventIndividual, TotalWinnersRecorded: 2, RecordedAt: at},
			{EventID: "EVENT#100M", SlotID: "POS#01", EventName: "100m", EventType: model.EventIndividual, Position: 1, ChestNo: "101", StudentName: "Asha", SchoolName: "SOE", RecordedAt: at},
			{EventID: "EVENT#100M", SlotID: "POS#02", EventName: "100m", EventType: model.EventIndividual, Position: 2, ChestNo: "102", StudentName: "Ravi", SchoolName: "SOL", Points: &zero, RecordedAt: at},
		})
		So(err, ShouldBeNil)
		So(failed, ShouldEqual, 0)

		Convey("Then records read back with every field", func() {
			rec, err := scores.Get(ctx, "EVENT#100M", "POS#02")
			So(err, ShouldBeNil)
			So(rec.StudentName, ShouldEqual, "Ravi")
			So(rec.Position, ShouldEqual, 2)
			So(rec.Points, ShouldNotBeNil)
			So(*rec.Points, ShouldEqual, 0)
			So(rec.RecordedAt.Equal(at), ShouldBeTrue)

			first, _ := scores.Get(ctx, "EVENT#100M", "POS#01")
			So(first.Points, ShouldBeNil)
		})

		Convey("Then slots come back ordered", func() {
			slots, err := scores.Slots(ctx, "EVENT#100M")
			So(err, ShouldBeNil)
			So(slots, ShouldHaveLength, 3)
			So(slots[0].SlotID, ShouldEqual, "METADATA")
			So(slots[0].TotalWinnersRecorded, ShouldEqual, 2)
		})

		Convey("Then school references exclude metadata", func() {
			n, err := scores.CountBySchool(ctx, "SOE")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
		})

		Convey("When deleting with mismatched details", func() {
			err := scores.DeleteMatching(ctx, "EVENT#100M", "POS#01", "101", "Asha ", "SOE")

			So(errors.Is(err, repository.ErrConditionFailed), ShouldBeTrue)
			_, err = scores.Get(ctx, "EVENT#100M", "POS#01")
			So(err, ShouldBeNil)
		})

		Convey("When deleting with exact details", func() {
			So(scores.DeleteMatching(ctx, "EVENT#100M", "POS#01", "101", "Asha", "SOE"), ShouldBeNil)
			_, err := scores.Get(ctx, "EVENT#100M", "POS#01")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When putting into an occupied slot with a free-slot guard", func() {
			free := false
			err := scores.Put(ctx, model.ScoreRecord{EventID: "EVENT#100M", SlotID: "POS#01"}, &free)
			So(errors.Is(err, repository.ErrConditionFailed), ShouldBeTrue)
		})
	})
}

func TestParticipantsAndRegistrations(t *testing.T) {
	Convey("Given duplicate participant records", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		tables := repository.DefaultTables()
		people := repository.NewParticipants(store, tables.Participants)
		regs := repository.NewRegistrations(store, tables.Registrations)

		So(people.Put(ctx, model.Participant{ClearID: "b", RegistrationNumber: "R1", InstitutionalEmail: "Asha@Uni.edu"}), ShouldBeNil)
		So(people.Put(ctx, model.Participant{ClearID: "a", RegistrationNumber: "R1", InstitutionalEmail: "asha@uni.edu"}), ShouldBeNil)
		So(people.Put(ctx, model.Participant{ClearID: "c", RegistrationNumber: "R2", InstitutionalEmail: "ravi@uni.edu"}), ShouldBeNil)

		Convey("Then email lookups ignore case and return sorted ids", func() {
			found, err := people.FindByEmail(ctx, " asha@uni.edu")
			So(err, ShouldBeNil)
			So(found, ShouldHaveLength, 2)
			So(found[0].ClearID, ShouldEqual, "a")
		})

		Convey("Then registration number lookups are exact", func() {
			found, err := people.FindByRegistrationNumber(ctx, "R2")
			So(err, ShouldBeNil)
			So(found, ShouldHaveLength, 1)
		})

		Convey("When assigning a chest number to an unknown id", func() {
			_, err := people.SetChestNumber(ctx, "zzz", "123")
			So(errors.Is(err, repository.ErrConditionFailed), ShouldBeTrue)
		})

		Convey("When attendance is marked", func() {
			at := time.Date(2025, 1, 20, 10, 0, 0, 0, time.UTC)
			So(regs.Put(ctx, model.Registration{EventID: "SIDI01", PlayerClearID: "a", CreatedAt: at}), ShouldBeNil)
			So(regs.SetAttendance(ctx, "SIDI01", "a", true, at), ShouldBeNil)

			reg, err := regs.Get(ctx, "SIDI01", "a")
			So(err, ShouldBeNil)
			So(reg.Attendance, ShouldBeTrue)
			So(reg.MarkedAt.Equal(at), ShouldBeTrue)

			byPeople, err := regs.ByParticipants(ctx, []string{"a", "b"})
			So(err, ShouldBeNil)
			So(byPeople, ShouldHaveLength, 1)

			So(errors.Is(regs.SetAttendance(ctx, "SIDI01", "b", true, at), repository.ErrConditionFailed), ShouldBeTrue)
		})
	})
}

func TestSchools(t *testing.T) {
	Convey("Given the school table", t, func() {
		ctx := context.Background()
		schools := repository.NewSchools(repository.NewMemoryStore(), repository.DefaultTables().Schools)

		So(schools.Create(ctx, model.School{SchoolID: "SCHOOL#SOL", SchoolName: "SOL"}), ShouldBeNil)
		So(schools.Create(ctx, model.School{SchoolID: "SCHOOL#SOE", SchoolName: "SOE"}), ShouldBeNil)

		Convey("Then duplicates are refused", func() {
			err := schools.Create(ctx, model.School{SchoolID: "SCHOOL#SOE", SchoolName: "SOE"})
			So(errors.Is(err, repository.ErrConditionFailed), ShouldBeTrue)
		})

		Convey("Then listing is sorted by name", func() {
			list, err := schools.List(ctx)
			So(err, ShouldBeNil)
			So(list[0].SchoolName, ShouldEqual, "SOE")
		})

		Convey("Then deleting a missing school fails the guard", func() {
			So(errors.Is(schools.Delete(ctx, "SCHOOL#NONE"), repository.ErrConditionFailed), ShouldBeTrue)
			So(schools.Delete(ctx, "SCHOOL#SOL"), ShouldBeNil)
		})
	})
}

func TestOpen(t *testing.T) {
	Convey("Given store settings", t, func() {
		s, err := repository.Open(context.Background(), repository.Settings{Driver: "memory"})
		So(err, ShouldBeNil)
		So(s.Driver(), ShouldEqual, "memory")

		_, err = repository.Open(context.Background(), repository.Settings{Driver: "cassandra"})
		So(errors.Is(err, repository.ErrUnknownDriver), ShouldBeTrue)
	})
}
