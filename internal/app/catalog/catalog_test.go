package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/sportsmeet/internal/app/catalog"
	"github.com/okian/sportsmeet/internal/domain/errs"
	"github.com/okian/sportsmeet/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type stubRegs struct {
	regs []model.Registration
	err  error
}

func (s stubRegs) All(context.Context) ([]model.Registration, error) { return s.regs, s.err }

func ids(events []model.CatalogEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()

	Convey("Given the built-in catalog", t, func() {
		c := catalog.New(nil)

		Convey("Then it lists the ten standard events", func() {
			events, err := c.Events(ctx)
			So(err, ShouldBeNil)
			So(events, ShouldHaveLength, 10)
			So(events[0], ShouldResemble, model.CatalogEvent{ID: "SIDI01", Name: "100m", Category: model.CategoryTrack})
			So(events[9].Name, ShouldEqual, "Long Jump")
		})

		Convey("Then unknown ids resolve to the placeholder", func() {
			So(c.Resolve("SIDI07").Name, ShouldEqual, "Shot Put")
			unknown := c.Resolve("X99")
			So(unknown.Name, ShouldEqual, catalog.UnknownEventName)
			So(unknown.Category, ShouldEqual, model.CategoryUnknown)
			So(unknown.ID, ShouldEqual, "X99")
		})
	})

	Convey("Given registrations for events outside the static list", t, func() {
		c := catalog.New(stubRegs{regs: []model.Registration{
			{EventID: "SIDI01", EventName: "Hundred"},
			{EventID: "TEAM02", EventName: "Relay", Category: model.CategoryTeam},
			{EventID: "CHESS", PlayerClearID: "a"},
			{EventID: "TEAM02", PlayerClearID: "b"},
		}})

		Convey("Then derived events follow the static list sorted by id", func() {
			events, err := c.Events(ctx)
			So(err, ShouldBeNil)
			So(events, ShouldHaveLength, 12)
			So(ids(events[10:]), ShouldResemble, []string{"CHESS", "TEAM02"})
			So(events[0].Name, ShouldEqual, "100m")
			So(events[10].Name, ShouldEqual, "CHESS")
			So(events[10].Category, ShouldEqual, model.CategoryUnknown)
			So(events[11].Category, ShouldEqual, model.CategoryTeam)
		})
	})

	Convey("Given a configured list", t, func() {
		c := catalog.New(nil, catalog.WithEvents([]model.CatalogEvent{{ID: "E1", Name: "Chess"}}))

		Convey("Then it replaces the built-in one", func() {
			events, err := c.Events(ctx)
			So(err, ShouldBeNil)
			So(events, ShouldResemble, []model.CatalogEvent{{ID: "E1", Name: "Chess", Category: model.CategoryUnknown}})
			_, ok := c.Lookup("SIDI01")
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a failing registration table", t, func() {
		c := catalog.New(stubRegs{err: errors.New("boom")})
		_, err := c.Events(ctx)
		So(errors.Is(err, errs.ErrStorage), ShouldBeTrue)
	})
}
