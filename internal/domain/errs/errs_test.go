package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/okian/sportsmeet/internal/domain/errs"
	. "github.com/smartystreets/goconvey/convey"
)

func TestKinds(t *testing.T) {
	Convey("Given classified errors", t, func() {
		Convey("NewKind uses the kind text", func() {
			err := errs.NewKind("results.submit", errs.ErrNotFound)
			So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "not found")
		})

		Convey("Newf formats the message and keeps the kind", func() {
			err := errs.Newf("results.edit", errs.ErrConflict, "%s: POS#%02d", errs.ReasonPositionTaken, 1)
			So(err.Error(), ShouldEqual, "PositionTaken: POS#01")
			So(errs.KindOf(err), ShouldEqual, errs.ErrConflict)
			So(errs.IsCallerError(err), ShouldBeTrue)
		})

		Convey("WrapKind keeps the cause reachable", func() {
			cause := errors.New("boom")
			err := errs.WrapKind("op", errs.ErrValidation, cause)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
			So(errs.WrapKind("op", errs.ErrValidation, nil), ShouldBeNil)
		})
	})
}

func TestWrap(t *testing.T) {
	Convey("Given Wrap", t, func() {
		Convey("Unclassified errors become storage errors with the backend text", func() {
			err := errs.Wrap("store.put", errors.New("ProvisionedThroughputExceededException"))
			So(errors.Is(err, errs.ErrStorage), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "ProvisionedThroughputExceededException")
			So(errs.IsCallerError(err), ShouldBeFalse)
		})

		Convey("Classified errors keep their kind across layers", func() {
			inner := errs.Validation("keys.event", "eventName is required")
			err := errs.Wrap("results.submit", fmt.Errorf("submit: %w", inner))
			So(errs.KindOf(err), ShouldEqual, errs.ErrValidation)
		})

		Convey("nil stays nil", func() {
			So(errs.Wrap("op", nil), ShouldBeNil)
		})
	})
}

func TestPartial(t *testing.T) {
	Convey("Given a partial batch failure", t, func() {
		err := errs.Partial("results.submit", 3, 5)

		So(errors.Is(err, errs.ErrStorage), ShouldBeTrue)
		So(err.Error(), ShouldEqual, "partial failure: 2 of 5 items were not saved, please try again")

		var pe *errs.PartialError
		So(errors.As(err, &pe), ShouldBeTrue)
		So(pe.Saved, ShouldEqual, 3)
	})
}
