package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "sportsmeet")
				So(manager.enabled, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the names carry the namespace and labels", func() {
				manager.RecordWinnerEdit(OutcomeOK)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families, ShouldNotBeEmpty)
				found := false
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_winner_edits_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestManagerRecording(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		manager := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

		Convey("When a submission writes items", func() {
			manager.RecordScoreSubmission("individual", OutcomeOK, 4)
			manager.RecordScoreSubmission("team", OutcomeRejected, 0)

			So(testutil.ToFloat64(manager.scoreSubmissions.WithLabelValues("individual", OutcomeOK)), ShouldEqual, 1)
			So(testutil.ToFloat64(manager.scoreSubmissions.WithLabelValues("team", OutcomeRejected)), ShouldEqual, 1)
			So(testutil.ToFloat64(manager.scoreSlotsWritten), ShouldEqual, 4)
		})

		Convey("When an attendance fan-out partly fails", func() {
			manager.RecordAttendance("mark", 2, 1)

			So(testutil.ToFloat64(manager.attendanceUpdates.WithLabelValues("mark", "updated")), ShouldEqual, 2)
			So(testutil.ToFloat64(manager.attendanceUpdates.WithLabelValues("mark", "failed")), ShouldEqual, 1)
		})

		Convey("When the scoreboard is recomputed", func() {
			manager.RecordScoreboard(3.5, 12, 4)

			So(testutil.ToFloat64(manager.scoreboardRecords), ShouldEqual, 12)
			So(testutil.ToFloat64(manager.scoreboardSchools), ShouldEqual, 4)
		})
	})

	Convey("Given a disabled manager", t, func() {
		manager := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))

		Convey("Then observations are ignored", func() {
			manager.RecordStoreOperation("memory", "put", "ok", 1)
			manager.RecordScorePartialFailure()

			So(testutil.ToFloat64(manager.storeOperations.WithLabelValues("memory", "put", "ok")), ShouldEqual, 0)
			So(testutil.ToFloat64(manager.scorePartialFailures), ShouldEqual, 0)
		})
	})
}

func TestOutcome(t *testing.T) {
	Convey("Given operation errors", t, func() {
		userErr := errors.New("bad input")
		isUser := func(err error) bool { return errors.Is(err, userErr) }

		So(Outcome(nil, isUser), ShouldEqual, OutcomeOK)
		So(Outcome(userErr, isUser), ShouldEqual, OutcomeRejected)
		So(Outcome(errors.New("disk"), isUser), ShouldEqual, OutcomeFailed)
		So(Outcome(errors.New("disk"), nil), ShouldEqual, OutcomeFailed)
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global manager", t, func() {
		So(func() {
			RecordHTTPRequest("/score", "POST", "201", 2)
			RecordError("results", "/score", "POST", "client_error", "low", 1)
			RecordRateLimited("/score")
			UpdateSystem(1024, 10, 0.2)
		}, ShouldNotPanic)
		So(GetRegistry(), ShouldNotBeNil)
	})
}
