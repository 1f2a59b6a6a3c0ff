package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/sportsmeet/internal/adapters/repository"
	app "github.com/okian/sportsmeet/internal/app"
	"github.com/okian/sportsmeet/internal/config"
	"github.com/okian/sportsmeet/pkg/logger"
	"github.com/okian/sportsmeet/pkg/metrics"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("SPORTSMEET_ADDR", ":8080")
			_ = os.Setenv("SPORTSMEET_TOP_SCHOOLS", "3")
			_ = os.Setenv("SPORTSMEET_TIE_BREAK", "first_seen")
			defer func() {
				_ = os.Unsetenv("SPORTSMEET_ADDR")
				_ = os.Unsetenv("SPORTSMEET_TOP_SCHOOLS")
				_ = os.Unsetenv("SPORTSMEET_TIE_BREAK")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.TopSchools, convey.ShouldEqual, 3)
				convey.So(cfg.TieBreak, convey.ShouldEqual, config.TieBreakFirstSeen)
			})

			convey.Convey("And the service should carry it", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)

				svc := app.New(serviceOptions(cfg, repository.NewMemoryStore(), nil)...)
				stats := svc.GetStats()
				convey.So(stats["topSchools"], convey.ShouldEqual, 3)
				convey.So(stats["tieBreak"], convey.ShouldEqual, "first_seen")
				convey.So(stats["attendanceFanOut"], convey.ShouldEqual, cfg.AttendanceFanOut)
				convey.So(stats["tables"].(map[string]string)["participants"], convey.ShouldEqual, "Users")
			})
		})

		convey.Convey("When translating store settings", func() {
			cfg := config.New(context.Background())
			cfg.StoreDriver = config.DriverRedis
			cfg.RedisPrefix = "meet"

			convey.Convey("Then every backend field is passed through", func() {
				s := storeSettings(cfg)
				convey.So(s.Driver, convey.ShouldEqual, config.DriverRedis)
				convey.So(s.RedisAddr, convey.ShouldEqual, cfg.RedisAddr)
				convey.So(s.RedisPrefix, convey.ShouldEqual, "meet")
				convey.So(s.DynamoRegion, convey.ShouldEqual, cfg.DynamoDBRegion)
				convey.So(s.DynamoConsistentReads, convey.ShouldBeTrue)
			})
		})
	})
}

func TestRouter(t *testing.T) {
	convey.Convey("Given a started service behind the router", t, func() {
		_ = logger.Init(logger.WithWriter(&strings.Builder{}))
		ctx := context.Background()
		cfg := config.New(ctx)

		svc := app.New(serviceOptions(cfg, repository.NewMemoryStore(), logger.Get())...)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		h := newRouter(ctx, cfg, svc)

		convey.Convey("Then the API and its reference are served", func() {
			for _, path := range []string{"/healthz", "/events", "/scoreboard", "/api-docs", "/openapi.yaml"} {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("And writes pass through the middleware stack", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/schools", strings.NewReader(`{"schoolName":"St. Marys"}`))
			req.Header.Set("X-Request-Id", "req-1")
			h.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusCreated)
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			convey.Convey("Then it should return when the context ends", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing system metrics update", func() {
			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(func() {
					updateSystemMetrics()
				}, convey.ShouldNotPanic)
			})
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given main application error handling", t, func() {
		convey.Convey("When testing invalid configuration", func() {
			_ = os.Setenv("SPORTSMEET_STORE_DRIVER", "postgres")
			defer func() { _ = os.Unsetenv("SPORTSMEET_STORE_DRIVER") }()

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When opening an unknown driver directly", func() {
			_, err := repository.Open(context.Background(), repository.Settings{Driver: "postgres"})

			convey.Convey("Then it should fail", func() {
				convey.So(errors.Is(err, repository.ErrUnknownDriver), convey.ShouldBeTrue)
			})
		})
	})
}

func TestMainApplicationPerformance(t *testing.T) {
	convey.Convey("Given main application performance", t, func() {
		convey.Convey("When testing component creation performance", func() {
			convey.Convey("Then service creation should be fast", func() {
				start := time.Now()
				svc := app.New()
				duration := time.Since(start)

				convey.So(svc, convey.ShouldNotBeNil)
				convey.So(duration, convey.ShouldBeLessThan, 100*time.Millisecond)
			})

			convey.Convey("And metrics manager creation should be fast", func() {
				start := time.Now()
				// Use a custom registry to avoid duplicate registration issues
				registry := prometheus.NewRegistry()
				manager := metrics.NewManager(metrics.WithPrometheusRegistry(registry))
				duration := time.Since(start)

				convey.So(manager, convey.ShouldNotBeNil)
				convey.So(duration, convey.ShouldBeLessThan, 100*time.Millisecond)
			})
		})
	})
}
