package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/kit/log"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"

	stdopentracing "github.com/opentracing/opentracing-go"
	stdzipkin "github.com/openzipkin/zipkin-go"
	zipkinhttp "github.com/openzipkin/zipkin-go/reporter/http"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danwhite-au/postradius/geonames"
	"github.com/danwhite-au/postradius/inmem"
	"github.com/danwhite-au/postradius/search"
)

func main() {
	var (
		httpAddr  = flag.String("http.addr", ":8080", "HTTP listen address")
		zipkinURL = flag.String("zipkin.url", "", "Zipkin collector URL, e.g. http://localhost:9411/api/v2/spans")
		country   = flag.String("data.country", "AU", "geonames country bundle to load")
		cacheDir  = flag.String("data.cache", ".", "directory holding the cached geonames archive")
		dataURL   = flag.String("data.url", geonames.DefaultBaseURL, "base URL of the geonames postal-code export")
	)
	flag.Parse()

	var logger log.Logger
	{
		logger = log.NewLogfmtLogger(os.Stderr)
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}

	var zipkinTracer *stdzipkin.Tracer
	{
		if *zipkinURL != "" {
			reporter := zipkinhttp.NewReporter(*zipkinURL)
			defer reporter.Close()

			zEP, _ := stdzipkin.NewEndpoint("postradius", *httpAddr)
			var err error
			zipkinTracer, err = stdzipkin.NewTracer(reporter, stdzipkin.WithLocalEndpoint(zEP))
			if err != nil {
				logger.Log("err", err)
				os.Exit(1)
			}
			logger.Log("tracer", "Zipkin", "url", *zipkinURL)
		}
	}
	otTracer := stdopentracing.GlobalTracer()

	// The centroid table is loaded once here and shared read-only for the
	// lifetime of the process.
	src := &geonames.Source{
		Country:  *country,
		BaseURL:  *dataURL,
		CacheDir: *cacheDir,
		Logger:   log.With(logger, "component", "geonames"),
	}
	points, err := src.Load(context.Background())
	if err != nil {
		logger.Log("err", err)
		os.Exit(1)
	}
	postcodes := inmem.NewPostcodeRepository(points)
	logger.Log("country", *country, "postcodes", len(points))

	duration := kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
		Namespace: "postradius",
		Subsystem: "search",
		Name:      "request_duration_seconds",
		Help:      "Request duration in seconds.",
	}, []string{"method", "success"})

	var svc search.Service
	{
		svc = search.NewService(postcodes)
		svc = search.NewLoggingService(log.With(logger, "component", "search"), svc)
	}

	endpoints := search.NewSet(svc, logger, duration, otTracer, zipkinTracer)
	httpHandler := search.MakeHTTPHandler(endpoints, log.With(logger, "component", "HTTP"), zipkinTracer)

	mux := http.NewServeMux()
	mux.Handle("/search/v1/", httpHandler)
	mux.Handle("/metrics", promhttp.Handler())

	errs := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errs <- fmt.Errorf("%s", <-c)
	}()
	go func() {
		logger.Log("transport", "HTTP", "addr", *httpAddr)
		errs <- http.ListenAndServe(*httpAddr, mux)
	}()

	logger.Log("exit", <-errs)
}
