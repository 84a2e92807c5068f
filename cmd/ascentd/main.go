package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"

	"github.com/ChristopherRabotin/ascent"
	"github.com/ChristopherRabotin/ascent/server"
	kitlog "github.com/go-kit/log"
)

// This command serves an interactive ascent paced by the wall clock.

var (
	scenario string
	addr     string
)

func init() {
	flag.StringVar(&scenario, "scenario", ascent.DefaultScenarioPath(), "scenario TOML file")
	flag.StringVar(&addr, "addr", ":8087", "listen address")
}

func main() {
	flag.Parse()
	conf, err := ascent.LoadScenario(scenario)
	if err != nil {
		log.Fatalf("%s: %s", scenario, err)
	}
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)
	m, err := ascent.NewMission(conf, logger)
	if err != nil {
		log.Fatal(err)
	}
	srv, err := server.New(m, logger)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go srv.Run(ctx, conf.Sim.Tick)

	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}
	go func() {
		<-ctx.Done()
		httpSrv.Shutdown(context.Background())
	}()
	logger.Log("level", "notice", "subsys", "server", "addr", addr, "scenario", conf.Name)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
