package main

import (
	"context"
	"flag"
	"fmt"
	"log/syslog"
	"os"
	"os/signal"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/leaflink/leaflink"
	"github.com/leaflink/leaflink/inmem"
	"github.com/leaflink/leaflink/persistent"
	"github.com/leaflink/leaflink/transport/rest"
	"github.com/sirupsen/logrus"
	logrusys "github.com/sirupsen/logrus/hooks/syslog"
	"github.com/tidwall/buntdb"
	"github.com/uptrace/bun/extra/bundebug"
)

type config struct {
	debug        bool
	syslog       bool
	pgDsn        string
	buntdbPath   string
	listenAddr   string
	allowOrigins string
}

func configFromEnv() config {
	envOr := func(key string, fallback string) string {
		value := os.Getenv(key)
		if value == "" {
			return fallback
		}
		return value
	}
	debug := os.Getenv("DEBUG") == "true"
	listenAddr := envOr("LISTEN_ADDR", ":2137")
	if debug && os.Getenv("LISTEN_ADDR") == "" {
		listenAddr = "127.0.0.1:2137"
	}
	return config{
		debug:        debug,
		syslog:       os.Getenv("SYSLOG") == "true",
		pgDsn:        os.Getenv("POSTGRES_DSN"),
		buntdbPath:   envOr("BUNTDB_PATH", "kv.db"),
		listenAddr:   listenAddr,
		allowOrigins: envOr("ALLOW_ORIGINS", "*"),
	}
}

func listenAndServe(
	config config,
	profileStore leaflink.ProfileStore,
	sessionStore leaflink.SessionStore,
) func() error {
	profileService := &leaflink.ProfileService{Store: profileStore, Clock: leaflink.SystemClock{}}
	profileController := rest.ProfileController{Service: profileService}
	authController := rest.AuthController{SessionStore: sessionStore}

	server := fiber.New()
	server.Use(rest.LogHandler())

	api := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: rest.ErrorHandler,
	})
	api.Use(cors.New(cors.Config{AllowOrigins: config.allowOrigins}))

	requestAuthorizer := rest.RequestAuthorizer(sessionStore)
	optionalAuthorizer := rest.OptionalAuthorizer(sessionStore)
	api.Get("/status", monitor.New())
	authController.InstallTo(requestAuthorizer, api)
	profileController.InstallTo(requestAuthorizer, optionalAuthorizer, api)

	server.Mount("/api/", api)
	server.Use(rest.NotFoundHandler)

	go func() {
		if err := server.Listen(config.listenAddr); err != nil {
			logrus.WithError(err).Errorln("Fiber listen failed.")
		}
	}()

	return server.Shutdown
}

func setupLogger(verbose bool, useSyslog bool) {
	logrus.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: time.Stamp,
		FullTimestamp:   true,
	})
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if !useSyslog {
		return
	}

	syslogHook, err := logrusys.NewSyslogHook("", "", syslog.LOG_USER, "leaflink")
	if err != nil {
		logrus.WithError(err).Fatalln("Could not create syslog hook.")
		return
	}
	logrus.AddHook(syslogHook)
}

func openProfileStore(ctx context.Context, config config, bdb *buntdb.DB, useInmem bool) (leaflink.ProfileStore, func()) {
	if useInmem {
		logrus.Infoln("Keeping profiles in memory.")
		store := inmem.NewProfileStore()
		return &store, func() {}
	}
	if config.pgDsn == "" {
		logrus.Infoln("POSTGRES_DSN not set, keeping profiles in buntdb.")
		return &persistent.BuntProfileStore{Buntdb: bdb}, func() {}
	}

	logrus.Infoln("Opening database.")
	pg := persistent.PgOpen(ctx, config.pgDsn)
	if config.debug && os.Getenv("DB_VERBOSE") != "true" {
		pg.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	store := &persistent.PgProfileStore{DB: pg}
	if err := store.CreateSchema(ctx); err != nil {
		logrus.WithError(err).Fatalln("Could not create profile schema.")
	}
	return store, func() {
		pg.Close()
	}
}

func awaitInterruption() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
}

func main() {
	issueToken := flag.String("issue-token", "", "print a fresh bearer token for the given account and exit")
	useInmem := flag.Bool("inmem", false, "keep profiles in memory")
	flag.Parse()

	config := configFromEnv()
	setupLogger(config.debug, config.syslog)
	logrus.Infoln("Starting backend.")

	bdb, err := buntdb.Open(config.buntdbPath)
	if err != nil {
		logrus.WithError(err).Fatalln("Could not open buntdb.")
	}
	defer bdb.Close()
	sessionStore := &persistent.SessionStore{Buntdb: bdb}

	ctx := context.Background()
	if *issueToken != "" {
		session, err := sessionStore.RegisterNew(ctx, leaflink.AccountId(*issueToken), "", "issue-token")
		if err != nil {
			logrus.WithError(err).Fatalln("Could not issue token.")
		}
		fmt.Println(session.Token)
		return
	}

	profileStore, closeStore := openProfileStore(ctx, config, bdb, *useInmem)
	defer closeStore()

	logrus.WithField("addr", config.listenAddr).Infoln("Starting listening... To shut down use ^C")
	shutdown := listenAndServe(config, profileStore, sessionStore)

	awaitInterruption()

	logrus.Infoln("Shutting down...")
	err = shutdown()
	if err != nil {
		logrus.WithError(err).Warningln("Fiber shutdown failed.")
	}
}
