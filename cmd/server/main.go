package main // Entry point package

import (
    "log"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/beacon-attendance/internal/beacon"
    "github.com/iliyamo/beacon-attendance/internal/config"
    "github.com/iliyamo/beacon-attendance/internal/database"
    "github.com/iliyamo/beacon-attendance/internal/handler"
    "github.com/iliyamo/beacon-attendance/internal/queue"
    "github.com/iliyamo/beacon-attendance/internal/repository"
    "github.com/iliyamo/beacon-attendance/internal/router"
    "github.com/iliyamo/beacon-attendance/internal/token"
)

func main() {
    // .env is a convenience for local development; in production the
    // variables come from the environment and the file is absent.
    _ = godotenv.Load()

    cfg := config.Load()
    rlCfg := config.LoadRateLimitConfig()

    // Every view the API returns advertises this identifier; a typo in
    // BEACON_IDENTIFIER would split the broadcaster and scanner fleets,
    // so a malformed value stops startup.
    beaconID, err := beacon.ParseIdentifier(cfg.BeaconIdentifier)
    if err != nil {
        log.Fatalf("invalid BEACON_IDENTIFIER %q: %v", cfg.BeaconIdentifier, err)
    }

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("open database: %v", err)
    }
    defer db.Close()
    if err := database.Migrate(db); err != nil {
        log.Fatalf("migrate: %v", err)
    }

    // Nil when Redis is unreachable; the limiter is skipped then.
    rdb := config.NewRedisClient()

    sessionRepo := repository.NewSessionRepo(db)
    attendanceRepo := repository.NewAttendanceRepo(db)
    orgRepo := repository.NewOrgRepo(db)
    userRepo := repository.NewUserRepo(db)
    tokenRepo := repository.NewTokenRepo(db)

    gen := token.NewGenerator(cfg.TokenMinEntropy, cfg.TokenMaxAttempts, sessionRepo)

    authHandler := handler.NewAuthHandler(cfg, userRepo, orgRepo, tokenRepo)
    sessionHandler := handler.NewSessionHandler(cfg, beaconID, sessionRepo, orgRepo, tokenRepo, gen)
    attendanceHandler := handler.NewAttendanceHandler(sessionRepo, attendanceRepo, userRepo, orgRepo)

    // The attendance event consumer runs for the life of the process
    // and reconnects on its own; a broker outage only pauses the side
    // channel.
    go func() {
        if err := queue.StartAttendanceConsumer(); err != nil {
            log.Printf("attendance consumer stopped: %v", err)
        }
    }()

    e := echo.New()
    router.RegisterRoutes(e)
    router.RegisterAuth(e, authHandler, cfg.JWTSecret)
    router.RegisterSessions(e, sessionHandler, attendanceHandler, cfg.JWTSecret, rlCfg, rdb)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
