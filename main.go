package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beka-birhanu/vinom-tiles/api"
	api_i "github.com/beka-birhanu/vinom-tiles/api/i"
	"github.com/beka-birhanu/vinom-tiles/api/identity"
	runapi "github.com/beka-birhanu/vinom-tiles/api/run"
	"github.com/beka-birhanu/vinom-tiles/config"
	"github.com/beka-birhanu/vinom-tiles/grid"
	"github.com/beka-birhanu/vinom-tiles/infrastruture/cellarbiter"
	logger "github.com/beka-birhanu/vinom-tiles/infrastruture/log"
	"github.com/beka-birhanu/vinom-tiles/infrastruture/token"
	"github.com/beka-birhanu/vinom-tiles/pacing"
	"github.com/beka-birhanu/vinom-tiles/service"
	"github.com/beka-birhanu/vinom-tiles/service/i"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Global variables for dependencies
var (
	envs          config.Config
	tuning        config.Tuning
	redisClient   *redis.Client
	storeFactory  service.StoreFactory
	pacerFactory  service.PacerFactory
	runManager    *service.RunManager
	runController api_i.Controller
	jwtTokenizer  i.Tokenizer
	router        *api.Router
	appLogger     i.Logger
)

func initConfig() {
	var err error
	envs, err = config.Load()
	if err != nil {
		appLogger.Error(fmt.Sprintf("Loading configuration: %v", err))
		os.Exit(1)
	}
	gin.SetMode(envs.GinMode)

	if envs.TuningFile == "" {
		return
	}
	tuning, err = config.LoadTuning(envs.TuningFile)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Loading tuning file: %v", err))
		os.Exit(1)
	}
	appLogger.Info(fmt.Sprintf("Loaded %d grid presets from %s", len(tuning.Presets), envs.TuningFile))
}

func initRedis(ctx context.Context) {
	if envs.RedisAddr == "" {
		storeFactory = func(_ string, w, h int) (*grid.Store, error) { return grid.New(w, h) }
		appLogger.Info("Redis not configured, cells are arbitrated in process")
		return
	}

	redisClient = redis.NewClient(&redis.Options{
		Addr:     envs.RedisAddr,
		Password: envs.RedisPassword,
		DB:       envs.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		appLogger.Error(fmt.Sprintf("Redis ping failed: %v", err))
		os.Exit(1)
	}

	arbiterLogger, err := logger.New("CELL-ARBITER", config.ColorPurple, os.Stdout)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating cell arbiter logger: %v", err))
		os.Exit(1)
	}

	// Runs naming the same grid with the same dimensions contend for the same keys.
	storeFactory = func(gridName string, w, h int) (*grid.Store, error) {
		prefix := fmt.Sprintf("tiles:%s:%dx%d", gridName, w, h)
		arbiter := cellarbiter.NewRedisArbiter(redisClient, prefix, envs.ClaimTTL, arbiterLogger)
		return grid.New(w, h,
			grid.WithArbiter(arbiter),
			grid.WithReleaseErrors(func(pos grid.Position, err error) {
				arbiterLogger.Warning(fmt.Sprintf("releasing %s on grid %s: %v", pos, gridName, err))
			}),
		)
	}
	appLogger.Info("Connected to Redis, cells are arbitrated through cell locks")
}

func initPacing() {
	switch envs.PacingMode {
	case config.PacingLimited:
		pacerFactory = func(ms int) pacing.Pacer { return pacing.Limited(time.Duration(ms)*time.Millisecond, 1) }
	default:
		pacerFactory = func(ms int) pacing.Pacer { return pacing.Fixed(time.Duration(ms) * time.Millisecond) }
	}
	appLogger.Info(fmt.Sprintf("Pacing mode %s, %dms per attempt by default", envs.PacingMode, envs.PacingMs))
}

func initRunManager() {
	runLogger, err := logger.New("RUN-MANAGER", config.ColorCyan, os.Stdout)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating run manager logger: %v", err))
		os.Exit(1)
	}

	runManager, err = service.NewRunManager(&service.Config{
		StoreFactory: storeFactory,
		PacerFactory: pacerFactory,
		Tuning:       tuning,
		Defaults: i.RunRequest{
			Width:    envs.GridWidth,
			Height:   envs.GridHeight,
			PacingMs: envs.PacingMs,
		},
		Retention: time.Duration(envs.RunRetention) * time.Second,
		Logger:    runLogger,
	})
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating run manager: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Run manager initialized")
}

func initRunController() {
	var err error
	runController, err = runapi.NewRunController(runManager)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating run controller: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Run controller initialized")
}

func initJWTTokenizer() {
	jwtTokenizer = token.NewJwtService(envs.JWTSecret, envs.JWTIssuer)
	appLogger.Info("JWT Tokenizer initialized")
}

func initRouter(t i.Tokenizer) {
	router = api.NewRouter(api.Config{
		Addr:                    fmt.Sprintf("%s:%v", envs.HostIP, envs.RESTPort),
		BaseURL:                 "/api",
		Controllers:             []api_i.Controller{runController},
		AuthorizationMiddleware: identity.Authorize(t, identity.RoleOperator),
	})
	appLogger.Info("Router initialized")
}

func main() {
	appLogger, _ = logger.New("APP", config.ColorGreen, os.Stdout)

	initConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	initRedis(ctx)
	cancel()

	initPacing()
	initRunManager()
	initRunController()
	initJWTTokenizer()
	initRouter(jwtTokenizer)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- router.Run()
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case err := <-serverErr:
		appLogger.Error(fmt.Sprintf("Starting server: %v", err))
		exitCode = 1
	case sig := <-signals:
		appLogger.Info(fmt.Sprintf("Received %s, stopping runs", sig))
	}

	// Releases every held cell, including the Redis locks of shared grids.
	runManager.StopAll()
	if redisClient != nil {
		_ = redisClient.Close()
	}
	os.Exit(exitCode)
}
