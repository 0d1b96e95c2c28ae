package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ShiinaKin/random-img/app/controllers"
	"github.com/ShiinaKin/random-img/app/repository"
	"github.com/ShiinaKin/random-img/internal/pkg/cache"
	"github.com/ShiinaKin/random-img/internal/pkg/cloudreve"
	"github.com/ShiinaKin/random-img/internal/pkg/database"
	"github.com/ShiinaKin/random-img/internal/pkg/env"
	"github.com/ShiinaKin/random-img/internal/pkg/router"
	"github.com/ShiinaKin/random-img/internal/pkg/s3store"
	"github.com/ShiinaKin/random-img/internal/pkg/service"
	"github.com/ShiinaKin/random-img/internal/pkg/snowflake"
	"github.com/ShiinaKin/random-img/internal/pkg/taskpool"
)

func main() {
	app, pools := NewApplication()

	// drain accepted work before exit
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		log.Info("[Main] shutting down")
		if err := app.Shutdown(); err != nil {
			log.Errorf("[Main] server shutdown failed: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "0.0.0.0"), env.GetEnv("APP_PORT", "8080"))
	if err := app.Listen(addr); err != nil {
		log.Errorf("[Main] server stopped: %v", err)
	}
	for _, pool := range pools {
		pool.Stop()
	}
}

func NewApplication() (*fiber.App, []*taskpool.Pool) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	s3cfg, err := s3store.LoadConfig()
	if err != nil {
		log.Fatalf("[Main] s3 configuration invalid: %v", err)
	}
	store, err := s3store.NewClient(s3cfg)
	if err != nil {
		log.Fatalf("[Main] s3 client setup failed: %v", err)
	}

	notifier := cloudreve.NewClient(cloudreve.LoadConfig(), cloudreve.NewMemorySessionStore())

	shard, err := strconv.ParseInt(env.GetEnv("SNOWFLAKE_SHARD", "0"), 10, 64)
	if err != nil {
		log.Fatalf("[Main] SNOWFLAKE_SHARD invalid: %v", err)
	}
	ids, err := snowflake.NewGenerator(shard)
	if err != nil {
		log.Fatalf("[Main] id generator setup failed: %v", err)
	}

	uploadPool := taskpool.NewPool("upload", 2, 16)
	destructivePool := taskpool.NewSerial("destructive", 16)
	uploadPool.Start()
	destructivePool.Start()

	repos := repository.GetGlobalRepositories()
	imageService := service.NewImageService(
		repos.Image,
		repos.PostImage,
		cache.Store{},
		store,
		notifier,
		ids,
		env.GetEnvList("PERSIST_ORIGINS"),
		destructivePool,
	)
	uploadService := service.NewUploadService(
		repos.Image,
		store,
		notifier,
		ids,
		uploadPool,
		s3cfg.CDNUrl,
	)
	controllers.Initialize(imageService, uploadService)

	app := fiber.New(fiber.Config{
		BodyLimit: 512 * 1024 * 1024, // batch archives get large
	})
	app.Use(recover.New(), logger.New())

	router.InstallRouter(app)

	return app, []*taskpool.Pool{uploadPool, destructivePool}
}
