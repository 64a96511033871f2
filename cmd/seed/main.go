package main

import (
	"context"
	"flag"

	"coursehub/config"
	"coursehub/internal/infrastructure/logger"
	"coursehub/internal/repository"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	file := flag.String("file", "courses.yaml", "catalog file to load")
	flag.Parse()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer log.Sync()

	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("DB connection failed", "error", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatal("DB migration failed", "error", err)
	}

	n, err := repository.SeedCatalog(context.Background(), repository.NewCourseRepository(db, nil), *file)
	if err != nil {
		log.Fatal("seed failed", "file", *file, "error", err)
	}
	log.Info("catalog seeded", "file", *file, "courses", n)
}
