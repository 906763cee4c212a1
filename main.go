package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"crate-registry/config"
	"crate-registry/orm"
	"crate-registry/registry"
	"crate-registry/registry/filesystemStore"
	"crate-registry/registry/memoryStore"
	"crate-registry/registry/s3"
)

// The metadata core exposes no transport of its own; this entrypoint
// runs migrations and the idempotent bootstrap, then verifies the
// configured artifact store. The embedding API layer links the
// registry, orm and auth packages directly.
func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	setupLogging(config.Cfg)

	db := orm.InitDB(config.Cfg)

	err := db.Bootstrap(context.Background(), config.Cfg.AdminUsername)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to bootstrap seed state")
	}

	store := initializeArtifactStore()

	service := registry.NewService(db, store)
	if err := service.CheckStore(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("artifact store check failed")
	}

	log.Info().
		Str("persistence", config.Cfg.Persistence.Type).
		Msg("crate registry metadata store ready")
}

func setupLogging(cfg *config.AppConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.HumanReadableOutput {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func initializeArtifactStore() registry.ArtifactStore {
	var store registry.ArtifactStore

	switch config.Cfg.Persistence.Type {
	case "filesystem":
		store = initFilesystemStore()
	case "s3":
		store = initS3Store()
	case "memory":
		store = memoryStore.New()
	default:
		log.Warn().Msgf("unknown persistence type '%s', defaulting to filesystem", config.Cfg.Persistence.Type)
		store = initFilesystemStore()
	}

	return store
}

func initFilesystemStore() registry.ArtifactStore {
	fsStore, err := filesystemStore.New(config.Cfg.Persistence.StorageDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize filesystem store")
	}
	log.Info().
		Str("storage_dir", config.Cfg.Persistence.StorageDir).
		Msg("filesystem artifact store initialized")

	return fsStore
}

func initS3Store() registry.ArtifactStore {
	s3Store, err := s3.New(config.Cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize s3 store")
	}
	log.Info().Msg("s3 artifact store initialized")

	return s3Store
}
