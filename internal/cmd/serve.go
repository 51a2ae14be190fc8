package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/netsblox/cloud/internal/collab"
	"github.com/netsblox/cloud/internal/config"
	"github.com/netsblox/cloud/internal/groups"
	"github.com/netsblox/cloud/internal/hosts"
	"github.com/netsblox/cloud/internal/projects"
	"github.com/netsblox/cloud/internal/reaper"
	"github.com/netsblox/cloud/internal/server"
	"github.com/netsblox/cloud/internal/storage"
	"github.com/netsblox/cloud/internal/topology"
)

const shutdownGrace = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the cloud daemon",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	log := logrus.WithField("component", "daemon")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// One daemon per host: acquiring the lock prevents a concurrent
	// start racing past any is-running check.
	lock := flock.New(filepath.Join(os.TempDir(), "nbcloud.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring daemon lock: %w", err)
	}
	if !locked {
		return errors.New("nbcloud already running (lock held by another process)")
	}
	defer func() { _ = lock.Unlock() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return fmt.Errorf("connecting to mongo: %w", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	db := client.Database(cfg.Mongo.Database)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3.Region))
	if err != nil {
		return fmt.Errorf("loading aws config: %w", err)
	}
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = &cfg.S3.Endpoint
			o.UsePathStyle = true
		}
	})

	projectStore := storage.NewMongoProjects(db)
	blobs := storage.NewS3Blobs(s3Client, cfg.S3.Bucket)
	cache := projects.NewMetadataCache(cfg.Cache.Capacity)

	topo := topology.New(projectStore)
	projectActions := projects.NewActions(projectStore, blobs, cache, server.NewTopologyNetwork(topo))
	collabActions := collab.NewActions(storage.NewMongoInvites(db), projectStore, cache, topo)
	groupActions := groups.NewActions(storage.NewMongoGroups(db), storage.NewMongoUsers(db))
	hostActions := hosts.NewActions(storage.NewMongoHosts(db))

	srv := server.New(topo, projectActions, collabActions, groupActions, hostActions)
	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: srv.Router(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("listen", cfg.Listen).Info("nbcloud listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		reaper.New(projectStore, cfg.ReaperInterval()).Run(ctx)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
