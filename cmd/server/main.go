package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"veo-director/config"
	"veo-director/internal/appdirs"
	"veo-director/internal/assets"
	"veo-director/internal/credential"
	"veo-director/internal/handler"
	"veo-director/internal/metrics"
	"veo-director/internal/orchestrator"
	"veo-director/internal/queue"
	"veo-director/internal/router"
	"veo-director/internal/server"
	"veo-director/internal/service"
	"veo-director/internal/session"
	"veo-director/internal/storage"
	"veo-director/internal/taskrunner"
	"veo-director/log"
	"veo-director/pkg/gemini"
	"veo-director/pkg/openai"
)

func main() {
	opts, handled, exitCode := handleCLIFlags(os.Args, os.Stdout, os.Stderr)
	if handled {
		os.Exit(exitCode)
	}

	log.InitLogger()
	defer log.GetLogger().Sync()

	config.UseConfigFile(opts.configPath)
	if !config.LoadConfig() {
		os.Exit(1)
	}
	if err := config.CheckConfig(); err != nil {
		log.GetLogger().Error("invalid config", zap.Error(err))
		os.Exit(1)
	}

	if err := run(); err != nil {
		log.GetLogger().Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

type dispatcher interface {
	service.Dispatcher
	Close() error
}

func run() error {
	conf := config.Conf
	paths, err := appdirs.Resolve()
	if err != nil {
		return err
	}
	clipRoot := appdirs.ClipRootFor(paths)

	var collector *metrics.Collector
	if conf.Metrics.Enabled {
		collector = metrics.NewCollector(metrics.Namespace)
	}

	store, err := assets.New(conf.Assets, clipRoot)
	if err != nil {
		return err
	}

	var persister session.Persister
	var sessionStore *storage.SessionStore
	if conf.Session.Persist {
		db, err := storage.InitDB()
		if err != nil {
			return err
		}
		sessionStore = storage.NewSessionStore(db)
		persister = sessionStore
	}
	manager := session.NewManager(store, persister, collector)

	if sessionStore != nil {
		restoreSessions(sessionStore, manager)
	}

	broker := credential.NewBroker(conf.Gemini.ApiKey)
	geminiClient := gemini.NewClient(broker, conf.Gemini, conf.Scripting.SceneSeconds)

	var scripter service.Scripter = geminiClient
	if conf.Scripting.Provider == "openai" {
		scripter = openai.NewClient(conf.Scripting.Openai, conf.Scripting.SceneSeconds)
	}

	orchOpts := orchestrator.Options{
		PollInterval: conf.PollInterval(),
		JobTimeout:   conf.JobTimeout(),
		Metrics:      collector,
	}
	if conf.Credential.Interactive {
		orchOpts.Credentials = broker
	}
	orch := orchestrator.New(geminiClient, store, orchOpts)

	svc := &service.Service{
		Sessions:       manager,
		Analyzer:       geminiClient,
		Scripter:       scripter,
		Orchestrator:   orch,
		Assets:         store,
		Credentials:    broker,
		Metrics:        collector,
		UploadRoot:     appdirs.UploadRootFor(paths),
		MaxUploadBytes: conf.MaxUploadBytes(),
		SceneSeconds:   conf.Scripting.SceneSeconds,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	var tasks dispatcher
	if conf.Queue.Enabled {
		q := queue.NewQueue(conf.Queue)
		if err = q.Start(svc); err != nil {
			return err
		}
		tasks = q
	} else {
		tasks = runnerDispatcher{taskrunner.New(svc, taskrunner.Config{
			QueueSize:        conf.Orchestrator.QueueSize,
			Concurrency:      conf.Orchestrator.Workers,
			BatchConcurrency: conf.Orchestrator.BatchWorkers,
		})}
	}
	svc.Dispatcher = tasks

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	router.SetupRouter(engine, router.Options{
		Handler:     handler.NewHandler(svc, clipRoot),
		Metrics:     collector,
		MetricsPath: conf.Metrics.Path,
	})

	g.Go(func() error {
		return server.New(conf.ListenAddr(), engine).Run(gctx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	// Jobs commit their failure before the sessions go away.
	if cerr := tasks.Close(); cerr != nil {
		log.GetLogger().Warn("close task dispatcher", zap.Error(cerr))
	}
	orch.Shutdown()
	manager.Shutdown(context.Background(), !conf.Session.Persist)
	log.GetLogger().Info("shutdown complete")
	return err
}

func restoreSessions(store *storage.SessionStore, manager *session.Manager) {
	ctx := context.Background()
	if count, err := store.MarkStaleSessions(ctx); err != nil {
		log.GetLogger().Warn("failed to mark stale sessions", zap.Error(err))
	} else if count > 0 {
		log.GetLogger().Info("marked interrupted scenes as failed", zap.Int64("count", count))
	}

	states, err := store.LoadSessions(ctx)
	if err != nil {
		log.GetLogger().Warn("failed to load sessions", zap.Error(err))
		return
	}
	log.GetLogger().Info("sessions restored", zap.Int("count", manager.Restore(ctx, states)))
}

type runnerDispatcher struct {
	*taskrunner.Runner
}

func (d runnerDispatcher) Close() error {
	d.Runner.Close()
	return nil
}
