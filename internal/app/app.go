// Package app wires the engine together and drives one run of the program.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/primoscope/CoomerDL-sub000/internal/cfg"
	"github.com/primoscope/CoomerDL-sub000/internal/database"
	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
	"github.com/primoscope/CoomerDL-sub000/internal/domain/keys"
	"github.com/primoscope/CoomerDL-sub000/internal/downloader"
	"github.com/primoscope/CoomerDL-sub000/internal/factory"
	"github.com/primoscope/CoomerDL-sub000/internal/models"
	"github.com/primoscope/CoomerDL-sub000/internal/queue"
	"github.com/primoscope/CoomerDL-sub000/internal/repo"
	"github.com/primoscope/CoomerDL-sub000/internal/server"
	"github.com/primoscope/CoomerDL-sub000/internal/utils/logging"
)

// App holds the assembled engine for one program run.
type App struct {
	db       *database.Database
	store    *repo.Store
	manager  *queue.Manager
	notifier *Notifier
	settings models.DownloadSettings
	serve    bool
	addr     string
}

// New assembles the engine from the bound configuration: database, stores,
// downloader factory, and the job queue manager.
func New() (*App, error) {
	settings, err := cfg.DownloadSettings()
	if err != nil {
		return nil, err
	}

	db, err := database.InitDB(viper.GetString(keys.DBPath))
	if err != nil {
		return nil, err
	}

	a := &App{
		db:       db,
		store:    repo.InitStores(db.DB),
		settings: settings,
		serve:    viper.GetBool(keys.Serve),
		addr:     viper.GetString(keys.ListenAddr),
	}

	var cookies *downloader.CookieManager
	if settings.CookieSource != "" {
		cookies = downloader.NewCookieManager()
	}

	f := factory.New(downloader.Deps{
		Settings:   settings,
		Store:      a.store.DownloadStore(),
		Cookies:    cookies,
		OnProgress: a.publishProgress,
	})

	a.manager = queue.NewManager(a.store, f, cfg.QueueOptions())

	if urls := viper.GetStringSlice(keys.WebhookURLs); len(urls) > 0 {
		a.notifier = NewNotifier(urls)
	}
	return a, nil
}

// Run executes one program run: start the queue, submit the requested URLs,
// and either wait for them to finish or serve the control API until the
// context ends.
func (a *App) Run(ctx context.Context) error {
	if days := viper.GetInt(keys.PurgeOlderThan); days > 0 {
		cutoff := time.Now().AddDate(0, 0, -days)
		purged, err := a.store.JobStore().PurgeHistory(cutoff)
		if err != nil {
			return fmt.Errorf("failed to purge job history: %w", err)
		}
		if purged > 0 {
			logging.I("Purged %d finished job(s) older than %s", purged, cutoff.Format("2006-01-02"))
		}
	}

	// Subscribe before anything can finish so no terminal event is missed.
	events, unsubscribe := a.manager.Subscribe(64)
	defer unsubscribe()

	if a.notifier != nil {
		notifyEvents, unsubNotify := a.manager.Subscribe(64)
		defer unsubNotify()
		go a.notifier.Run(ctx, notifyEvents)
	}

	if err := a.manager.Start(); err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	if a.serve {
		go func() {
			serveErr <- server.Start(ctx, a.addr, a.manager, a.store)
		}()
	}

	urls, err := cfg.URLs()
	if err != nil {
		a.stop()
		return err
	}

	waiting := make(map[string]bool, len(urls))
	for _, u := range urls {
		id, err := a.manager.Submit(u, "", queue.SubmitOptions{
			Priority:    a.settings.Priority,
			MaxAttempts: a.settings.MaxAttempts,
		})
		if err != nil {
			logging.E("Failed to queue %q: %v", u, err)
			continue
		}
		waiting[id] = true
	}

	var runErr error
	switch {
	case a.serve:
		runErr = <-serveErr
	case len(waiting) > 0:
		runErr = a.waitForJobs(ctx, events, waiting)
	default:
		logging.I("Nothing to do: no URLs queued")
	}

	if stopErr := a.stop(); runErr == nil {
		runErr = stopErr
	}
	if runErr == nil {
		a.logSummary()
	}
	return runErr
}

// Close releases the database handle.
func (a *App) Close() error {
	return a.db.Close()
}

// stop shuts the queue down, tolerating an interrupt-driven stop racing it.
func (a *App) stop() error {
	if err := a.manager.Stop(); err != nil && !errors.Is(err, queue.ErrStopped) {
		return err
	}
	return nil
}

// waitForJobs blocks until every submitted job reaches a terminal state or
// the context ends.
func (a *App) waitForJobs(ctx context.Context, events <-chan models.DownloadEvent, waiting map[string]bool) error {
	for len(waiting) > 0 {
		select {
		case <-ctx.Done():
			logging.I("Interrupted with %d job(s) still unfinished; they resume next run", len(waiting))
			return nil
		case e := <-events:
			switch e.Type {
			case consts.EventDone, consts.EventFailed, consts.EventCancelled:
				delete(waiting, e.JobID)
			}
		}
	}
	return nil
}

// logSummary reports the final state of this run's jobs.
func (a *App) logSummary() {
	jobs, err := a.manager.List()
	if err != nil {
		logging.E("Failed to list jobs for the run summary: %v", err)
		return
	}

	counts := make(map[consts.JobStatus]int, 4)
	for _, j := range jobs {
		counts[j.Status]++
	}
	logging.I("Run summary: %d completed, %d failed, %d cancelled, %d pending",
		counts[consts.JobStatusCompleted], counts[consts.JobStatusFailed],
		counts[consts.JobStatusCancelled], counts[consts.JobStatusPending])
}

// publishProgress forwards downloader progress callbacks to event
// subscribers through the manager.
func (a *App) publishProgress(p models.Progress) {
	a.manager.PublishProgress(p)
}
