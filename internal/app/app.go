// Package app wires configuration, the API client, notification channels
// and the watcher into one process.
package app

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"time"

	"github.com/google/uuid"

	"slotwatch/internal/config"
	"slotwatch/internal/notifier"
	"slotwatch/internal/runtime/supervisor"
	"slotwatch/internal/ttp"
	"slotwatch/internal/watcher"
	logx "slotwatch/pkg/logx"
	"slotwatch/pkg/systemd"
)

type App struct {
	cfgm *config.Manager
	cfg  *config.Config

	runID string
	log   logx.Logger
	logs  *logx.Service

	client *ttp.Client
	notif  *notifier.Service
	wcfg   watcher.Config
	watch  *watcher.Watcher
	sd     *systemd.Notifier
	sup    *supervisor.Supervisor

	onReport func(watcher.Report)
}

type Option func(*appOptions)

type appOptions struct {
	httpClient *http.Client
	sd         *systemd.Notifier
	onReport   func(watcher.Report)
}

// WithHTTPClient replaces the client used for the scheduling API.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *appOptions) { o.httpClient = hc }
}

// WithSystemd replaces the sd_notify target.
func WithSystemd(n *systemd.Notifier) Option {
	return func(o *appOptions) { o.sd = n }
}

// WithReportHook is called after every watcher iteration.
func WithReportHook(fn func(watcher.Report)) Option {
	return func(o *appOptions) { o.onReport = fn }
}

// New loads and validates the configuration and builds every component
// that does not need the network. All returned errors are configuration
// errors.
func New(cfgm *config.Manager, opts ...Option) (*App, error) {
	var o appOptions
	for _, fn := range opts {
		fn(&o)
	}

	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logSvc, root := logx.New(mapLoggingConfig(cfg))
	root = root.With(logx.String("run", runID))
	log := root.With(logx.String("comp", "app"))
	cfgm.SetLogger(root.With(logx.String("comp", "config")))

	ccfg, err := mapClientConfig(cfg)
	if err != nil {
		return nil, err
	}
	clientOpts := []ttp.Option{ttp.WithLogger(root.With(logx.String("comp", "ttp")))}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, ttp.WithHTTPClient(o.httpClient))
	}
	client := ttp.New(ccfg, clientOpts...)

	wcfg, err := mapWatchConfig(cfg)
	if err != nil {
		return nil, err
	}

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	channels, err := buildChannels(cfg, root.With(logx.String("comp", "notifier")))
	if err != nil {
		return nil, err
	}
	notif := notifier.New(ncfg, root.With(logx.String("comp", "notifier")), channels...)

	sd := o.sd
	if sd == nil {
		sd = systemd.New()
	}

	return &App{
		cfgm:     cfgm,
		cfg:      cfg,
		runID:    runID,
		log:      log,
		logs:     logSvc,
		client:   client,
		notif:    notif,
		wcfg:     wcfg,
		sd:       sd,
		onReport: o.onReport,
	}, nil
}

func (a *App) RunID() string { return a.runID }

func (a *App) Logger() logx.Logger { return a.log }

// Watcher is nil until Start has resolved the locations.
func (a *App) Watcher() *watcher.Watcher { return a.watch }

// Start resolves cities, then starts the watcher and the config watcher
// under one supervisor.
func (a *App) Start(ctx context.Context) error {
	locs, err := resolveLocations(ctx, a.cfg, a.client, a.log)
	if err != nil {
		return err
	}

	if names := a.notif.Channels(); len(names) == 0 {
		a.log.Warn("no notification channel configured; new slots will only be logged")
	} else {
		a.log.Info("notification channels ready", logx.Strings("channels", names))
	}

	wopts := []watcher.Option{
		watcher.WithLogger(a.log.With(logx.String("comp", "watcher"))),
		watcher.WithReportHook(a.report),
	}
	a.watch = watcher.New(a.wcfg, locs, a.client, a.notif, wopts...)

	names := make([]string, 0, len(locs))
	for _, l := range locs {
		names = append(names, l.String())
	}
	a.log.Info("slotwatch started", append([]logx.Field{logx.Strings("monitoring", names)}, config.Summary(a.cfg)...)...)

	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(true))

	if _, err := a.sd.Ready(); err != nil {
		a.log.Debug("sd_notify failed", logx.Err(err))
	}

	sub := a.cfgm.Subscribe(4)
	a.sup.Go("config.watch", a.cfgm.Watch)
	a.sup.Go0("config.reload", func(c context.Context) { a.applyReloads(c, sub) })
	a.sup.Go("watcher", a.watch.Run)
	a.sup.Go0("systemd.watchdog", func(c context.Context) {
		if err := a.sd.RunWatchdog(c); err != nil {
			a.log.Warn("systemd watchdog disabled", logx.Err(err))
		}
	})
	return nil
}

// Run starts the app and blocks until ctx ends or a component fails.
// Cancellation is a clean shutdown and returns nil.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		a.logs.Close()
		return err
	}
	<-a.sup.Context().Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.Stop(stopCtx)
}

func (a *App) Stop(ctx context.Context) error {
	if _, err := a.sd.Stopping(); err != nil {
		a.log.Debug("sd_notify failed", logx.Err(err))
	}
	a.log.Info("shutting down")

	var err error
	if a.sup != nil {
		err = a.sup.Stop(ctx)
	}
	a.logs.Close()
	return err
}

func (a *App) report(r watcher.Report) {
	if r.Errored {
		a.log.Warn("iteration finished with errors", logx.Int("iteration", r.Iteration), logx.Any("failed", r.Failed))
	}
	status := fmt.Sprintf("iteration %d: %d locations, %d new slots, next check in %s",
		r.Iteration, r.Locations, r.Notified, r.Next)
	if len(r.Failed) > 0 {
		status += fmt.Sprintf(", %d fetch errors", len(r.Failed))
	}
	if _, err := a.sd.Status(status); err != nil {
		a.log.Debug("sd_notify failed", logx.Err(err))
	}
	if a.onReport != nil {
		a.onReport(r)
	}
}

// applyReloads re-applies logging on config reloads. Locations, intervals
// and channels keep their startup values.
func (a *App) applyReloads(ctx context.Context, sub <-chan *config.Config) {
	last := a.cfg
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-sub:
			if !ok {
				return
			}
			if config.LoggingChanged(last, next) {
				a.logs.Apply(mapLoggingConfig(next))
				a.log.Info("logging reconfigured", logx.String("level", next.Logging.Level))
			}
			if restartNeeded(last, next) {
				a.log.Warn("config change requires restart to take effect")
			}
			last = next
		}
	}
}

// restartNeeded reports changes outside the logging section.
func restartNeeded(oldCfg, newCfg *config.Config) bool {
	a, b := *oldCfg, *newCfg
	a.Logging, b.Logging = config.LoggingConfig{}, config.LoggingConfig{}
	return !reflect.DeepEqual(a, b)
}
