package commands

import (
	"github.com/sirupsen/logrus"

	"tableflip.dev/bands/pkg/app"
	"tableflip.dev/bands/pkg/host"
	"tableflip.dev/bands/pkg/logging"
	"tableflip.dev/bands/pkg/prefs"
	"tableflip.dev/bands/pkg/store"
)

// env is what every command loads: configuration, the entry store, group
// preferences and the logger.
type env struct {
	settings *store.Settings
	store    store.Persistence
	prefs    *prefs.Store
	log      *logrus.Entry
}

func loadEnv() (*env, error) {
	settings, err := store.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Config{Level: settings.LogLevel, File: settings.LogFile})
	if err != nil {
		return nil, err
	}
	log := logrus.NewEntry(logger)
	p, err := store.Load(settings)
	if err != nil {
		return nil, err
	}
	return &env{
		settings: settings,
		store:    p,
		prefs:    prefs.New(prefs.NewDiskPersistence(p.PrefsDir()), prefs.WithLogger(log)),
		log:      log,
	}, nil
}

// service returns headless workflows over the store.
func (e *env) service(d host.Dialog) *app.Service {
	return &app.Service{
		Prefs:  e.prefs,
		Source: e.store,
		Dialog: d,
		Log:    e.log,
	}
}

// close writes pending preference changes.
func (e *env) close() error {
	return e.prefs.Flush()
}
