package cmd

import (
	"fmt"
	"log/slog"
	"strconv"

	"tachyon/constellation/internal/backend"
	"tachyon/constellation/internal/constellation"
	"tachyon/constellation/internal/db"
	"tachyon/constellation/internal/expand"
	"tachyon/constellation/internal/financing"
	"tachyon/constellation/internal/placement"
)

// app is the per-invocation wiring: the stored session restored into a live store
type app struct {
	db      *db.DB
	store   *constellation.Store
	client  *backend.Client
	flow    *expand.Workflow
	profile financing.Profile
}

func openApp() (*app, error) {
	d, err := OpenDatabase()
	if err != nil {
		return nil, err
	}
	a, err := newApp(d)
	if err != nil {
		d.Close()
		return nil, err
	}
	return a, nil
}

func newApp(d *db.DB) (*app, error) {
	store := constellation.NewStore(appCfg.Layout)
	nodes, err := d.LoadNodes()
	if err != nil {
		return nil, fmt.Errorf("loading constellation: %w", err)
	}
	if err := store.Restore(nodes); err != nil {
		return nil, fmt.Errorf("restoring constellation: %w", err)
	}

	token, err := d.Token()
	if err != nil {
		return nil, err
	}
	if token == "" {
		token = appCfg.Token
	}
	client, err := backend.New(backend.Config{
		BaseURL:       appCfg.APIURL,
		Token:         token,
		Timeout:       appCfg.Timeout,
		RatePerSecond: appCfg.RatePerSecond,
		Burst:         appCfg.Burst,
	})
	if err != nil {
		return nil, err
	}

	profile := appCfg.Profile
	if stored, ok, err := d.Profile(); err != nil {
		return nil, err
	} else if ok {
		profile = stored.Merge(appCfg.Profile)
	}

	rng := placement.NewTimeRand()
	if seed != 0 {
		rng = placement.NewRand(seed)
	}
	flow := expand.New(store, client, expand.Options{
		Policy:   appCfg.Policy,
		Defaults: profile,
		Plans:    appCfg.Plans,
		Rand:     rng,
		Log:      slog.Default(),
	})
	return &app{db: d, store: store, client: client, flow: flow, profile: profile}, nil
}

// save writes the live constellation back to the database
func (a *app) save() error {
	return a.db.SaveNodes(a.store.Nodes())
}

func (a *app) Close() error {
	return a.db.Close()
}

func parseNodeID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid node id %q: must be a positive integer", arg)
	}
	return id, nil
}
