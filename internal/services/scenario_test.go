package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pandeptwidyaop/release-radar/internal/database"
	"github.com/pandeptwidyaop/release-radar/internal/logging"
	"github.com/pandeptwidyaop/release-radar/internal/models"
	"github.com/pandeptwidyaop/release-radar/internal/services"
)

// scenario assembles fake hosts and CI history, then wires a Session on top.
type scenario struct {
	t       *testing.T
	ci      *fakeCI
	host    *fakeHost
	hosts   []models.Host
	session *services.Session
}

func newScenario(t *testing.T) *scenario {
	return &scenario{t: t, ci: newFakeCI(), host: newFakeHost()}
}

// deploy registers an application on a host. The current version endpoint
// reports the same version that the listing declares.
func (s *scenario) deploy(hostName, name, project, version string, installed bool) {
	hostURL := "http://" + hostName
	listing, ok := s.host.apps[hostURL]
	if !ok {
		listing = &models.HostApps{}
		s.host.apps[hostURL] = listing
		s.hosts = append(s.hosts, models.Host{Name: hostName, URL: hostURL})
	}
	listing.Apps = append(listing.Apps, models.HostApp{
		Name:      name,
		ProjectID: project,
		Version:   version,
		Installed: installed,
	})
	s.host.setVersion(hostURL, name, version)
}

func (s *scenario) openDB() *database.DB {
	db, err := database.New(database.MemoryPath)
	require.NoError(s.t, err)
	s.t.Cleanup(func() { _ = db.Close() })
	require.NoError(s.t, db.Migrate())
	return db
}

func (s *scenario) start() *services.Session {
	s.session = services.NewSession(services.SessionConfig{
		CI:          s.ci,
		Host:        s.host,
		DB:          s.openDB(),
		Logger:      logging.Nop(),
		Hosts:       s.hosts,
		Concurrency: 2,
	})
	require.NoError(s.t, s.session.Start(context.Background()))
	return s.session
}

func (s *scenario) app(hostName, name string) *models.App {
	app, err := s.session.Registry.Get(models.AppKey{Host: hostName, Name: name})
	require.NoError(s.t, err)
	return app
}
