package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/pandeptwidyaop/release-radar/internal/models"
	"github.com/pandeptwidyaop/release-radar/internal/validation"
)

// ErrNoAppsDiscovered indicates no host reported any application.
var ErrNoAppsDiscovered = errors.New("no applications discovered")

// Discovery populates the registry from the hosts' application listings.
type Discovery struct {
	registry *Registry
	host     HostClient
	logger   *slog.Logger
}

// NewDiscovery creates a Discovery.
func NewDiscovery(registry *Registry, host HostClient, logger *slog.Logger) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discovery{
		registry: registry,
		host:     host,
		logger:   logger.With("component", "discovery"),
	}
}

// Discover registers every application of every host in configured order.
// A host that cannot be listed is logged and skipped. It returns the number
// of applications registered.
func (d *Discovery) Discover(ctx context.Context, hosts []models.Host) (int, error) {
	added := 0
	for _, host := range hosts {
		listing, err := d.host.ListApps(ctx, host)
		if err != nil {
			accessorErrors.WithLabelValues(accessorHost).Inc()
			d.logger.Warn("failed to list host apps", "host", host.URL, "error", err)
			continue
		}

		hostName := hostDisplayName(host, listing.HostName)
		for _, ha := range listing.Apps {
			app := &models.App{
				Name:            ha.Name,
				HostName:        hostName,
				HostURL:         host.URL,
				ProjectID:       ha.ProjectID,
				Installed:       ha.Installed,
				DeclaredVersion: ha.Version,
			}
			if err := validateListing(app); err != nil {
				d.logger.Warn("skipping app", "host", hostName, "app", ha.Name, "error", err)
				continue
			}
			if err := d.registry.Add(app); err != nil {
				d.logger.Warn("skipping app", "app", app.Key().String(), "error", err)
				continue
			}
			added++
		}
		d.logger.Info("host discovered", "host", hostName, "apps", len(listing.Apps))
	}

	if added == 0 {
		return 0, ErrNoAppsDiscovered
	}
	return added, nil
}

func validateListing(app *models.App) error {
	if err := validation.ValidateKey(app.Key()); err != nil {
		return err
	}
	if err := validation.ValidateProjectID(app.ProjectID); err != nil {
		return fmt.Errorf("project %q: %w", app.ProjectID, err)
	}
	return nil
}

// hostDisplayName prefers the configured name, then the name the host
// reports, then the URL's host part.
func hostDisplayName(host models.Host, reported string) string {
	if host.Name != "" {
		return host.Name
	}
	if reported != "" {
		return reported
	}
	if u, err := url.Parse(host.URL); err == nil && u.Host != "" {
		return u.Host
	}
	return host.URL
}
