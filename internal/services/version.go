package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pandeptwidyaop/release-radar/internal/models"
)

// CIClient reads pipeline, commit and issue facts from the CI system.
type CIClient interface {
	ListSuccessfulPipelines(ctx context.Context, projectID string) ([]models.Pipeline, error)
	GetPipeline(ctx context.Context, projectID string, pipelineID int) (*models.Pipeline, error)
	GetCommit(ctx context.Context, projectID, sha string) (*models.Commit, error)
	GetIssue(ctx context.Context, projectID string, iid int) (*models.Issue, error)
	GetIssueNotes(ctx context.Context, projectID string, iid int) ([]models.IssueNote, error)
}

// HostClient talks to deployment hosts.
type HostClient interface {
	ListApps(ctx context.Context, host models.Host) (*models.HostApps, error)
	CurrentVersion(ctx context.Context, hostURL, name string) (string, error)
	TriggerUpdate(ctx context.Context, hostURL, projectID string) error
	GetConfig(ctx context.Context, hostURL, projectID string) (string, error)
}

// ParseBuild extracts the CI build number from a version string: the leading
// digits of the segment after the last '+'. Versions without a '+' or without
// digits after it carry no build.
func ParseBuild(version string) (int, bool) {
	idx := strings.LastIndexByte(version, '+')
	if idx < 0 {
		return 0, false
	}

	segment := version[idx+1:]
	end := 0
	for end < len(segment) && segment[end] >= '0' && segment[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}

	build, err := strconv.Atoi(segment[:end])
	if err != nil {
		return 0, false
	}
	return build, true
}

// Resolution is the installed build of an application.
type Resolution struct {
	Build      *int
	FinishedAt *time.Time
}

// VersionResolver determines which build is installed for an application.
type VersionResolver struct {
	ci   CIClient
	host HostClient
}

// NewVersionResolver creates a VersionResolver.
func NewVersionResolver(ci CIClient, host HostClient) *VersionResolver {
	return &VersionResolver{ci: ci, host: host}
}

// Resolve returns the installed build of app. A non-empty declared version is
// parsed directly; otherwise the host's current version endpoint is queried.
// When a build is found its pipeline is fetched for the finish time.
func (r *VersionResolver) Resolve(ctx context.Context, app *models.App, declared string) (Resolution, error) {
	version := declared
	if version == "" {
		v, err := r.host.CurrentVersion(ctx, app.HostURL, app.Name)
		if err != nil {
			accessorErrors.WithLabelValues(accessorHost).Inc()
			return Resolution{}, fmt.Errorf("current version of %s: %w", app.Key(), err)
		}
		version = v
	}

	build, ok := ParseBuild(version)
	if !ok {
		return Resolution{}, nil
	}

	pipeline, err := r.ci.GetPipeline(ctx, app.ProjectID, build)
	if err != nil {
		accessorErrors.WithLabelValues(accessorGitLab).Inc()
		return Resolution{}, fmt.Errorf("pipeline %d of %s: %w", build, app.ProjectID, err)
	}

	return Resolution{Build: &build, FinishedAt: pipeline.FinishedAt}, nil
}
