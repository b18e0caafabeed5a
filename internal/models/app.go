// Package models defines data models for hosts, applications, CI facts and update runs.
package models

import (
	"slices"
	"time"
)

// Host is a named remote deployment endpoint.
type Host struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
}

// AppKey identifies an application across hosts. Application names are only
// unique within a host.
type AppKey struct {
	Host string `json:"host"`
	Name string `json:"name"`
}

// String renders the key as host/name for display.
func (k AppKey) String() string {
	return k.Host + "/" + k.Name
}

// App represents a deployed (or deployable) application on a host together
// with everything resolved about it during the session.
type App struct {
	CurrentBuildAt       *time.Time `json:"current_build_at,omitempty"`
	LatestBuildAt        *time.Time `json:"latest_build_at,omitempty"`
	RefreshedAt          *time.Time `json:"refreshed_at,omitempty"`
	CurrentBuild         *int       `json:"current_build"`
	LatestBuild          *int       `json:"latest_build"`
	Name                 string     `json:"name"`
	HostName             string     `json:"host_name"`
	HostURL              string     `json:"host_url"`
	ProjectID            string     `json:"project_id"`
	DeclaredVersion      string     `json:"declared_version,omitempty"`
	UpdateError          string     `json:"update_error,omitempty"`
	MissingBuilds        []int      `json:"missing_builds"`
	ClosedIssueIDs       []int      `json:"closed_issue_ids"`
	DependencyProjectIDs []string   `json:"dependency_project_ids"`
	Installed            bool       `json:"installed"`
	CurrentBuildError    bool       `json:"current_build_error"`
	LatestBuildError     bool       `json:"latest_build_error"`
	UpToDate             bool       `json:"up_to_date"`
	Updating             bool       `json:"updating"`
}

// Key returns the composite identity of the application.
func (a *App) Key() AppKey {
	return AppKey{Host: a.HostName, Name: a.Name}
}

// ResetResolved clears every field populated by reconciliation, leaving the
// discovery-time attributes untouched.
func (a *App) ResetResolved() {
	a.CurrentBuild = nil
	a.CurrentBuildAt = nil
	a.CurrentBuildError = false
	a.LatestBuild = nil
	a.LatestBuildAt = nil
	a.LatestBuildError = false
	a.MissingBuilds = nil
	a.ClosedIssueIDs = nil
	a.DependencyProjectIDs = nil
	a.UpToDate = false
	a.RefreshedAt = nil
}

// Clone returns a deep copy of the application.
func (a *App) Clone() *App {
	c := *a
	c.CurrentBuild = clonePtr(a.CurrentBuild)
	c.LatestBuild = clonePtr(a.LatestBuild)
	c.CurrentBuildAt = clonePtr(a.CurrentBuildAt)
	c.LatestBuildAt = clonePtr(a.LatestBuildAt)
	c.RefreshedAt = clonePtr(a.RefreshedAt)
	c.MissingBuilds = slices.Clone(a.MissingBuilds)
	c.ClosedIssueIDs = slices.Clone(a.ClosedIssueIDs)
	c.DependencyProjectIDs = slices.Clone(a.DependencyProjectIDs)
	return &c
}

// DaysBehind returns whole days between the installed build and the latest
// build, or -1 when either timestamp is unknown.
func (a *App) DaysBehind() int {
	if a.CurrentBuildAt == nil || a.LatestBuildAt == nil {
		return -1
	}
	return int(a.LatestBuildAt.Sub(*a.CurrentBuildAt).Hours() / 24)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// HostApp is one entry of a host's application listing.
type HostApp struct {
	Name      string `json:"name"`
	ProjectID string `json:"projectId"`
	Version   string `json:"version,omitempty"`
	Installed bool   `json:"installed"`
}

// HostApps is the application listing reported by a host.
type HostApps struct {
	HostName string    `json:"hostName"`
	Apps     []HostApp `json:"apps"`
}
