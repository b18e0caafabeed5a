package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pandeptwidyaop/release-radar/internal/models"
)

func TestReconciler_FullPass(t *testing.T) {
	s := newScenario(t)
	s.deploy("prod", "billing", "team/billing", "1.2.0+102", true)
	s.ci.addPipeline("team/billing", 101, "init", day(1))
	s.ci.addPipeline("team/billing", 102, "feature", day(2))
	s.ci.addPipeline("team/billing", 105, "Closes #42 and Closes #43", day(9))
	s.ci.addIssue("team/billing", 42, "/dependsOn team/widgets#7")
	s.ci.addIssue("team/billing", 43, "/depends #7", "/depends team/auth#1")
	s.start()

	app := s.app("prod", "billing")
	require.NotNil(t, app.CurrentBuild)
	assert.Equal(t, 102, *app.CurrentBuild)
	require.NotNil(t, app.CurrentBuildAt)
	assert.Equal(t, day(2), *app.CurrentBuildAt)
	require.NotNil(t, app.LatestBuild)
	assert.Equal(t, 105, *app.LatestBuild)
	require.NotNil(t, app.LatestBuildAt)
	assert.Equal(t, day(9), *app.LatestBuildAt)

	assert.Equal(t, []int{105}, app.MissingBuilds)
	assert.Equal(t, []int{42, 43}, app.ClosedIssueIDs)
	assert.Equal(t, []string{"team/auth", "team/widgets"}, app.DependencyProjectIDs)
	assert.False(t, app.UpToDate)
	assert.False(t, app.CurrentBuildError)
	assert.False(t, app.LatestBuildError)
	assert.Equal(t, 7, app.DaysBehind())
	assert.NotNil(t, app.RefreshedAt)
}

func TestReconciler_UpToDate(t *testing.T) {
	s := newScenario(t)
	s.deploy("prod", "billing", "team/billing", "1.2.0+105", true)
	s.ci.addPipeline("team/billing", 101, "init", day(1))
	s.ci.addPipeline("team/billing", 105, "release", day(3))
	s.start()

	app := s.app("prod", "billing")
	assert.True(t, app.UpToDate)
	assert.Empty(t, app.MissingBuilds)
	// The latest pipeline is not missing, so its timestamp is never fetched.
	assert.Nil(t, app.LatestBuildAt)
}

func TestReconciler_NotInstalledSkipsResolution(t *testing.T) {
	s := newScenario(t)
	s.deploy("prod", "ledger", "team/ledger", "", false)
	s.ci.addPipeline("team/ledger", 7, "init", day(1))
	s.ci.addPipeline("team/ledger", 8, "Closes #3", day(2))
	s.start()

	app := s.app("prod", "ledger")
	assert.False(t, app.Installed)
	assert.Nil(t, app.CurrentBuild)
	assert.False(t, app.CurrentBuildError)
	require.NotNil(t, app.LatestBuild)
	assert.Equal(t, 8, *app.LatestBuild)
	assert.False(t, app.LatestBuildError)
	assert.Empty(t, app.MissingBuilds)
	assert.Empty(t, app.ClosedIssueIDs)
	assert.False(t, app.UpToDate)
	assert.Zero(t, s.host.versionCalls())
}

func TestReconciler_GapErrorKeepsPreviousFacts(t *testing.T) {
	s := newScenario(t)
	s.deploy("prod", "billing", "team/billing", "1.0+101", true)
	s.ci.addPipeline("team/billing", 101, "init", day(1))
	s.ci.addPipeline("team/billing", 102, "Closes #1", day(2))
	s.ci.addIssue("team/billing", 1, "/depends team/ledger#2")
	s.start()

	before := s.app("prod", "billing")
	require.Equal(t, []int{102}, before.MissingBuilds)

	s.ci.setFailList("team/billing", true)
	key := models.AppKey{Host: "prod", Name: "billing"}
	err := s.session.Reconciler.ReconcileApp(context.Background(), key, false)
	require.ErrorIs(t, err, errTransport)

	after := s.app("prod", "billing")
	assert.True(t, after.LatestBuildError)
	assert.Nil(t, after.LatestBuild)
	assert.False(t, after.UpToDate)
	assert.Equal(t, []int{102}, after.MissingBuilds)
	assert.Equal(t, []int{1}, after.ClosedIssueIDs)
	assert.Equal(t, []string{"team/ledger"}, after.DependencyProjectIDs)
	require.NotNil(t, after.CurrentBuild)
	assert.Equal(t, 101, *after.CurrentBuild)
}

func TestReconciler_ResolveErrorFlagsCurrentBuild(t *testing.T) {
	s := newScenario(t)
	s.deploy("prod", "billing", "team/billing", "1.0+101", true)
	s.ci.addPipeline("team/billing", 101, "init", day(1))
	s.start()

	s.host.failVersion["http://prod|billing"] = true
	err := s.session.Reconciler.Refresh(context.Background(), models.AppKey{Host: "prod", Name: "billing"})
	require.Error(t, err)

	app := s.app("prod", "billing")
	assert.True(t, app.CurrentBuildError)
	assert.Nil(t, app.CurrentBuild)
	assert.False(t, app.LatestBuildError)
	assert.Equal(t, 101, *app.LatestBuild)
	assert.Empty(t, app.MissingBuilds)
	assert.False(t, app.UpToDate)
}

func TestReconciler_RefreshIgnoresDeclaredVersion(t *testing.T) {
	s := newScenario(t)
	s.deploy("prod", "billing", "team/billing", "1.0+101", true)
	s.ci.addPipeline("team/billing", 101, "init", day(1))
	s.ci.addPipeline("team/billing", 102, "next", day(2))
	s.start()
	require.Equal(t, 101, *s.app("prod", "billing").CurrentBuild)

	s.host.setVersion("http://prod", "billing", "1.1+102")
	require.NoError(t, s.session.Reconciler.Refresh(context.Background(), models.AppKey{Host: "prod", Name: "billing"}))

	app := s.app("prod", "billing")
	assert.Equal(t, 102, *app.CurrentBuild)
	assert.True(t, app.UpToDate)
	assert.Empty(t, app.MissingBuilds)
}

func TestReconciler_AllContinuesPastFailures(t *testing.T) {
	s := newScenario(t)
	s.deploy("prod", "billing", "team/billing", "1.0+1", true)
	s.deploy("prod", "ledger", "team/ledger", "1.0+1", true)
	s.deploy("staging", "billing", "team/billing", "1.0+2", true)
	s.ci.addPipeline("team/billing", 1, "a", day(1))
	s.ci.addPipeline("team/billing", 2, "b", day(2))
	s.ci.setFailList("team/ledger", true)
	s.start()

	assert.True(t, s.app("prod", "ledger").LatestBuildError)
	assert.Equal(t, []int{2}, s.app("prod", "billing").MissingBuilds)
	assert.True(t, s.app("staging", "billing").UpToDate)
}

func TestReconciler_UnknownApp(t *testing.T) {
	s := newScenario(t)
	s.deploy("prod", "billing", "team/billing", "", true)
	s.start()

	err := s.session.Reconciler.ReconcileApp(context.Background(), models.AppKey{Host: "prod", Name: "ghost"}, false)
	require.Error(t, err)
}
