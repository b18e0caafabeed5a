package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pandeptwidyaop/release-radar/internal/models"
)

var errTransport = errors.New("connection refused")

// fakeCI serves canned GitLab facts keyed by project.
type fakeCI struct {
	mu        sync.Mutex
	pipelines map[string][]models.Pipeline
	finished  map[string]map[int]time.Time
	commits   map[string]string // sha -> message
	issues    map[string]map[int]string
	notes     map[string]map[int][]string
	failList  map[string]bool
	failIssue map[int]bool
	calls     int
}

func newFakeCI() *fakeCI {
	return &fakeCI{
		pipelines: make(map[string][]models.Pipeline),
		finished:  make(map[string]map[int]time.Time),
		commits:   make(map[string]string),
		issues:    make(map[string]map[int]string),
		notes:     make(map[string]map[int][]string),
		failList:  make(map[string]bool),
		failIssue: make(map[int]bool),
	}
}

func (f *fakeCI) addPipeline(project string, id int, message string, finishedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sha := fmt.Sprintf("%s-%d", project, id)
	f.pipelines[project] = append(f.pipelines[project], models.Pipeline{ID: id, CommitSHA: sha})
	if f.finished[project] == nil {
		f.finished[project] = make(map[int]time.Time)
	}
	f.finished[project][id] = finishedAt
	f.commits[sha] = message
}

func (f *fakeCI) addIssue(project string, iid int, description string, notes ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.issues[project] == nil {
		f.issues[project] = make(map[int]string)
		f.notes[project] = make(map[int][]string)
	}
	f.issues[project][iid] = description
	f.notes[project][iid] = notes
}

func (f *fakeCI) setFailList(project string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failList[project] = fail
}

func (f *fakeCI) ListSuccessfulPipelines(_ context.Context, projectID string) ([]models.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.failList[projectID] {
		return nil, errTransport
	}
	out := make([]models.Pipeline, len(f.pipelines[projectID]))
	copy(out, f.pipelines[projectID])
	return out, nil
}

func (f *fakeCI) GetPipeline(_ context.Context, projectID string, pipelineID int) (*models.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	at, ok := f.finished[projectID][pipelineID]
	if !ok {
		return nil, fmt.Errorf("pipeline %d: 404", pipelineID)
	}
	return &models.Pipeline{
		ID:         pipelineID,
		CommitSHA:  fmt.Sprintf("%s-%d", projectID, pipelineID),
		FinishedAt: &at,
	}, nil
}

func (f *fakeCI) GetCommit(_ context.Context, _ string, sha string) (*models.Commit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	msg, ok := f.commits[sha]
	if !ok {
		return nil, fmt.Errorf("commit %s: 404", sha)
	}
	return &models.Commit{ID: sha, Message: msg}, nil
}

func (f *fakeCI) GetIssue(_ context.Context, projectID string, iid int) (*models.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.failIssue[iid] {
		return nil, errTransport
	}
	return &models.Issue{ID: 1000 + iid, IID: iid, Description: f.issues[projectID][iid]}, nil
}

func (f *fakeCI) GetIssueNotes(_ context.Context, projectID string, iid int) ([]models.IssueNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	var notes []models.IssueNote
	for i, body := range f.notes[projectID][iid] {
		notes = append(notes, models.IssueNote{ID: i + 1, Body: body})
	}
	return notes, nil
}

// fakeHost simulates deployment hosts. Triggering an update installs the
// version registered in onUpdate for the project.
type fakeHost struct {
	mu          sync.Mutex
	apps        map[string]*models.HostApps // host URL -> listing
	versions    map[string]string           // hostURL|name -> version
	onUpdate    map[string]string           // projectID -> version installed by update
	failUpdate  map[string]bool
	failVersion map[string]bool
	configs     map[string]string
	block       chan struct{}
	triggered   []string
	versionHits int
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		apps:        make(map[string]*models.HostApps),
		versions:    make(map[string]string),
		onUpdate:    make(map[string]string),
		failUpdate:  make(map[string]bool),
		failVersion: make(map[string]bool),
		configs:     make(map[string]string),
	}
}

func (f *fakeHost) setVersion(hostURL, name, version string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.versions[hostURL+"|"+name] = version
}

func (f *fakeHost) triggeredProjects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.triggered))
	copy(out, f.triggered)
	return out
}

func (f *fakeHost) ListApps(_ context.Context, host models.Host) (*models.HostApps, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	listing, ok := f.apps[host.URL]
	if !ok {
		return nil, errTransport
	}
	out := *listing
	if out.HostName == "" {
		out.HostName = host.Name
	}
	return &out, nil
}

func (f *fakeHost) versionCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.versionHits
}

func (f *fakeHost) CurrentVersion(_ context.Context, hostURL, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.versionHits++

	if f.failVersion[hostURL+"|"+name] {
		return "", errTransport
	}
	return f.versions[hostURL+"|"+name], nil
}

func (f *fakeHost) TriggerUpdate(_ context.Context, hostURL, projectID string) error {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.triggered = append(f.triggered, projectID)
	if f.failUpdate[projectID] {
		return errTransport
	}
	if v, ok := f.onUpdate[projectID]; ok {
		for key := range f.versions {
			if len(key) > len(hostURL) && key[:len(hostURL)+1] == hostURL+"|" {
				if f.projectOf(hostURL, key[len(hostURL)+1:]) == projectID {
					f.versions[key] = v
				}
			}
		}
	}
	return nil
}

func (f *fakeHost) projectOf(hostURL, name string) string {
	listing, ok := f.apps[hostURL]
	if !ok {
		return ""
	}
	for _, a := range listing.Apps {
		if a.Name == name {
			return a.ProjectID
		}
	}
	return ""
}

func (f *fakeHost) GetConfig(_ context.Context, _ string, projectID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cfg, ok := f.configs[projectID]
	if !ok {
		return "", errTransport
	}
	return cfg, nil
}

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func intPtr(v int) *int {
	return &v
}
