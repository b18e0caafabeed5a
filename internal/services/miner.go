package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/pandeptwidyaop/release-radar/internal/models"
)

var (
	closesPattern    = regexp.MustCompile(`(?i)closes #(\d+)`)
	dependsOnPattern = regexp.MustCompile(`(?i)/(dependsOn|depends) ([\w-]+/[\w-]+)?#(\d+)`)
)

// ExtractClosedIssues returns the issue numbers of every "Closes #N" marker in
// message, in order of appearance.
func ExtractClosedIssues(message string) []int {
	var ids []int
	for _, m := range closesPattern.FindAllStringSubmatch(message, -1) {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// ExtractDependencies returns the project paths named by "/depends" and
// "/dependsOn" markers in text. Markers without a "namespace/project"
// qualifier refer to the same project and are ignored.
func ExtractDependencies(text string) []string {
	var deps []string
	for _, m := range dependsOnPattern.FindAllStringSubmatch(text, -1) {
		if m[2] == "" {
			continue
		}
		deps = append(deps, m[2])
	}
	return deps
}

// MiningResult is what the miner learned from the missing pipelines.
type MiningResult struct {
	LatestBuildAt        *time.Time
	ClosedIssueIDs       []int
	DependencyProjectIDs []string
}

// DependencyMiner walks missing pipelines to the issues their commits close
// and collects the cross-project dependencies those issues declare.
type DependencyMiner struct {
	ci CIClient
}

// NewDependencyMiner creates a DependencyMiner.
func NewDependencyMiner(ci CIClient) *DependencyMiner {
	return &DependencyMiner{ci: ci}
}

// Mine inspects each missing pipeline in order. Closed issues keep discovery
// order and duplicates; dependencies are deduplicated and sorted. The finish
// time of the latest build is recorded when it is among the missing pipelines.
// Any transport error aborts mining.
func (m *DependencyMiner) Mine(ctx context.Context, projectID string, missing []models.Pipeline, latest *int) (MiningResult, error) {
	var result MiningResult
	deps := make(map[string]struct{})

	for _, p := range missing {
		pipeline, err := m.ci.GetPipeline(ctx, projectID, p.ID)
		if err != nil {
			return MiningResult{}, fmt.Errorf("pipeline %d: %w", p.ID, err)
		}
		if latest != nil && pipeline.ID == *latest {
			result.LatestBuildAt = pipeline.FinishedAt
		}

		sha := pipeline.CommitSHA
		if sha == "" {
			sha = p.CommitSHA
		}
		commit, err := m.ci.GetCommit(ctx, projectID, sha)
		if err != nil {
			return MiningResult{}, fmt.Errorf("commit %s: %w", sha, err)
		}

		for _, iid := range ExtractClosedIssues(commit.Message) {
			result.ClosedIssueIDs = append(result.ClosedIssueIDs, iid)

			issue, err := m.ci.GetIssue(ctx, projectID, iid)
			if err != nil {
				return MiningResult{}, fmt.Errorf("issue #%d: %w", iid, err)
			}
			notes, err := m.ci.GetIssueNotes(ctx, projectID, iid)
			if err != nil {
				return MiningResult{}, fmt.Errorf("notes of issue #%d: %w", iid, err)
			}

			for _, dep := range ExtractDependencies(issue.Description) {
				deps[dep] = struct{}{}
			}
			for _, note := range notes {
				for _, dep := range ExtractDependencies(note.Body) {
					deps[dep] = struct{}{}
				}
			}
		}
	}

	result.DependencyProjectIDs = make([]string, 0, len(deps))
	for dep := range deps {
		result.DependencyProjectIDs = append(result.DependencyProjectIDs, dep)
	}
	sort.Strings(result.DependencyProjectIDs)

	return result, nil
}
