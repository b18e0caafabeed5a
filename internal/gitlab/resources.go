package gitlab

import (
	"context"
	"net/url"
	"sort"
	"strconv"

	"github.com/pandeptwidyaop/release-radar/internal/models"
)

// ListSuccessfulPipelines returns the most recent successful pipelines of the
// trunk ref, bounded by the page size and sorted ascending by id.
func (c *Client) ListSuccessfulPipelines(ctx context.Context, projectID string) ([]models.Pipeline, error) {
	query := url.Values{}
	query.Set("status", "success")
	query.Set("ref", c.ref)
	query.Set("per_page", strconv.Itoa(c.perPage))

	var pipelines []models.Pipeline
	if err := c.get(ctx, projectPath(projectID)+"/pipelines", query, &pipelines); err != nil {
		return nil, err
	}

	sort.Slice(pipelines, func(i, j int) bool { return pipelines[i].ID < pipelines[j].ID })
	return pipelines, nil
}

// GetPipeline returns a single pipeline including its finish time.
func (c *Client) GetPipeline(ctx context.Context, projectID string, pipelineID int) (*models.Pipeline, error) {
	var pipeline models.Pipeline
	path := projectPath(projectID) + "/pipelines/" + strconv.Itoa(pipelineID)
	if err := c.get(ctx, path, nil, &pipeline); err != nil {
		return nil, err
	}
	return &pipeline, nil
}

// GetCommit returns the commit with the given sha.
func (c *Client) GetCommit(ctx context.Context, projectID, sha string) (*models.Commit, error) {
	var commit models.Commit
	path := projectPath(projectID) + "/repository/commits/" + url.PathEscape(sha)
	if err := c.get(ctx, path, nil, &commit); err != nil {
		return nil, err
	}
	return &commit, nil
}

// GetIssue returns the issue with the project-scoped number iid.
func (c *Client) GetIssue(ctx context.Context, projectID string, iid int) (*models.Issue, error) {
	var issue models.Issue
	path := projectPath(projectID) + "/issues/" + strconv.Itoa(iid)
	if err := c.get(ctx, path, nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// GetIssueNotes returns the comments of an issue.
func (c *Client) GetIssueNotes(ctx context.Context, projectID string, iid int) ([]models.IssueNote, error) {
	var notes []models.IssueNote
	path := projectPath(projectID) + "/issues/" + strconv.Itoa(iid) + "/notes"
	if err := c.get(ctx, path, nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}
