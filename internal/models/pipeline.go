package models

import "time"

// Pipeline is one successful CI run on the trunk branch. FinishedAt is only
// present when the pipeline detail was fetched.
type Pipeline struct {
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CommitSHA  string     `json:"sha"`
	ID         int        `json:"id"`
}

// Commit is a repository commit.
type Commit struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Issue is a project issue. IID is the project-scoped number referenced by
// "Closes #N" markers.
type Issue struct {
	Description string `json:"description"`
	ID          int    `json:"id"`
	IID         int    `json:"iid"`
}

// IssueNote is a comment on an issue.
type IssueNote struct {
	Body string `json:"body"`
	ID   int    `json:"id"`
}
