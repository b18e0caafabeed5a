package gitlab_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pandeptwidyaop/release-radar/internal/gitlab"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *gitlab.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := gitlab.NewClient(gitlab.Config{
		BaseURL: srv.URL,
		Token:   "secret",
		Ref:     "main",
		PerPage: 10,
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := gitlab.NewClient(gitlab.Config{})
	require.Error(t, err)

	_, err = gitlab.NewClient(gitlab.Config{BaseURL: "not a url"})
	require.Error(t, err)
}

func TestListSuccessfulPipelines(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/team%2Fwidgets/pipelines", r.URL.EscapedPath())
		assert.Equal(t, "success", r.URL.Query().Get("status"))
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		assert.Equal(t, "10", r.URL.Query().Get("per_page"))
		assert.Equal(t, "secret", r.Header.Get("PRIVATE-TOKEN"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":42,"sha":"c"},{"id":40,"sha":"a"},{"id":41,"sha":"b"}]`))
	})

	pipelines, err := client.ListSuccessfulPipelines(context.Background(), "team/widgets")
	require.NoError(t, err)
	require.Len(t, pipelines, 3)

	assert.Equal(t, 40, pipelines[0].ID)
	assert.Equal(t, 41, pipelines[1].ID)
	assert.Equal(t, 42, pipelines[2].ID)
	assert.Equal(t, "c", pipelines[2].CommitSHA)
}

func TestGetPipeline_FinishedAt(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/7/pipelines/42", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":42,"sha":"abc","finished_at":"2024-03-01T10:00:00.000Z"}`))
	})

	pipeline, err := client.GetPipeline(context.Background(), "7", 42)
	require.NoError(t, err)
	require.NotNil(t, pipeline.FinishedAt)
	assert.Equal(t, 2024, pipeline.FinishedAt.Year())
	assert.Equal(t, "abc", pipeline.CommitSHA)
}

func TestGetCommitAndIssue(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v4/projects/7/repository/commits/abc":
			_, _ = w.Write([]byte(`{"id":"abc","message":"Fix totals\n\nCloses #12"}`))
		case "/api/v4/projects/7/issues/12":
			_, _ = w.Write([]byte(`{"id":9001,"iid":12,"description":"/depends team/ledger#3"}`))
		case "/api/v4/projects/7/issues/12/notes":
			_, _ = w.Write([]byte(`[{"id":1,"body":"looks good"},{"id":2,"body":"/dependsOn #4"}]`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	commit, err := client.GetCommit(ctx, "7", "abc")
	require.NoError(t, err)
	assert.Contains(t, commit.Message, "Closes #12")

	issue, err := client.GetIssue(ctx, "7", 12)
	require.NoError(t, err)
	assert.Equal(t, 12, issue.IID)
	assert.Equal(t, "/depends team/ledger#3", issue.Description)

	notes, err := client.GetIssueNotes(ctx, "7", 12)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "/dependsOn #4", notes[1].Body)
}

func TestAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"404 Project Not Found"}`))
	})

	_, err := client.GetIssue(context.Background(), "missing", 1)
	require.Error(t, err)

	var apiErr *gitlab.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "404 Project Not Found", apiErr.Message)
}

func TestAPIError_ObjectMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":{"base":["forbidden"]}}`))
	})

	_, err := client.ListSuccessfulPipelines(context.Background(), "7")
	require.Error(t, err)

	var apiErr *gitlab.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "forbidden")
}

func TestBaseURLWithAPIRootIsKept(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gitlab/api/v4/projects/7/issues/1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":1,"iid":1}`))
	}))
	defer srv.Close()

	client, err := gitlab.NewClient(gitlab.Config{BaseURL: srv.URL + "/gitlab/api/v4/", RequestsPerSecond: 100})
	require.NoError(t, err)

	_, err = client.GetIssue(context.Background(), "7", 1)
	require.NoError(t, err)
}

func TestContextCanceled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ListSuccessfulPipelines(ctx, "7")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
