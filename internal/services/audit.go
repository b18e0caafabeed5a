package services

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pandeptwidyaop/release-radar/internal/database"
	"github.com/pandeptwidyaop/release-radar/internal/models"
)

// ErrRunNotFound indicates the requested update run does not exist.
var ErrRunNotFound = errors.New("update run not found")

// AuditService records update runs for the current session.
type AuditService struct {
	db *database.DB
}

// NewAuditService creates a new AuditService instance.
func NewAuditService(db *database.DB) *AuditService {
	return &AuditService{db: db}
}

// Start records a running update of app.
func (s *AuditService) Start(app *models.App, requestedBy string) (*models.UpdateRun, error) {
	run := &models.UpdateRun{
		ID:          uuid.New().String(),
		HostName:    app.HostName,
		AppName:     app.Name,
		ProjectID:   app.ProjectID,
		Status:      models.UpdateRunning,
		RequestedBy: requestedBy,
		StartedAt:   time.Now().UTC(),
	}

	_, err := s.db.Exec(`
		INSERT INTO update_runs (id, host_name, app_name, project_id, status, requested_by, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.HostName, run.AppName, run.ProjectID, run.Status, run.RequestedBy, run.StartedAt)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// Finish closes a run as succeeded, or failed when runErr is non-nil.
func (s *AuditService) Finish(id string, runErr error) error {
	status := models.UpdateSuccess
	var msg string
	if runErr != nil {
		status = models.UpdateFailed
		msg = runErr.Error()
	}

	res, err := s.db.Exec(
		"UPDATE update_runs SET status = ?, error = ?, finished_at = ? WHERE id = ?",
		status, msg, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetRun retrieves a run by its ID.
func (s *AuditService) GetRun(id string) (*models.UpdateRun, error) {
	row := s.db.QueryRow(`
		SELECT id, host_name, app_name, project_id, status, error, requested_by, started_at, finished_at
		FROM update_runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	return run, err
}

// GetRuns retrieves runs newest first with pagination.
func (s *AuditService) GetRuns(limit, offset int) ([]models.UpdateRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, host_name, app_name, project_id, status, error, requested_by, started_at, finished_at
		FROM update_runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Initialize empty slice instead of nil to return [] instead of null in JSON
	runs := make([]models.UpdateRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.UpdateRun, error) {
	var run models.UpdateRun
	var runErr sql.NullString
	var finishedAt sql.NullTime

	if err := row.Scan(
		&run.ID, &run.HostName, &run.AppName, &run.ProjectID, &run.Status,
		&runErr, &run.RequestedBy, &run.StartedAt, &finishedAt,
	); err != nil {
		return nil, err
	}

	if runErr.Valid {
		run.Error = runErr.String
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	return &run, nil
}
