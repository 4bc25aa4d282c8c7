package models

import (
	"fmt"
	"time"
)

// Copy job status values.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// CopyJob records one playlist duplication run: who ran it, what was
// copied, how far it got, and where it ended up.
//
// Jobs store identifiers and counts only. Track lists and tokens are
// never persisted.
type CopyJob struct {
	id               string
	sequence         int
	userID           string
	sourcePlaylistID string
	sourceName       string
	newPlaylistID    string
	newName          string
	status           string
	stage            string
	tracksTotal      int
	tracksAdded      int
	coverURL         string
	errorMessage     string
	createdAt        time.Time
	updatedAt        time.Time
	deletedAt        *time.Time
}

// NewCopyJob creates a pending job for the given user and source playlist.
func NewCopyJob(userID, sourcePlaylistID, sourceName string) *CopyJob {
	now := time.Now().UTC()
	return &CopyJob{
		userID:           userID,
		sourcePlaylistID: sourcePlaylistID,
		sourceName:       sourceName,
		status:           JobPending,
		createdAt:        now,
		updatedAt:        now,
	}
}

// RestoreCopyJob rebuilds a job from persisted fields. Used by repositories when scanning rows.
func RestoreCopyJob(id string, sequence int, userID, sourcePlaylistID, sourceName, newPlaylistID, newName, status, stage string,
	tracksTotal, tracksAdded int, coverURL, errorMessage string, createdAt, updatedAt time.Time, deletedAt *time.Time) *CopyJob {
	return &CopyJob{
		id:               id,
		sequence:         sequence,
		userID:           userID,
		sourcePlaylistID: sourcePlaylistID,
		sourceName:       sourceName,
		newPlaylistID:    newPlaylistID,
		newName:          newName,
		status:           status,
		stage:            stage,
		tracksTotal:      tracksTotal,
		tracksAdded:      tracksAdded,
		coverURL:         coverURL,
		errorMessage:     errorMessage,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
		deletedAt:        deletedAt,
	}
}

func (j *CopyJob) ID() string            { return j.id }
func (j *CopyJob) Sequence() int         { return j.sequence }
func (j *CopyJob) UserID() string        { return j.userID }
func (j *CopyJob) SourcePlaylistID() string { return j.sourcePlaylistID }
func (j *CopyJob) SourceName() string    { return j.sourceName }
func (j *CopyJob) NewPlaylistID() string { return j.newPlaylistID }
func (j *CopyJob) NewName() string       { return j.newName }
func (j *CopyJob) Status() string        { return j.status }
func (j *CopyJob) Stage() string         { return j.stage }
func (j *CopyJob) TracksTotal() int      { return j.tracksTotal }
func (j *CopyJob) TracksAdded() int      { return j.tracksAdded }
func (j *CopyJob) CoverURL() string      { return j.coverURL }
func (j *CopyJob) ErrorMessage() string  { return j.errorMessage }
func (j *CopyJob) CreatedAt() time.Time  { return j.createdAt }
func (j *CopyJob) UpdatedAt() time.Time  { return j.updatedAt }
func (j *CopyJob) DeletedAt() *time.Time { return j.deletedAt }

// SetID assigns the generated identifier. Called once by the repository on insert.
func (j *CopyJob) SetID(id string) { j.id = id }

// SetSequence assigns the generated sequence number. Called once by the repository on insert.
func (j *CopyJob) SetSequence(seq int) { j.sequence = seq }

// MarkRunning transitions the job to the running state at the given stage.
func (j *CopyJob) MarkRunning(stage string) {
	j.status = JobRunning
	j.stage = stage
	j.touch()
}

// RecordResult stores what the pipeline produced so far. Called for
// successes and for partial failures alike; failed runs keep whatever
// identifiers and counts were reached before the abort.
func (j *CopyJob) RecordResult(newPlaylistID, newName, coverURL string, tracksTotal, tracksAdded int) {
	j.newPlaylistID = newPlaylistID
	j.newName = newName
	j.coverURL = coverURL
	j.tracksTotal = tracksTotal
	j.tracksAdded = tracksAdded
	j.touch()
}

// MarkCompleted transitions the job to the completed state.
func (j *CopyJob) MarkCompleted() {
	j.status = JobCompleted
	j.stage = ""
	j.errorMessage = ""
	j.touch()
}

// MarkFailed records the failing stage and cause.
func (j *CopyJob) MarkFailed(stage string, cause error) {
	j.status = JobFailed
	j.stage = stage
	if cause != nil {
		j.errorMessage = cause.Error()
	}
	j.touch()
}

// SoftDelete marks the job as deleted without removing the row.
func (j *CopyJob) SoftDelete() {
	now := time.Now().UTC()
	j.deletedAt = &now
	j.touch()
}

func (j *CopyJob) touch() { j.updatedAt = time.Now().UTC() }

// Validate checks required fields and the status value.
func (j *CopyJob) Validate() error {
	if j.id == "" {
		return fmt.Errorf("copy job requires an id")
	}
	if j.userID == "" {
		return fmt.Errorf("copy job requires a user id")
	}
	if j.sourcePlaylistID == "" {
		return fmt.Errorf("copy job requires a source playlist id")
	}
	switch j.status {
	case JobPending, JobRunning, JobCompleted, JobFailed:
	default:
		return fmt.Errorf("invalid job status %q", j.status)
	}
	return nil
}
