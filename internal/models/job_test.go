package models

import (
	"errors"
	"testing"
)

func TestCopyJob(t *testing.T) {
	t.Run("NewCopyJob", func(t *testing.T) {
		job := NewCopyJob("user1", "src123", "Road Trip")

		if job.Status() != JobPending {
			t.Errorf("expected pending status, got %s", job.Status())
		}
		if job.UserID() != "user1" || job.SourcePlaylistID() != "src123" {
			t.Errorf("unexpected job %+v", job)
		}
		if job.CreatedAt().IsZero() || job.UpdatedAt().IsZero() {
			t.Error("expected timestamps to be set")
		}
	})

	t.Run("Lifecycle Transitions", func(t *testing.T) {
		job := NewCopyJob("user1", "src123", "Road Trip")

		job.MarkRunning("fetch_source")
		if job.Status() != JobRunning || job.Stage() != "fetch_source" {
			t.Errorf("expected running at fetch_source, got %s/%s", job.Status(), job.Stage())
		}

		job.RecordResult("dst456", "Copy of Road Trip", "https://cdn.example.com/c.jpg", 10, 10)
		job.MarkCompleted()
		if job.Status() != JobCompleted {
			t.Errorf("expected completed, got %s", job.Status())
		}
		if job.Stage() != "" || job.ErrorMessage() != "" {
			t.Error("completion should clear stage and error")
		}
		if job.TracksAdded() != 10 || job.NewPlaylistID() != "dst456" {
			t.Errorf("unexpected result fields %+v", job)
		}
	})

	t.Run("MarkFailed Keeps Partial Result", func(t *testing.T) {
		job := NewCopyJob("user1", "src123", "Road Trip")
		job.RecordResult("dst456", "Copy of Road Trip", "", 250, 100)
		job.MarkFailed("copy_tracks", errors.New("rate limited"))

		if job.Status() != JobFailed || job.Stage() != "copy_tracks" {
			t.Errorf("expected failed at copy_tracks, got %s/%s", job.Status(), job.Stage())
		}
		if job.ErrorMessage() != "rate limited" {
			t.Errorf("unexpected error message %q", job.ErrorMessage())
		}
		if job.TracksAdded() != 100 || job.TracksTotal() != 250 {
			t.Errorf("expected partial counts preserved, got %d/%d", job.TracksAdded(), job.TracksTotal())
		}
	})

	t.Run("SoftDelete", func(t *testing.T) {
		job := NewCopyJob("user1", "src123", "Road Trip")
		if job.DeletedAt() != nil {
			t.Error("new job should not be deleted")
		}
		job.SoftDelete()
		if job.DeletedAt() == nil {
			t.Error("expected deleted_at to be set")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		job := NewCopyJob("user1", "src123", "Road Trip")
		job.SetID("id1")
		if err := job.Validate(); err != nil {
			t.Errorf("expected valid job, got %v", err)
		}

		missingID := NewCopyJob("user1", "src123", "Road Trip")
		if err := missingID.Validate(); err == nil {
			t.Error("expected error without an id")
		}

		missingUser := NewCopyJob("", "src123", "Road Trip")
		missingUser.SetID("id1")
		if err := missingUser.Validate(); err == nil {
			t.Error("expected error without a user id")
		}

		missingSource := NewCopyJob("user1", "", "Road Trip")
		missingSource.SetID("id1")
		if err := missingSource.Validate(); err == nil {
			t.Error("expected error without a source playlist id")
		}
	})
}
