package copier

import "fmt"

// ProgressUpdate represents a progress event during a duplication run.
//
// Used to send real-time updates to the web/CLI layer for display.
type ProgressUpdate struct {
	Stage   Stage  // Pipeline stage
	Step    int    // Current step number within the stage
	Total   int    // Total steps in this stage
	Message string // Human-readable message for display
}

func fetchSourceUpdate(id string) ProgressUpdate {
	return ProgressUpdate{
		Stage:   StageFetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching source playlist %s...", id),
	}
}

func createDestUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Stage:   StageCreateDest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating playlist %q...", name),
	}
}

func collectUpdate(collected int) ProgressUpdate {
	return ProgressUpdate{
		Stage:   StageCopyTracks,
		Step:    collected,
		Total:   0, // unknown until the terminating page
		Message: fmt.Sprintf("Collected %d tracks...", collected),
	}
}

func addBatchUpdate(added, total int) ProgressUpdate {
	return ProgressUpdate{
		Stage:   StageCopyTracks,
		Step:    added,
		Total:   total,
		Message: fmt.Sprintf("Added %d of %d tracks...", added, total),
	}
}

func copyCoverUpdate() ProgressUpdate {
	return ProgressUpdate{
		Stage:   StageCopyCover,
		Step:    1,
		Total:   1,
		Message: "Copying cover image...",
	}
}
