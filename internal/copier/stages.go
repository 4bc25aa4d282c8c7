package copier

import "fmt"

// Stage identifies where in the pipeline a duplication run is, or
// where it failed.
type Stage string

const (
	StageFetchSource Stage = "fetch_source"
	StageCreateDest  Stage = "create_destination"
	StageCopyTracks  Stage = "copy_tracks"
	StageCopyCover   Stage = "copy_cover"
)

// StageError tags a pipeline failure with the stage it occurred in.
// Steps completed before the failure are not rolled back: the
// destination playlist, if created, remains in whatever state it
// reached.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("duplication failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
