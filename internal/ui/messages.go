package ui

import (
	"github.com/linuxmatters/humprep/internal/processor"
)

// StageStartMsg indicates a batch stage has started
type StageStartMsg struct {
	Stage string // processor.StageTrain or processor.StageTest
	Total int    // groups for train, files for test
}

// ProgressMsg carries one finished item from the dispatcher
type ProgressMsg struct {
	Event processor.Event
}

// StageCompleteMsg indicates the current stage has finished
type StageCompleteMsg struct {
	Stage string
}

// AllCompleteMsg indicates every stage has finished
type AllCompleteMsg struct{}
