// Package ui provides the Bubbletea terminal user interface for humprep batch runs
package ui

import (
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/humprep/internal/processor"
)

// maxRecent is how many finished items the view lists
const maxRecent = 8

// ItemStatus is the outcome shown next to a finished item
type ItemStatus int

const (
	ItemCleaned ItemStatus = iota
	ItemPartial            // train group with some pairs dropped, or test file kept untrimmed
	ItemDropped            // train group with no pairs retained
	ItemFailed
)

// ItemResult is one line in the recent-items list
type ItemResult struct {
	Name     string
	Status   ItemStatus
	Retained int
	Dropped  int
	Err      error
}

// StageProgress tracks one batch stage
type StageProgress struct {
	Name      string
	Total     int
	Done      int
	Retained  int // train: pairs kept
	Dropped   int // train: pairs dropped
	Fallbacks int // test: files kept untrimmed
	Failed    int
	StartTime time.Time
	Elapsed   time.Duration
	Complete  bool
}

// Progress returns the finished fraction, 0.0 to 1.0
func (s StageProgress) Progress() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Done) / float64(s.Total)
}

// Remaining estimates the time left from the average pace so far
func (s StageProgress) Remaining() time.Duration {
	if s.Done == 0 || s.Done >= s.Total {
		return 0
	}
	per := s.Elapsed / time.Duration(s.Done)
	return per * time.Duration(s.Total-s.Done)
}

// Model is the Bubbletea model for a batch run
type Model struct {
	Title   string
	Stages  []StageProgress
	Current int // index into Stages, -1 before the first stage
	Recent  []ItemResult

	// Global state
	StartTime time.Time
	Done      bool
	Cancelled bool // user pressed q or ctrl+c

	// Channel for receiving progress updates from the dispatcher
	ProgressChan chan tea.Msg

	// Terminal dimensions
	Width  int
	Height int
}

// NewModel creates a new UI model
func NewModel(title string) Model {
	return Model{
		Title:        title,
		Current:      -1,
		StartTime:    time.Now(),
		ProgressChan: make(chan tea.Msg, 100),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return waitForProgress(m.ProgressChan)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.Cancelled = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case StageStartMsg:
		m.Stages = append(m.Stages, StageProgress{
			Name:      msg.Stage,
			Total:     msg.Total,
			StartTime: time.Now(),
		})
		m.Current = len(m.Stages) - 1
		m.Recent = nil
		return m, waitForProgress(m.ProgressChan)

	case ProgressMsg:
		if m.Current >= 0 {
			m.Stages[m.Current] = updateStage(m.Stages[m.Current], msg.Event)
			m.Recent = pushRecent(m.Recent, itemResult(msg.Event))
		}
		return m, waitForProgress(m.ProgressChan)

	case StageCompleteMsg:
		if m.Current >= 0 {
			m.Stages[m.Current].Complete = true
			m.Stages[m.Current].Elapsed = time.Since(m.Stages[m.Current].StartTime)
		}
		return m, waitForProgress(m.ProgressChan)

	case AllCompleteMsg:
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	if m.Done {
		return renderCompletionSummary(m)
	}
	return renderProcessingView(m)
}

// updateStage folds a dispatcher event into the stage counters
func updateStage(s StageProgress, ev processor.Event) StageProgress {
	s.Done = ev.Done
	if ev.Total > 0 {
		s.Total = ev.Total
	}
	s.Elapsed = time.Since(s.StartTime)

	s.Retained += ev.Retained
	s.Dropped += ev.Dropped
	if ev.Fallback {
		s.Fallbacks++
	}
	if ev.Err != nil {
		s.Failed++
	}
	return s
}

func itemResult(ev processor.Event) ItemResult {
	r := ItemResult{Name: ev.Item, Retained: ev.Retained, Dropped: ev.Dropped, Err: ev.Err}
	if ev.Stage == processor.StageTest {
		r.Name = filepath.Base(ev.Item)
	}

	switch {
	case ev.Err != nil:
		r.Status = ItemFailed
	case ev.Stage == processor.StageTrain && ev.Retained == 0:
		r.Status = ItemDropped
	case ev.Dropped > 0, ev.Fallback:
		r.Status = ItemPartial
	default:
		r.Status = ItemCleaned
	}
	return r
}

// pushRecent appends r, keeping only the newest maxRecent items
func pushRecent(recent []ItemResult, r ItemResult) []ItemResult {
	recent = append(recent, r)
	if len(recent) > maxRecent {
		recent = recent[len(recent)-maxRecent:]
	}
	return recent
}

// waitForProgress creates a command that waits for progress messages
func waitForProgress(progressChan chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-progressChan
	}
}
