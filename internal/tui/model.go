package tui

import (
	"os"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/infragenius/infragenius/internal/deploy"
	"github.com/infragenius/infragenius/internal/executor"
	"github.com/infragenius/infragenius/internal/health"
	"github.com/infragenius/infragenius/internal/sandbox"
)

// Deps is the deployment core the dashboard drives.
type Deps struct {
	Sandboxes *sandbox.Registry
	Executor  *executor.Executor
	Pipeline  *deploy.Pipeline
	Health    *health.Verifier
}

// model is the Bubble Tea model for the dashboard.
type model struct {
	deps       Deps
	input      textinput.Model
	cursor     int
	message    string
	isError    bool
	commanding bool // true when the command bar is active (/ pressed)
	quitting   bool
	width      int
	height     int

	// Output pane: the rendered result of the last operation.
	output string

	// In-flight deployment progress (shared pointer so the background
	// goroutine's phase updates are visible on the next tick).
	progressName  string
	progressPhase *string

	// Help pane toggle.
	showHelp bool

	// Double-press destroy confirmation.
	confirmDestroy bool
	confirmName    string
}

func newModel(deps Deps) model {
	ti := textinput.New()
	ti.Placeholder = "provision, deploy, run, verify, latency, destroy <args> | quit"
	ti.CharLimit = 512
	ti.Width = 80
	ti.Blur()

	// Initial terminal size so the first render isn't at width=0.
	w, h, _ := term.GetSize(int(os.Stdout.Fd()))
	if w == 0 {
		w = 80
	}
	if h == 0 {
		h = 24
	}

	return model{
		deps:   deps,
		input:  ti,
		width:  w,
		height: h,
	}
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}
