package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/infragenius/infragenius/internal/deploy"
)

// provisionedMsg is sent when a sandbox finishes provisioning.
type provisionedMsg struct {
	name string
	url  string
	err  error
}

// destroyedMsg is sent when a sandbox is destroyed.
type destroyedMsg struct {
	name string
	err  error
}

// allDestroyedMsg is sent after /destroy all completes.
type allDestroyedMsg struct {
	count int
	err   error
}

// deployFinishedMsg is sent when a deployment pipeline run completes.
type deployFinishedMsg struct {
	name string
	res  *deploy.Result
	err  error
}

// opOutputMsg carries the rendered result of a run/verify/latency call.
type opOutputMsg struct {
	title string
	text  string
	err   error
}

// confirmExpiredMsg cancels a pending destroy confirmation.
type confirmExpiredMsg struct{}

// statusTickMsg triggers a periodic refresh.
type statusTickMsg time.Time

// tickCmd returns a command that ticks every second.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}
