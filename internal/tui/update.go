package tui

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/infragenius/infragenius/internal/deploy"
	"github.com/infragenius/infragenius/internal/health"
)

var validName = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*$`)

// runTimeout bounds an ad-hoc /run command.
const runTimeout = 60 * time.Second

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 6
		return m, nil

	case statusTickMsg:
		// Surface progress updates from a background deploy.
		if m.progressPhase != nil && *m.progressPhase != "" {
			m.message = fmt.Sprintf("[%s] %s", m.progressName, *m.progressPhase)
			m.isError = false
		}
		return m, tickCmd()

	case provisionedMsg:
		if msg.err != nil {
			m.message = fmt.Sprintf("Error: %v", msg.err)
			m.isError = true
		} else {
			m.message = fmt.Sprintf("Provisioned sandbox %s", msg.name)
			m.isError = false
			m.output = fmt.Sprintf("Sandbox %s is up.\nURL: %s", msg.name, msg.url)
		}
		return m, nil

	case destroyedMsg:
		if msg.err != nil {
			m.message = fmt.Sprintf("Error: %v", msg.err)
			m.isError = true
			return m, nil
		}
		m.message = fmt.Sprintf("Destroyed sandbox %s", msg.name)
		m.isError = false
		if n := len(m.deps.Sandboxes.List()); m.cursor >= n && m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case allDestroyedMsg:
		if msg.err != nil {
			m.message = fmt.Sprintf("Error during teardown: %v", msg.err)
			m.isError = true
		} else {
			m.message = fmt.Sprintf("Destroyed %d sandboxes", msg.count)
			m.isError = false
		}
		m.cursor = 0
		return m, nil

	case deployFinishedMsg:
		m.progressName = ""
		m.progressPhase = nil
		if msg.res != nil {
			m.output = renderDeployment(msg.res)
		}
		if msg.err != nil {
			m.message = fmt.Sprintf("Deploy to %s failed: %v", msg.name, msg.err)
			m.isError = true
		} else if msg.res != nil && msg.res.Overall == deploy.StatusSuccess {
			m.message = fmt.Sprintf("Deployed to %s — live at %s", msg.name, msg.res.ServedURL)
			m.isError = false
		} else {
			m.message = fmt.Sprintf("Deploy to %s finished: %s", msg.name, msg.res.Overall)
			m.isError = true
		}
		return m, nil

	case opOutputMsg:
		if msg.err != nil {
			m.message = fmt.Sprintf("%s failed: %v", msg.title, msg.err)
			m.isError = true
		} else {
			m.message = msg.title
			m.isError = false
			m.output = msg.text
		}
		return m, nil

	case confirmExpiredMsg:
		m.confirmDestroy = false
		m.confirmName = ""
		return m, nil

	case tea.KeyMsg:
		if m.commanding {
			return m.handleCommandMode(msg)
		}
		return m.handleNormalMode(msg)
	}

	if m.commanding {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleNormalMode handles keys while navigating the sandbox list.
func (m model) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		default:
			m.showHelp = false
			return m, nil
		}
	}

	// Second x confirms a pending destroy; anything else cancels it.
	if m.confirmDestroy {
		m.confirmDestroy = false
		if msg.String() == "x" {
			name := m.confirmName
			m.confirmName = ""
			return m.destroyCmd(name)
		}
		m.confirmName = ""
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "/":
		m.commanding = true
		m.input.Focus()
		m.input.SetValue("")
		return m, textinput.Blink

	case "p":
		m.commanding = true
		m.input.Focus()
		m.input.SetValue("provision ")
		m.input.SetCursor(10)
		return m, textinput.Blink

	case "x":
		sandboxes := m.deps.Sandboxes.List()
		if m.cursor < len(sandboxes) {
			m.confirmDestroy = true
			m.confirmName = sandboxes[m.cursor].Name
			return m, tea.Tick(2*time.Second, func(time.Time) tea.Msg {
				return confirmExpiredMsg{}
			})
		}
		return m, nil

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		} else if n := len(m.deps.Sandboxes.List()); n > 0 {
			m.cursor = n - 1
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.deps.Sandboxes.List())-1 {
			m.cursor++
		}
		return m, nil

	case "enter":
		sandboxes := m.deps.Sandboxes.List()
		if m.cursor < len(sandboxes) {
			return m.verifyCmd(sandboxes[m.cursor].BaseURL)
		}
		return m, nil
	}

	return m, nil
}

// handleCommandMode handles keys while the command bar is active.
func (m model) handleCommandMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		m.commanding = false
		m.input.Blur()
		m.input.SetValue("")
		return m, nil

	case "enter":
		m.commanding = false
		m.input.Blur()
		return m.processInput()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) processInput() (tea.Model, tea.Cmd) {
	cmd := ParseCommand(m.input.Value())
	m.input.SetValue("")
	if cmd == nil {
		return m, nil
	}

	switch cmd.Name {
	case "provision":
		if len(cmd.Args) < 1 {
			return m.usage("Usage: /provision <name>")
		}
		name := cmd.Args[0]
		if !validName.MatchString(name) {
			return m.usage("Name must be alphanumeric (hyphens ok, e.g. deploy-1)")
		}
		m.message = fmt.Sprintf("Provisioning %s...", name)
		m.isError = false
		return m, func() tea.Msg {
			sb, err := m.deps.Sandboxes.Provision(context.Background(), name)
			if err != nil {
				return provisionedMsg{name: name, err: err}
			}
			return provisionedMsg{name: name, url: sb.BaseURL}
		}

	case "deploy":
		if len(cmd.Args) < 2 {
			return m.usage("Usage: /deploy <name> <repo-url>")
		}
		name, repoURL := cmd.Args[0], cmd.Args[1]
		sb, err := m.deps.Sandboxes.Get(name)
		if err != nil {
			return m.fail(err)
		}
		m.progressName = name
		phase := "Starting deployment..."
		m.progressPhase = &phase
		m.message = fmt.Sprintf("[%s] %s", name, phase)
		m.isError = false

		pp := m.progressPhase
		return m, func() tea.Msg {
			progress := func(p string) { *pp = p }
			res, err := m.deps.Pipeline.Deploy(context.Background(), sb, repoURL, progress)
			return deployFinishedMsg{name: name, res: res, err: err}
		}

	case "run":
		if len(cmd.Args) < 2 {
			return m.usage("Usage: /run <name> <command>")
		}
		name := cmd.Args[0]
		command := strings.Join(cmd.Args[1:], " ")
		sb, err := m.deps.Sandboxes.Get(name)
		if err != nil {
			return m.fail(err)
		}
		m.message = fmt.Sprintf("[%s] Running: %s", name, command)
		m.isError = false
		return m, func() tea.Msg {
			res, err := m.deps.Executor.Run(context.Background(), sb, command, runTimeout)
			if err != nil {
				return opOutputMsg{title: "run", err: err}
			}
			return opOutputMsg{
				title: fmt.Sprintf("[%s] exit code %d", name, res.ExitCode),
				text:  renderCommandOutput(res.Stdout, res.Stderr),
			}
		}

	case "verify":
		if len(cmd.Args) < 1 {
			return m.usage("Usage: /verify <url>")
		}
		return m.verifyCmd(cmd.Args[0])

	case "latency":
		if len(cmd.Args) < 1 {
			return m.usage("Usage: /latency <url> [samples]")
		}
		url := cmd.Args[0]
		samples := health.DefaultSamples
		if len(cmd.Args) > 1 {
			n, err := strconv.Atoi(cmd.Args[1])
			if err != nil || n < 1 {
				return m.usage("Samples must be a positive integer")
			}
			samples = n
		}
		m.message = fmt.Sprintf("Sampling latency for %s...", url)
		m.isError = false
		return m, func() tea.Msg {
			res := m.deps.Health.CheckLatency(context.Background(), url, samples, health.DefaultTimeout)
			return opOutputMsg{
				title: fmt.Sprintf("%d latency samples", len(res.Latencies)),
				text:  renderLatency(res),
			}
		}

	case "destroy":
		if len(cmd.Args) < 1 {
			return m.usage("Usage: /destroy <name> or /destroy all")
		}
		if cmd.Args[0] == "all" {
			count := len(m.deps.Sandboxes.List())
			if count == 0 {
				m.message = "No sandboxes to destroy"
				m.isError = false
				return m, nil
			}
			m.message = fmt.Sprintf("Destroying %d sandboxes...", count)
			m.isError = false
			return m, func() tea.Msg {
				err := m.deps.Sandboxes.Close(context.Background())
				return allDestroyedMsg{count: count, err: err}
			}
		}
		return m.destroyCmd(cmd.Args[0])

	case "quit":
		m.quitting = true
		return m, tea.Quit

	default:
		return m.usage(fmt.Sprintf("Unknown command: %s", cmd.Name))
	}
}

func (m model) destroyCmd(name string) (tea.Model, tea.Cmd) {
	m.message = fmt.Sprintf("Destroying sandbox %s...", name)
	m.isError = false
	return m, func() tea.Msg {
		err := m.deps.Sandboxes.Destroy(context.Background(), name)
		return destroyedMsg{name: name, err: err}
	}
}

func (m model) verifyCmd(url string) (tea.Model, tea.Cmd) {
	m.message = fmt.Sprintf("Verifying %s...", url)
	m.isError = false
	return m, func() tea.Msg {
		res := m.deps.Health.Verify(context.Background(), url, health.DefaultTimeout)
		return opOutputMsg{title: "verify", text: renderVerify(res)}
	}
}

func (m model) usage(text string) (tea.Model, tea.Cmd) {
	m.message = text
	m.isError = true
	return m, nil
}

func (m model) fail(err error) (tea.Model, tea.Cmd) {
	m.message = fmt.Sprintf("Error: %v", err)
	m.isError = true
	return m, nil
}
