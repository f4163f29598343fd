package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/infragenius/infragenius/internal/deploy"
	"github.com/infragenius/infragenius/internal/health"
	"github.com/infragenius/infragenius/internal/sandbox"
)

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(headerStyle.Render(" infragenius "))
	b.WriteString("\n\n")

	sandboxes := m.deps.Sandboxes.List()
	if len(sandboxes) == 0 {
		b.WriteString(emptyStyle.Render("  No sandboxes. Press / to open the command bar, p to provision."))
		b.WriteString("\n")
	} else {
		for i, sb := range sandboxes {
			b.WriteString(m.renderSandboxLine(i, sb))
			b.WriteString("\n")
		}
	}

	b.WriteString(dividerStyle.Render(strings.Repeat("─", max(20, m.width-2))))
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString(m.renderHelp())
	} else {
		b.WriteString(m.renderOutput())
	}

	b.WriteString("\n")
	b.WriteString(hotkeysStyle.Render("  / command  p provision  enter verify  x destroy  ? help  q quit"))
	b.WriteString("\n")

	if m.confirmDestroy {
		b.WriteString(confirmStyle.Render(fmt.Sprintf("  Press x again to destroy %s", m.confirmName)))
		b.WriteString("\n")
	} else if m.message != "" {
		style := messageStyle
		if m.isError {
			style = errorStyle
		}
		b.WriteString(style.Render("  " + m.message))
		b.WriteString("\n")
	}

	if m.commanding {
		b.WriteString("  " + m.input.View())
		b.WriteString("\n")
	}

	return b.String()
}

func (m model) renderSandboxLine(i int, sb *sandbox.Sandbox) string {
	cursor := "  "
	name := nameStyle.Render(sb.Name)
	if i == m.cursor {
		cursor = "▸ "
		name = selectedNameStyle.Render(sb.Name)
	}

	icon := statusActive.Render("●")
	if sb.Name == m.progressName {
		icon = statusBusy.Render("◐")
	}

	age := formatAge(time.Since(sb.CreatedAt))
	return fmt.Sprintf("%s%s %s  %s  %s  %s",
		cursor, icon, name,
		idStyle.Render(sb.RemoteID),
		urlStyle.Render(sb.BaseURL),
		idStyle.Render(age))
}

func (m model) renderOutput() string {
	if strings.TrimSpace(m.output) == "" {
		return outputEmptyStyle.Render("  (no output yet)") + "\n"
	}
	var b strings.Builder
	lines := strings.Split(strings.TrimRight(m.output, "\n"), "\n")
	limit := max(4, m.height-len(m.deps.Sandboxes.List())-8)
	if len(lines) > limit {
		lines = lines[:limit]
		lines = append(lines, "…")
	}
	for _, line := range lines {
		b.WriteString(outputStyle.Render("  " + line))
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) renderHelp() string {
	rows := [][2]string{
		{"/provision <name>", "create a sandbox"},
		{"/deploy <name> <repo-url>", "clone, build and serve an app"},
		{"/run <name> <command>", "run a shell command in a sandbox"},
		{"/verify <url>", "probe a URL for health"},
		{"/latency <url> [n]", "sample request latency"},
		{"/destroy <name|all>", "tear down sandboxes"},
	}
	var b strings.Builder
	b.WriteString(helpHeaderStyle.Render("  Commands"))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("  %s  %s\n",
			helpKeyStyle.Render(fmt.Sprintf("%-26s", row[0])),
			helpDescStyle.Render(row[1])))
	}
	return b.String()
}

func renderDeployment(res *deploy.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Deploy %s → %s: %s\n", res.RepoURL, res.SandboxName, res.Overall)
	for _, step := range res.Steps {
		fmt.Fprintf(&b, "  %s: %s", step.Name, step.Status)
		if step.Status == deploy.StepFailed && step.Result.Stderr != "" {
			fmt.Fprintf(&b, " — %s", firstLine(step.Result.Stderr))
		}
		b.WriteString("\n")
	}
	if res.ServedURL != "" {
		fmt.Fprintf(&b, "  live at: %s\n", res.ServedURL)
	}
	return b.String()
}

func renderCommandOutput(stdout, stderr string) string {
	var b strings.Builder
	if strings.TrimSpace(stdout) != "" {
		b.WriteString(strings.TrimRight(stdout, "\n"))
		b.WriteString("\n")
	}
	if strings.TrimSpace(stderr) != "" {
		b.WriteString("stderr:\n")
		b.WriteString(strings.TrimRight(stderr, "\n"))
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "(no output)"
	}
	return b.String()
}

func renderVerify(res health.Result) string {
	if res.Reachable {
		latency := time.Duration(0)
		if len(res.Latencies) > 0 {
			latency = res.Latencies[0]
		}
		return fmt.Sprintf("%s is live (HTTP %d, %dms)", res.URL, res.StatusCode, latency.Milliseconds())
	}
	if res.StatusCode != 0 {
		return fmt.Sprintf("%s responded HTTP %d — not healthy", res.URL, res.StatusCode)
	}
	return fmt.Sprintf("%s is not reachable (no response)", res.URL)
}

func renderLatency(res health.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Latency for %s:\n", res.URL)
	for i, d := range res.Latencies {
		fmt.Fprintf(&b, "  #%d  %dms\n", i+1, d.Milliseconds())
	}
	if !res.Reachable {
		b.WriteString("  (no sample got a healthy response)\n")
	}
	return b.String()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
