package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/infragenius/infragenius/internal/deploy"
	"github.com/infragenius/infragenius/internal/executor"
	"github.com/infragenius/infragenius/internal/health"
	"github.com/infragenius/infragenius/internal/sandbox"
)

var validName = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*$`)

// runTimeout bounds an ad-hoc run_command invocation.
const runTimeout = 60 * time.Second

// Deps bundles the deployment core the toolset operates on.
type Deps struct {
	Sandboxes *sandbox.Registry
	Executor  *executor.Executor
	Pipeline  *deploy.Pipeline
	Health    *health.Verifier
}

// Deployment returns the deployment toolset: the full set of operations
// exposed to the agent runtime.
func Deployment(d Deps) []Tool {
	return []Tool{
		{
			Name:        "provision_sandbox",
			Description: "Provision a new cloud sandbox for deployment",
			Params:      []string{"name"},
			Handler:     d.provisionSandbox,
		},
		{
			Name:        "list_sandboxes",
			Description: "List all active sandboxes",
			Handler:     d.listSandboxes,
		},
		{
			Name:        "run_command",
			Description: "Execute a shell command in a sandbox",
			Params:      []string{"sandbox_name", "command"},
			Handler:     d.runCommand,
		},
		{
			Name:        "deploy_app",
			Description: "Deploy an app from a git repository to a sandbox (clone, install, build, serve)",
			Params:      []string{"sandbox_name", "repo_url"},
			Handler:     d.deployApp,
		},
		{
			Name:        "verify_url",
			Description: "Verify a URL is reachable and returns HTTP 2xx",
			Params:      []string{"url"},
			Handler:     d.verifyURL,
		},
		{
			Name:        "check_latency",
			Description: "Measure latency to a URL with multiple samples",
			Params:      []string{"url", "samples"},
			Handler:     d.checkLatency,
		},
		{
			Name:        "destroy_sandbox",
			Description: "Destroy a sandbox and release its remote resources",
			Params:      []string{"name"},
			Handler:     d.destroySandbox,
		},
	}
}

func (d Deps) provisionSandbox(ctx context.Context, args Args) (string, error) {
	name, err := args.String("name")
	if err != nil {
		return "", err
	}
	if !validName.MatchString(name) {
		return "", &ValidationError{Reason: fmt.Sprintf("invalid sandbox name %q: use letters, digits, and hyphens", name)}
	}
	sb, err := d.Sandboxes.Provision(ctx, name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Sandbox provisioned.\n  name: %s\n  id:   %s\n  url:  %s", sb.Name, sb.RemoteID, sb.BaseURL), nil
}

func (d Deps) listSandboxes(ctx context.Context, args Args) (string, error) {
	sandboxes := d.Sandboxes.List()
	if len(sandboxes) == 0 {
		return "No active sandboxes. Use provision_sandbox to create one.", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d active sandbox(es):\n", len(sandboxes))
	for _, sb := range sandboxes {
		fmt.Fprintf(&b, "  %s  id=%s  url=%s\n", sb.Name, sb.RemoteID, sb.BaseURL)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (d Deps) runCommand(ctx context.Context, args Args) (string, error) {
	name, err := args.String("sandbox_name")
	if err != nil {
		return "", err
	}
	command, err := args.String("command")
	if err != nil {
		return "", err
	}
	sb, err := d.Sandboxes.Get(name)
	if err != nil {
		return "", err
	}
	res, err := d.Executor.Run(ctx, sb, command, runTimeout)
	if err != nil {
		return "", err
	}
	return renderCommand(res), nil
}

func (d Deps) deployApp(ctx context.Context, args Args) (string, error) {
	name, err := args.String("sandbox_name")
	if err != nil {
		return "", err
	}
	repoURL, err := args.String("repo_url")
	if err != nil {
		return "", err
	}
	sb, err := d.Sandboxes.Get(name)
	if err != nil {
		return "", err
	}
	res, err := d.Pipeline.Deploy(ctx, sb, repoURL, nil)
	if res == nil {
		return "", err
	}
	// Partial progress stays visible even when the executor failed.
	return renderDeployment(res), err
}

func (d Deps) verifyURL(ctx context.Context, args Args) (string, error) {
	url, err := args.String("url")
	if err != nil {
		return "", err
	}
	res := d.Health.Verify(ctx, url, health.DefaultTimeout)
	return renderHealth(res), nil
}

func (d Deps) checkLatency(ctx context.Context, args Args) (string, error) {
	url, err := args.String("url")
	if err != nil {
		return "", err
	}
	samples, err := args.IntDefault("samples", health.DefaultSamples)
	if err != nil {
		return "", err
	}
	if samples < 1 {
		return "", &ValidationError{Reason: "parameter \"samples\" must be positive"}
	}
	res := d.Health.CheckLatency(ctx, url, samples, health.DefaultTimeout)

	var b strings.Builder
	fmt.Fprintf(&b, "%d latency sample(s) for %s:\n", len(res.Latencies), res.URL)
	for i, lat := range res.Latencies {
		fmt.Fprintf(&b, "  %d: %dms\n", i+1, lat.Milliseconds())
	}
	if !res.Reachable {
		b.WriteString("  (endpoint did not return HTTP 2xx on any attempt)")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (d Deps) destroySandbox(ctx context.Context, args Args) (string, error) {
	name, err := args.String("name")
	if err != nil {
		return "", err
	}
	if err := d.Sandboxes.Destroy(ctx, name); err != nil {
		return "", err
	}
	return fmt.Sprintf("Sandbox %q destroyed.", name), nil
}

func renderCommand(res executor.CommandResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "exit code: %d (%s)", res.ExitCode, res.Duration.Round(time.Millisecond))
	if res.Stdout != "" {
		b.WriteString("\nstdout:\n")
		b.WriteString(strings.TrimRight(res.Stdout, "\n"))
	}
	if res.Stderr != "" {
		b.WriteString("\nstderr:\n")
		b.WriteString(strings.TrimRight(res.Stderr, "\n"))
	}
	return b.String()
}

func renderDeployment(res *deploy.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Deployment %s\n", res.Overall)
	fmt.Fprintf(&b, "  repo:    %s\n", res.RepoURL)
	fmt.Fprintf(&b, "  sandbox: %s\n", res.SandboxName)
	for _, step := range res.Steps {
		line := fmt.Sprintf("  %s: %s", step.Name, step.Status)
		if step.Status == deploy.StepFailed && step.Result.Stderr != "" {
			line += " — " + firstLine(step.Result.Stderr)
		}
		b.WriteString(line + "\n")
	}
	if res.ServedURL != "" {
		fmt.Fprintf(&b, "  live at: %s\n", res.ServedURL)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderHealth(res health.Result) string {
	var latency string
	if len(res.Latencies) > 0 {
		latency = fmt.Sprintf(", %dms", res.Latencies[len(res.Latencies)-1].Milliseconds())
	}
	if res.Reachable {
		return fmt.Sprintf("%s is live (HTTP %d%s)", res.URL, res.StatusCode, latency)
	}
	if res.StatusCode != 0 {
		return fmt.Sprintf("%s is not healthy (HTTP %d%s)", res.URL, res.StatusCode, latency)
	}
	return fmt.Sprintf("%s is not reachable (no response%s)", res.URL, latency)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
