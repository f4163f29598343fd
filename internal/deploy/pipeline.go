// Package deploy runs the clone → install → build → serve pipeline against
// a remote sandbox.
package deploy

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"

	"github.com/infragenius/infragenius/internal/executor"
	"github.com/infragenius/infragenius/internal/sandbox"
)

const (
	cloneTimeout   = 60 * time.Second
	installTimeout = 120 * time.Second
	buildTimeout   = 120 * time.Second
	probeTimeout   = 15 * time.Second
)

// RequestError reports a deployment request rejected before any step ran.
type RequestError struct {
	Reason string
}

func (e *RequestError) Error() string { return e.Reason }

// StepStatus is the outcome of a single pipeline step.
type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// Step records one command execution within the pipeline. Result is zero
// when the step was skipped or failed before a result was produced.
type Step struct {
	Name   string
	Status StepStatus
	Result executor.CommandResult
}

// Status is the overall outcome of a deployment.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusPartialFailure Status = "partial_failure"
	StatusFailed         Status = "failed"
)

// Result is the full record of one deployment attempt. Every attempted
// step is present regardless of outcome so partial progress stays visible.
type Result struct {
	SandboxName string
	RepoURL     string
	ServedURL   string
	Steps       []Step
	Overall     Status
}

// Runner is the executor surface the pipeline drives.
type Runner interface {
	Run(ctx context.Context, sb *sandbox.Sandbox, command string, timeout time.Duration) (executor.CommandResult, error)
	Start(ctx context.Context, sb *sandbox.Sandbox, command string) (executor.CommandResult, error)
}

// ProgressFunc is called with phase updates while a deployment runs.
type ProgressFunc func(phase string)

// Pipeline deploys applications from a git URL into sandboxes. Deployments
// to different sandboxes are independent; safe for concurrent use.
type Pipeline struct {
	runner Runner
	port   int
}

// NewPipeline creates a Pipeline serving applications on the given port.
func NewPipeline(runner Runner, port int) *Pipeline {
	if port == 0 {
		port = 8000
	}
	return &Pipeline{runner: runner, port: port}
}

// Deploy clones repoURL into a fresh working directory inside sb, installs
// dependencies and builds according to the detected project type, then
// starts a server in the background. Clone failure aborts with Failed;
// install or build failure aborts with PartialFailure; unrecognized projects
// skip install and build rather than failing. An executor-level error (
// timeout, lost connection) is returned alongside the partial result.
func (p *Pipeline) Deploy(ctx context.Context, sb *sandbox.Sandbox, repoURL string, progress ProgressFunc) (*Result, error) {
	if strings.TrimSpace(repoURL) == "" {
		return nil, &RequestError{Reason: "repo URL is required"}
	}

	report := func(phase string) {
		if progress != nil {
			progress(phase)
		}
	}

	res := &Result{
		SandboxName: sb.Name,
		RepoURL:     repoURL,
		Overall:     StatusFailed,
	}

	// Fresh workdir per deployment so redeploys never collide.
	workdir := "/home/user/app-" + uuid.NewString()[:8]

	report("Cloning repository...")
	cr, err := p.runner.Run(ctx, sb, shellquote.Join("git", "clone", repoURL, workdir), cloneTimeout)
	if err != nil {
		res.Steps = append(res.Steps, Step{Name: "clone", Status: StepFailed})
		return res, err
	}
	if cr.ExitCode != 0 {
		res.Steps = append(res.Steps, Step{Name: "clone", Status: StepFailed, Result: cr})
		return res, nil
	}
	res.Steps = append(res.Steps, Step{Name: "clone", Status: StepOK, Result: cr})

	report("Detecting project type...")
	lr, err := p.runner.Run(ctx, sb, shellquote.Join("ls", "-1", workdir), probeTimeout)
	if err != nil {
		res.Steps = append(res.Steps, Step{Name: "install", Status: StepFailed})
		res.Overall = StatusPartialFailure
		return res, err
	}
	pt, recognized := detect(lr.Stdout)
	if lr.ExitCode != 0 {
		recognized = false
	}

	if !recognized {
		res.Steps = append(res.Steps,
			Step{Name: "install", Status: StepSkipped},
			Step{Name: "build", Status: StepSkipped})
	} else {
		report("Installing dependencies...")
		ir, err := p.runStep(ctx, sb, workdir, pt.Install, installTimeout)
		if err != nil {
			res.Steps = append(res.Steps, Step{Name: "install", Status: StepFailed})
			res.Overall = StatusPartialFailure
			return res, err
		}
		if ir.ExitCode != 0 {
			res.Steps = append(res.Steps, Step{Name: "install", Status: StepFailed, Result: ir})
			res.Overall = StatusPartialFailure
			return res, nil
		}
		res.Steps = append(res.Steps, Step{Name: "install", Status: StepOK, Result: ir})

		if pt.Build == "" {
			res.Steps = append(res.Steps, Step{Name: "build", Status: StepSkipped})
		} else {
			report("Building...")
			br, err := p.runStep(ctx, sb, workdir, pt.Build, buildTimeout)
			if err != nil {
				res.Steps = append(res.Steps, Step{Name: "build", Status: StepFailed})
				res.Overall = StatusPartialFailure
				return res, err
			}
			if br.ExitCode != 0 {
				res.Steps = append(res.Steps, Step{Name: "build", Status: StepFailed, Result: br})
				res.Overall = StatusPartialFailure
				return res, nil
			}
			res.Steps = append(res.Steps, Step{Name: "build", Status: StepOK, Result: br})
		}
	}

	report("Starting server...")
	serveDir := workdir
	if recognized && pt.ServeDir != "" {
		serveDir = path.Join(workdir, pt.ServeDir)
	}
	serveCmd := fmt.Sprintf("cd %s && python3 -m http.server %d", shellquote.Join(serveDir), p.port)
	sr, err := p.runner.Start(ctx, sb, serveCmd)
	if err != nil {
		res.Steps = append(res.Steps, Step{Name: "serve", Status: StepFailed})
		res.Overall = StatusPartialFailure
		return res, err
	}
	res.Steps = append(res.Steps, Step{Name: "serve", Status: StepOK, Result: sr})
	res.ServedURL = sb.BaseURL
	res.Overall = StatusSuccess
	return res, nil
}

func (p *Pipeline) runStep(ctx context.Context, sb *sandbox.Sandbox, workdir, command string, timeout time.Duration) (executor.CommandResult, error) {
	full := fmt.Sprintf("cd %s && %s", shellquote.Join(workdir), command)
	return p.runner.Run(ctx, sb, full, timeout)
}
