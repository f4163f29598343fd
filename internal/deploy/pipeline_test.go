package deploy

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/infragenius/infragenius/internal/executor"
	"github.com/infragenius/infragenius/internal/sandbox"
)

// fakeRunner scripts command results by substring match.
type fakeRunner struct {
	results  map[string]executor.CommandResult
	errs     map[string]error
	calls    []string
	started  []string
	startErr error
}

func (f *fakeRunner) Run(ctx context.Context, sb *sandbox.Sandbox, command string, timeout time.Duration) (executor.CommandResult, error) {
	f.calls = append(f.calls, command)
	for key, err := range f.errs {
		if strings.Contains(command, key) {
			return executor.CommandResult{}, err
		}
	}
	for key, res := range f.results {
		if strings.Contains(command, key) {
			return res, nil
		}
	}
	return executor.CommandResult{}, nil
}

func (f *fakeRunner) Start(ctx context.Context, sb *sandbox.Sandbox, command string) (executor.CommandResult, error) {
	f.started = append(f.started, command)
	if f.startErr != nil {
		return executor.CommandResult{}, f.startErr
	}
	return executor.CommandResult{}, nil
}

func testSandbox() *sandbox.Sandbox {
	return &sandbox.Sandbox{
		Name:     "deploy-1",
		RemoteID: "sbx-001",
		BaseURL:  "https://8000-sbx-001.e2b.app",
		Status:   sandbox.StatusActive,
	}
}

func stepNames(res *Result) []string {
	var names []string
	for _, s := range res.Steps {
		names = append(names, s.Name+":"+string(s.Status))
	}
	return names
}

func TestDeployNodeProject(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]executor.CommandResult{
			"ls -1": {Stdout: "package.json\nsrc\nREADME.md"},
		},
	}
	p := NewPipeline(runner, 8000)

	res, err := p.Deploy(context.Background(), testSandbox(), "https://github.com/acme/site.git", nil)
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if res.Overall != StatusSuccess {
		t.Errorf("Overall = %q, want %q\nsteps: %v", res.Overall, StatusSuccess, stepNames(res))
	}
	if res.ServedURL != "https://8000-sbx-001.e2b.app" {
		t.Errorf("ServedURL = %q", res.ServedURL)
	}
	want := []string{"clone:ok", "install:ok", "build:ok", "serve:ok"}
	got := stepNames(res)
	if len(got) != len(want) {
		t.Fatalf("steps = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("steps = %v, want %v", got, want)
		}
	}
	// Node projects serve the built dist directory.
	if len(runner.started) != 1 || !strings.Contains(runner.started[0], "/dist") {
		t.Errorf("serve command = %v, want a /dist path", runner.started)
	}
}

func TestDeployCloneFailure(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]executor.CommandResult{
			"git clone": {ExitCode: 128, Stderr: "repository not found"},
		},
	}
	p := NewPipeline(runner, 8000)

	res, err := p.Deploy(context.Background(), testSandbox(), "https://github.com/acme/missing.git", nil)
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if res.Overall != StatusFailed {
		t.Errorf("Overall = %q, want %q", res.Overall, StatusFailed)
	}
	if len(res.Steps) != 1 {
		t.Fatalf("steps = %v, want exactly the clone step", stepNames(res))
	}
	if res.Steps[0].Name != "clone" || res.Steps[0].Status != StepFailed {
		t.Errorf("step = %+v", res.Steps[0])
	}
	if res.Steps[0].Result.Stderr != "repository not found" {
		t.Errorf("clone stderr not recorded: %+v", res.Steps[0].Result)
	}
}

func TestDeployUnrecognizedProject(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]executor.CommandResult{
			"ls -1": {Stdout: "main.c\nMakefile"},
		},
	}
	p := NewPipeline(runner, 8000)

	res, err := p.Deploy(context.Background(), testSandbox(), "https://github.com/acme/cproj.git", nil)
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if res.Overall != StatusSuccess {
		t.Errorf("Overall = %q, want %q\nsteps: %v", res.Overall, StatusSuccess, stepNames(res))
	}
	want := []string{"clone:ok", "install:skipped", "build:skipped", "serve:ok"}
	got := stepNames(res)
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("steps = %v, want %v", got, want)
		}
	}
}

func TestDeployInstallFailureAborts(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]executor.CommandResult{
			"ls -1":       {Stdout: "package.json"},
			"npm install": {ExitCode: 1, Stderr: "ERESOLVE"},
		},
	}
	p := NewPipeline(runner, 8000)

	res, err := p.Deploy(context.Background(), testSandbox(), "https://github.com/acme/site.git", nil)
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if res.Overall != StatusPartialFailure {
		t.Errorf("Overall = %q, want %q", res.Overall, StatusPartialFailure)
	}
	last := res.Steps[len(res.Steps)-1]
	if last.Name != "install" || last.Status != StepFailed {
		t.Errorf("last step = %+v, want failed install", last)
	}
	if len(runner.started) != 0 {
		t.Error("serve was launched after an install failure")
	}
}

func TestDeployPythonSkipsBuild(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]executor.CommandResult{
			"ls -1": {Stdout: "app.py\nrequirements.txt"},
		},
	}
	p := NewPipeline(runner, 8000)

	res, err := p.Deploy(context.Background(), testSandbox(), "https://github.com/acme/api.git", nil)
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	want := []string{"clone:ok", "install:ok", "build:skipped", "serve:ok"}
	got := stepNames(res)
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("steps = %v, want %v", got, want)
		}
	}
}

func TestDeployExecutorErrorSurfaces(t *testing.T) {
	runner := &fakeRunner{
		errs: map[string]error{
			"git clone": &executor.ConnectionError{RemoteID: "sbx-001"},
		},
	}
	p := NewPipeline(runner, 8000)

	res, err := p.Deploy(context.Background(), testSandbox(), "https://github.com/acme/site.git", nil)
	if err == nil {
		t.Fatal("expected an executor-level error")
	}
	if res == nil || res.Overall != StatusFailed {
		t.Errorf("partial result missing or wrong: %+v", res)
	}
}

func TestDeployEmptyRepoURL(t *testing.T) {
	p := NewPipeline(&fakeRunner{}, 8000)
	_, err := p.Deploy(context.Background(), testSandbox(), "  ", nil)
	var re *RequestError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want RequestError", err)
	}
}

func TestDeployFreshWorkdirPerAttempt(t *testing.T) {
	runner := &fakeRunner{}
	p := NewPipeline(runner, 8000)

	sb := testSandbox()
	p.Deploy(context.Background(), sb, "https://github.com/acme/site.git", nil)
	p.Deploy(context.Background(), sb, "https://github.com/acme/site.git", nil)

	var clones []string
	for _, c := range runner.calls {
		if strings.Contains(c, "git clone") {
			clones = append(clones, c)
		}
	}
	if len(clones) != 2 || clones[0] == clones[1] {
		t.Errorf("redeploy reused the working directory: %v", clones)
	}
}
