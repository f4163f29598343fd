// Package e2b is a minimal client for the E2B sandbox API: sandbox
// create/kill against the control plane, command execution against the
// per-sandbox envd endpoint.
package e2b

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/infragenius/infragenius/internal/executor"
	"github.com/infragenius/infragenius/internal/sandbox"
)

const (
	// DefaultAPIURL is the E2B control-plane endpoint.
	DefaultAPIURL = "https://api.e2b.app"

	// DefaultDomain is the domain sandbox hostnames are derived from.
	DefaultDomain = "e2b.app"

	// DefaultTemplate is the Ubuntu-based template with common tooling.
	DefaultTemplate = "base"

	// DefaultTimeoutSeconds is the sandbox lifetime requested at creation.
	DefaultTimeoutSeconds = 600

	// envdPort is the command-execution API port inside every sandbox.
	envdPort = 49983

	// controlTimeout bounds control-plane calls (create, kill). Exec is
	// bounded by the caller's context instead: command deadlines vary per
	// pipeline step and must not be capped here.
	controlTimeout = 60 * time.Second
)

// Config holds client settings. Zero values fall back to the defaults
// above; APIURL and EnvdURL are injectable so tests can point the client at
// a local server.
type Config struct {
	APIKey         string
	APIURL         string
	Domain         string
	Template       string
	Port           int // app port baked into derived base URLs
	TimeoutSeconds int
	EnvdURL        string
	Logger         *slog.Logger
}

// Client talks to the E2B API. It implements sandbox.Provisioner and
// executor.Backend.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

// NewClient creates a Client, filling unset config fields with defaults.
func NewClient(cfg Config) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Domain == "" {
		cfg.Domain = DefaultDomain
	}
	if cfg.Template == "" {
		cfg.Template = DefaultTemplate
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = DefaultTimeoutSeconds
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{},
		log:  log,
	}
}

type createRequest struct {
	TemplateID string `json:"templateID"`
	Timeout    int    `json:"timeout"`
}

type createResponse struct {
	SandboxID string `json:"sandboxID"`
}

// Create provisions a new sandbox and returns its handle with the derived
// base URL.
func (c *Client) Create(ctx context.Context) (sandbox.Instance, error) {
	body, err := json.Marshal(createRequest{
		TemplateID: c.cfg.Template,
		Timeout:    c.cfg.TimeoutSeconds,
	})
	if err != nil {
		return sandbox.Instance{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, controlTimeout)
	defer cancel()

	var resp createResponse
	if err := c.do(ctx, http.MethodPost, c.cfg.APIURL+"/sandboxes", body, &resp); err != nil {
		return sandbox.Instance{}, fmt.Errorf("creating sandbox: %w", err)
	}
	if resp.SandboxID == "" {
		return sandbox.Instance{}, fmt.Errorf("creating sandbox: API returned no sandbox ID")
	}

	c.log.Debug("sandbox created", "id", resp.SandboxID)
	return sandbox.Instance{
		RemoteID: resp.SandboxID,
		BaseURL:  c.baseURL(resp.SandboxID),
	}, nil
}

// Destroy kills the sandbox. Killing an already-gone sandbox is not an
// error: the desired state is reached either way.
func (c *Client) Destroy(ctx context.Context, remoteID string) error {
	ctx, cancel := context.WithTimeout(ctx, controlTimeout)
	defer cancel()

	err := c.do(ctx, http.MethodDelete, c.cfg.APIURL+"/sandboxes/"+remoteID, nil, nil)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("killing sandbox %s: %w", remoteID, err)
	}
	c.log.Debug("sandbox killed", "id", remoteID)
	return nil
}

type execRequest struct {
	Cmd  string   `json:"cmd"`
	Args []string `json:"args"`
}

type execResponse struct {
	ExitCode int    `json:"exitCode"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// Exec runs a shell command inside the sandbox via its envd endpoint and
// waits for completion. The context deadline bounds the whole call.
func (c *Client) Exec(ctx context.Context, remoteID, command string) (executor.Output, error) {
	body, err := json.Marshal(execRequest{
		Cmd:  "/bin/sh",
		Args: []string{"-lc", command},
	})
	if err != nil {
		return executor.Output{}, err
	}

	var resp execResponse
	if err := c.do(ctx, http.MethodPost, c.execURL(remoteID), body, &resp); err != nil {
		return executor.Output{}, err
	}
	return executor.Output{
		ExitCode: resp.ExitCode,
		Stdout:   resp.Stdout,
		Stderr:   resp.Stderr,
	}, nil
}

func (c *Client) baseURL(id string) string {
	return fmt.Sprintf("https://%d-%s.%s", c.cfg.Port, id, c.cfg.Domain)
}

func (c *Client) execURL(id string) string {
	if c.cfg.EnvdURL != "" {
		return c.cfg.EnvdURL + "/commands"
	}
	return fmt.Sprintf("https://%d-%s.%s/commands", envdPort, id, c.cfg.Domain)
}

// statusError is a non-2xx API response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("API returned %d: %s", e.code, e.body)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{code: resp.StatusCode, body: string(bytes.TrimSpace(data))}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
