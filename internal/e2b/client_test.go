package e2b

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCreateDerivesBaseURL(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/sandboxes" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-API-Key"); got != "test-key" {
			t.Errorf("X-API-Key = %q, want %q", got, "test-key")
		}
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.TemplateID != "base" {
			t.Errorf("TemplateID = %q, want %q", req.TemplateID, "base")
		}
		json.NewEncoder(w).Encode(createResponse{SandboxID: "iabc123"})
	}))
	defer api.Close()

	c := NewClient(Config{APIKey: "test-key", APIURL: api.URL})
	inst, err := c.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if inst.RemoteID != "iabc123" {
		t.Errorf("RemoteID = %q, want %q", inst.RemoteID, "iabc123")
	}
	if want := "https://8000-iabc123.e2b.app"; inst.BaseURL != want {
		t.Errorf("BaseURL = %q, want %q", inst.BaseURL, want)
	}
}

func TestCreateAPIError(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer api.Close()

	c := NewClient(Config{APIKey: "k", APIURL: api.URL})
	if _, err := c.Create(context.Background()); err == nil {
		t.Fatal("Create succeeded against a failing API")
	}
}

func TestDestroyTolerateGone(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer api.Close()

	c := NewClient(Config{APIKey: "k", APIURL: api.URL})
	if err := c.Destroy(context.Background(), "iabc123"); err != nil {
		t.Fatalf("Destroy of a gone sandbox: %v", err)
	}
}

func TestExec(t *testing.T) {
	envd := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/commands" {
			t.Errorf("path = %q, want /commands", r.URL.Path)
		}
		var req execRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req.Args) != 2 || req.Args[1] != "echo hi" {
			t.Errorf("args = %v, want [-lc, echo hi]", req.Args)
		}
		json.NewEncoder(w).Encode(execResponse{ExitCode: 0, Stdout: "hi\n"})
	}))
	defer envd.Close()

	c := NewClient(Config{APIKey: "k", EnvdURL: envd.URL})
	out, err := c.Exec(context.Background(), "iabc123", "echo hi")
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if out.ExitCode != 0 || out.Stdout != "hi\n" {
		t.Errorf("unexpected output: %+v", out)
	}
}

func TestExecDeadlineComesFromCaller(t *testing.T) {
	envd := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(execResponse{ExitCode: 0})
	}))
	defer envd.Close()

	c := NewClient(Config{APIKey: "k", EnvdURL: envd.URL})

	// No client-level timeout: a slow install or build must be able to use
	// whatever step deadline its caller chose, however long.
	if c.http.Timeout != 0 {
		t.Fatalf("client timeout = %v, want none", c.http.Timeout)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Exec(ctx, "iabc123", "sleep 1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
}
