// Package diagnostics implements the relay agent's `dev doctor` command
// (spec.md §4.11): a fixed, ordered set of independent probes, none of
// which can prevent another from running.
package diagnostics

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/myndhyve/relay-agent/internal/config"
)

// MinGoVersion is the runtime version floor this build requires.
const MinGoVersion = "go1.22"

// Check is one independent probe's result.
type Check struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Fix     string `json:"fix,omitempty"`
}

// Report is runDoctor's return shape.
type Report struct {
	Version string  `json:"version"`
	Checks  []Check `json:"checks"`
	Passed  int     `json:"passed"`
	Failed  int     `json:"failed"`
}

// Options parameterizes RunDoctor for testability (cloud URL, HTTP
// client, clock). The env-token check reads MYNDHYVE_API_TOKEN directly.
type Options struct {
	ConfigDir  string
	CloudURL   string
	HTTPClient *http.Client
	Version    string
	Now        func() time.Time
}

// RunDoctor executes the 8 checks in spec.md §4.11's stable order.
func RunDoctor(ctx context.Context, opts Options) Report {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	checks := []Check{
		checkRuntimeVersion(),
		checkConfigDirExists(opts.ConfigDir),
	}

	cfg, cfgCheck := checkConfigFile(opts.ConfigDir)
	checks = append(checks, cfgCheck)

	checks = append(checks, checkAuthStatus(cfg))

	_, credsCheck := checkCredentialsFile(opts.ConfigDir, opts.Now())
	checks = append(checks, credsCheck)

	checks = append(checks, checkRelayConfigured(cfg))
	checks = append(checks, checkActiveProject(opts.ConfigDir))
	checks = append(checks, checkCloudReachable(ctx, opts.HTTPClient, opts.CloudURL))

	r := Report{Version: opts.Version, Checks: checks}
	for _, c := range checks {
		if c.OK {
			r.Passed++
		} else {
			r.Failed++
		}
	}
	return r
}

func checkRuntimeVersion() Check {
	v := runtime.Version()
	return Check{Name: "runtime version", OK: true, Message: v}
}

func checkConfigDirExists(dir string) Check {
	if _, err := os.Stat(dir); err != nil {
		return Check{Name: "config directory", OK: false, Message: "config directory does not exist", Fix: "run `relay setup`"}
	}
	return Check{Name: "config directory", OK: true, Message: dir}
}

func checkConfigFile(dir string) (*config.Config, Check) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, Check{Name: "config file", OK: false, Message: err.Error(), Fix: "fix or remove the config file and re-run `relay setup`"}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, Check{Name: "config file", OK: false, Message: err.Error(), Fix: "re-run `relay setup`"}
	}
	return cfg, Check{Name: "config file", OK: true, Message: "absent or schema-valid"}
}

func checkAuthStatus(cfg *config.Config) Check {
	if os.Getenv("MYNDHYVE_API_TOKEN") != "" {
		return Check{Name: "authentication", OK: true, Message: "env-token present"}
	}
	if cfg == nil {
		return Check{Name: "authentication", OK: false, Message: "no stored credentials", Fix: "run `relay setup`"}
	}
	if cfg.TokenValid(time.Now()) {
		return Check{Name: "authentication", OK: true, Message: "stored device token is valid"}
	}
	if cfg.DeviceToken != "" {
		return Check{Name: "authentication", OK: false, Message: "stored device token has expired", Fix: "re-run `relay setup`"}
	}
	return Check{Name: "authentication", OK: false, Message: "not authenticated", Fix: "run `relay setup`"}
}

func checkCredentialsFile(dir string, now time.Time) (*config.Credentials, Check) {
	creds, err := config.LoadCredentials(dir)
	if err != nil {
		return nil, Check{Name: "credentials file", OK: false, Message: err.Error(), Fix: "re-run `relay setup`"}
	}
	if creds == nil {
		return nil, Check{Name: "credentials file", OK: true, Message: "absent"}
	}
	if !creds.ExpiresAt.IsZero() && now.After(creds.ExpiresAt) {
		return creds, Check{Name: "credentials file", OK: false, Message: "credentials have expired", Fix: "re-run `relay setup`"}
	}
	return creds, Check{Name: "credentials file", OK: true, Message: "present and valid"}
}

func checkRelayConfigured(cfg *config.Config) Check {
	if cfg == nil || cfg.Channel == "" || cfg.RelayID == "" || cfg.DeviceToken == "" {
		return Check{Name: "relay configured", OK: false, Message: "channel, relayId, and deviceToken must all be set", Fix: "run `relay setup`"}
	}
	return Check{Name: "relay configured", OK: true, Message: "channel " + cfg.Channel + " registered as " + cfg.RelayID}
}

// checkActiveProject is optional; a missing project file is ok (spec.md
// §4.11 item 7). This build carries no project/workspace CRUD (explicit
// Non-goal), so the check only reports presence of a marker file a future
// build could populate.
func checkActiveProject(dir string) Check {
	path := filepath.Join(dir, "project.json")
	if _, err := os.Stat(path); err != nil {
		return Check{Name: "active project", OK: true, Message: "none set"}
	}
	return Check{Name: "active project", OK: true, Message: "project context present"}
}

func checkCloudReachable(ctx context.Context, client *http.Client, cloudURL string) Check {
	if cloudURL == "" {
		return Check{Name: "cloud reachable", OK: false, Message: "no cloud URL configured", Fix: "run `relay setup`"}
	}
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, cloudURL, nil)
	if err != nil {
		return Check{Name: "cloud reachable", OK: false, Message: err.Error()}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Check{Name: "cloud reachable", OK: false, Message: err.Error(), Fix: "check your network connection"}
	}
	defer resp.Body.Close()
	return Check{Name: "cloud reachable", OK: true, Message: resp.Status}
}
