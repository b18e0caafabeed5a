// Package service installs `radar serve` as a systemd unit.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"
)

const (
	// UnitName is the systemd unit radar installs.
	UnitName = "release-radar"
	// DefaultUnitPath is where the unit file is written.
	DefaultUnitPath = "/etc/systemd/system/release-radar.service"
)

var (
	// ErrUnsupported indicates systemd is not available on this system.
	ErrUnsupported = errors.New("systemd is not available on this system")
	// ErrNotRoot indicates the operation needs root privileges.
	ErrNotRoot = errors.New("root privileges required")
)

// Status describes the installed unit.
type Status struct {
	Installed   bool   `json:"installed"`
	Enabled     bool   `json:"enabled"`
	Running     bool   `json:"running"`
	ActiveState string `json:"active_state"`
	SubState    string `json:"sub_state"`
}

// UnitConfig fills the unit template.
type UnitConfig struct {
	ExecPath   string
	ConfigPath string
	User       string
	WorkingDir string
}

const unitTemplate = `[Unit]
Description=Release Radar - deployed build tracker
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
User={{.User}}
Group={{.User}}
WorkingDirectory={{.WorkingDir}}
ExecStart={{.ExecPath}} serve --config {{.ConfigPath}}
Restart=on-failure
RestartSec=5
StandardOutput=journal
StandardError=journal

NoNewPrivileges=true
ProtectSystem=strict
ProtectHome=read-only
ReadWritePaths={{.WorkingDir}}
PrivateTmp=true

[Install]
WantedBy=multi-user.target
`

var unitTmpl = template.Must(template.New("unit").Parse(unitTemplate))

// RenderUnit returns the unit file content for cfg.
func RenderUnit(cfg UnitConfig) (string, error) {
	if cfg.ExecPath == "" || cfg.ConfigPath == "" {
		return "", errors.New("exec path and config path are required")
	}
	var buf bytes.Buffer
	if err := unitTmpl.Execute(&buf, cfg); err != nil {
		return "", fmt.Errorf("rendering unit: %w", err)
	}
	return buf.String(), nil
}

// DefaultUnitConfig points the unit at the running binary.
func DefaultUnitConfig() UnitConfig {
	execPath, err := os.Executable()
	if err == nil {
		if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
			execPath = resolved
		}
	}
	return UnitConfig{
		ExecPath:   execPath,
		ConfigPath: "/etc/release-radar/config.yaml",
		User:       "root",
		WorkingDir: "/etc/release-radar",
	}
}

// Runner executes systemctl with args and returns its combined output.
type Runner func(ctx context.Context, args ...string) ([]byte, error)

func systemctl(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "systemctl", args...).CombinedOutput()
}

// Manager installs and inspects the unit.
type Manager struct {
	UnitPath string
	Run      Runner
	// Check reports whether the host can manage units; nil means the
	// real Linux, systemctl and root checks.
	Check func() error
}

// NewManager returns a Manager acting on the system's systemd.
func NewManager() *Manager {
	return &Manager{UnitPath: DefaultUnitPath, Run: systemctl, Check: checkHost}
}

func checkHost() error {
	if runtime.GOOS != "linux" {
		return ErrUnsupported
	}
	if _, err := exec.LookPath("systemctl"); err != nil {
		return ErrUnsupported
	}
	if os.Geteuid() != 0 {
		return ErrNotRoot
	}
	return nil
}

func (m *Manager) check() error {
	if m.Check == nil {
		return checkHost()
	}
	return m.Check()
}

func (m *Manager) run(ctx context.Context, args ...string) error {
	out, err := m.Run(ctx, args...)
	if err != nil {
		return fmt.Errorf("systemctl %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Install writes the unit, enables it and starts it.
func (m *Manager) Install(ctx context.Context, cfg UnitConfig) error {
	if err := m.check(); err != nil {
		return err
	}

	content, err := RenderUnit(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.UnitPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing unit file: %w", err)
	}

	for _, args := range [][]string{{"daemon-reload"}, {"enable", UnitName}, {"start", UnitName}} {
		if err := m.run(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

// Uninstall stops and disables the unit and removes its file.
func (m *Manager) Uninstall(ctx context.Context) error {
	if err := m.check(); err != nil {
		return err
	}

	// Either may fail when the unit was never started or enabled.
	_ = m.run(ctx, "stop", UnitName)
	_ = m.run(ctx, "disable", UnitName)

	if err := os.Remove(m.UnitPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing unit file: %w", err)
	}
	return m.run(ctx, "daemon-reload")
}

// Status reports the unit's state. Systems without systemd report an empty
// status.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	status := &Status{}
	if err := m.check(); errors.Is(err, ErrUnsupported) {
		return status, nil
	}

	if _, err := os.Stat(m.UnitPath); err == nil {
		status.Installed = true
	}

	out, err := m.Run(ctx, "show", UnitName, "--property=ActiveState,SubState,UnitFileState")
	if err != nil {
		return status, nil
	}
	for _, line := range strings.Split(string(out), "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		switch key {
		case "ActiveState":
			status.ActiveState = value
			status.Running = value == "active"
		case "SubState":
			status.SubState = value
		case "UnitFileState":
			status.Enabled = value == "enabled"
		}
	}
	return status, nil
}
