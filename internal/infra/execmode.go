// Package infra implements infrastructure concerns (tracker, processes, hosts file, state).
package infra

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
)

// ExecMode represents the execution mode of the application.
type ExecMode string

const (
	// ExecModeUser runs as a regular user (hosts file likely read-only)
	ExecModeUser ExecMode = "user"
	// ExecModeSystem runs as root/Administrator and can edit the hosts file
	ExecModeSystem ExecMode = "system"
)

const (
	appDirName      = "screentime"
	configFileName  = "config.toml"
	logFileName     = "screentime.log"
	backupExtension = ".screentime.bak"
)

// ExecModeConfig holds paths and settings based on execution mode.
type ExecModeConfig struct {
	Mode       ExecMode
	DataDir    string // Where state, key and config live
	ConfigPath string // Default config file
	LogPath    string // Log file for the watch loop
	HostsPath  string // OS hosts file
	IsRoot     bool   // Whether running as root
}

// DetectExecMode determines the execution mode based on effective UID.
func DetectExecMode() *ExecModeConfig {
	isRoot := os.Geteuid() == 0

	if isRoot {
		dataDir := filepath.Join("/var/lib", appDirName)
		return &ExecModeConfig{
			Mode:       ExecModeSystem,
			DataDir:    dataDir,
			ConfigPath: filepath.Join(dataDir, configFileName),
			LogPath:    filepath.Join("/var/log", logFileName),
			HostsPath:  DefaultHostsPath(),
			IsRoot:     true,
		}
	}

	dataDir := filepath.Join(GetRealUserHome(), "."+appDirName)
	return &ExecModeConfig{
		Mode:       ExecModeUser,
		DataDir:    dataDir,
		ConfigPath: filepath.Join(dataDir, configFileName),
		LogPath:    filepath.Join(dataDir, logFileName),
		HostsPath:  DefaultHostsPath(),
		IsRoot:     false,
	}
}

// String returns a human-readable description of the mode.
func (m ExecMode) String() string {
	switch m {
	case ExecModeSystem:
		return "system (root, hosts file writable)"
	case ExecModeUser:
		return "user (non-root, hosts file may be read-only)"
	default:
		return "unknown"
	}
}

// DefaultHostsPath returns the hosts file location for the running OS.
func DefaultHostsPath() string {
	return hostsPathFor(runtime.GOOS, os.Getenv("SystemRoot"))
}

func hostsPathFor(goos, systemRoot string) string {
	if goos == "windows" {
		if systemRoot == "" {
			systemRoot = `C:\Windows`
		}
		return systemRoot + `\System32\drivers\etc\hosts`
	}
	return "/etc/hosts"
}

// DefaultBackupPath returns where the pristine copy of hostsPath is kept.
func DefaultBackupPath(hostsPath string) string {
	return hostsPath + backupExtension
}

// GetRealUserHome returns the real user's home directory, even when running under sudo.
// Under sudo, os.UserHomeDir() returns root's home, so we use SUDO_USER to find the real user.
func GetRealUserHome() string {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return u.HomeDir
		}
	}
	home, _ := os.UserHomeDir()
	return home
}
