package fixtures

import (
	"os"
	"path/filepath"
)

// UnixHosts is a typical LF hosts file.
const UnixHosts = "127.0.0.1\tlocalhost\n" +
	"127.0.1.1\tlaptop\n" +
	"\n" +
	"# The following lines are desirable for IPv6 capable hosts\n" +
	"::1     ip6-localhost ip6-loopback\n"

// WindowsHosts is a CRLF hosts file as shipped with Windows.
const WindowsHosts = "# Copyright (c) 1993-2009 Microsoft Corp.\r\n" +
	"#\r\n" +
	"# localhost name resolution is handled within DNS itself.\r\n" +
	"#\t127.0.0.1       localhost\r\n" +
	"#\t::1             localhost\r\n"

// HostsFile is a hosts file and backup location inside a temp directory.
type HostsFile struct {
	Path       string
	BackupPath string
}

// NewHostsFile writes content to dir/hosts.
func NewHostsFile(dir, content string) (*HostsFile, error) {
	h := &HostsFile{
		Path:       filepath.Join(dir, "hosts"),
		BackupPath: filepath.Join(dir, "hosts.screentime.bak"),
	}
	if err := os.WriteFile(h.Path, []byte(content), 0644); err != nil {
		return nil, err
	}
	return h, nil
}

// Content returns the live file's bytes.
func (h *HostsFile) Content() string {
	data, _ := os.ReadFile(h.Path)
	return string(data)
}

// Backup returns the backup's bytes, or "" if it does not exist.
func (h *HostsFile) Backup() string {
	data, _ := os.ReadFile(h.BackupPath)
	return string(data)
}

// BackupExists reports whether the backup file is present.
func (h *HostsFile) BackupExists() bool {
	_, err := os.Stat(h.BackupPath)
	return err == nil
}
