package usecase

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/screen_time/internal/domain"
)

// HostsUpdater null-routes domains through the hosts file.
// The original file is backed up once, before the first change.
type HostsUpdater struct {
	store        domain.HostsStore
	blockAddress string
	logger       *zap.Logger
}

// NewHostsUpdater creates an updater writing entries that point at blockAddress.
func NewHostsUpdater(store domain.HostsStore, blockAddress string, logger *zap.Logger) *HostsUpdater {
	return &HostsUpdater{
		store:        store,
		blockAddress: blockAddress,
		logger:       logger,
	}
}

// EnsureBackup copies the live hosts file aside unless a backup already exists.
func (h *HostsUpdater) EnsureBackup() error {
	if h.store.BackupExists() {
		return nil
	}
	if err := h.store.Backup(); err != nil {
		if errors.Is(err, domain.ErrBackupExists) {
			return nil
		}
		return fmt.Errorf("failed to back up hosts file: %w", err)
	}
	h.logger.Info("hosts file backed up",
		zap.String("path", h.store.Path()),
		zap.String("backup", h.store.BackupPath()))
	return nil
}

// Block appends two entries (bare and www.) for every domain not yet present
// in the hosts file. Lines already in the file are left untouched.
// It returns the domains written and the domains that were already listed.
func (h *HostsUpdater) Block(domains []string) (added, alreadyListed []string, err error) {
	targets := normalizeDomains(domains)
	if len(targets) == 0 {
		return nil, nil, nil
	}

	if err := h.EnsureBackup(); err != nil {
		return nil, nil, err
	}

	lines, err := h.store.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read hosts file: %w", err)
	}

	var entries []string
	for _, d := range targets {
		if containsDomain(lines, d) {
			alreadyListed = append(alreadyListed, d)
			continue
		}
		entries = append(entries,
			h.blockAddress+" "+d,
			h.blockAddress+" www."+d,
		)
		added = append(added, d)
	}

	if len(added) == 0 {
		return nil, alreadyListed, nil
	}

	if err := h.store.Append(entries); err != nil {
		return nil, alreadyListed, fmt.Errorf("failed to write hosts file: %w", err)
	}

	h.logger.Info("domains blocked",
		zap.Strings("domains", added),
		zap.String("address", h.blockAddress))

	return added, alreadyListed, nil
}

// Restore puts the backed-up hosts file back in place.
func (h *HostsUpdater) Restore() error {
	if err := h.store.Restore(); err != nil {
		if errors.Is(err, domain.ErrNoBackup) {
			return err
		}
		return fmt.Errorf("failed to restore hosts file: %w", err)
	}
	h.logger.Info("hosts file restored", zap.String("path", h.store.Path()))
	return nil
}

func normalizeDomains(domains []string) []string {
	seen := make(map[string]bool, len(domains))
	result := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		result = append(result, d)
	}
	sort.Strings(result)
	return result
}

func containsDomain(lines []string, d string) bool {
	for _, line := range lines {
		if strings.Contains(strings.ToLower(line), d) {
			return true
		}
	}
	return false
}
