package infra

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/focusd/screen_time/internal/domain"
)

// ProcessControllerImpl implements domain.ProcessController using gopsutil.
type ProcessControllerImpl struct {
	list func() ([]*process.Process, error)
}

// NewProcessController creates a new process controller.
func NewProcessController() *ProcessControllerImpl {
	return &ProcessControllerImpl{list: process.Processes}
}

// FindByName returns the processes whose executable name matches name.
func (pc *ProcessControllerImpl) FindByName(name string) ([]*process.Process, error) {
	procs, err := pc.list()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	var found []*process.Process
	for _, p := range procs {
		procName, err := p.Name()
		if err != nil {
			continue // Process may have exited
		}
		if matchesName(procName, name) {
			found = append(found, p)
		}
	}
	return found, nil
}

// Terminate force-kills every process named name.
// Nothing running under that name is reported as OutcomeNotRunning.
func (pc *ProcessControllerImpl) Terminate(name string) (domain.TerminateOutcome, error) {
	procs, err := pc.FindByName(name)
	if err != nil {
		return domain.OutcomeNotRunning, err
	}
	if len(procs) == 0 {
		return domain.OutcomeNotRunning, nil
	}

	var errs []error
	killed := 0
	for _, p := range procs {
		if err := p.Kill(); err != nil {
			running, _ := p.IsRunning()
			if !running {
				// Exited between listing and kill
				continue
			}
			errs = append(errs, fmt.Errorf("kill pid %d: %w", p.Pid, err))
			continue
		}
		killed++
	}

	if len(errs) > 0 {
		outcome := domain.OutcomeNotRunning
		if killed > 0 {
			outcome = domain.OutcomeTerminated
		}
		return outcome, fmt.Errorf("terminate %s: %d of %d processes failed: %w",
			name, len(errs), len(procs), errors.Join(errs...))
	}
	if killed == 0 {
		return domain.OutcomeNotRunning, nil
	}
	return domain.OutcomeTerminated, nil
}

// matchesName compares process names case-insensitively, ignoring a
// trailing ".exe" so Windows-style targets also match on Unix.
func matchesName(procName, target string) bool {
	if strings.EqualFold(procName, target) {
		return true
	}
	return strings.EqualFold(trimExe(procName), trimExe(target))
}

func trimExe(name string) string {
	if len(name) > 4 && strings.EqualFold(name[len(name)-4:], ".exe") {
		return name[:len(name)-4]
	}
	return name
}

// Ensure ProcessControllerImpl implements domain.ProcessController.
var _ domain.ProcessController = (*ProcessControllerImpl)(nil)
