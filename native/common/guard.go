package common

import "errors"

var ErrModulePaused = errors.New("module paused")

// PauseView reports operator-level kill switches, independent of the
// governance pause flags kept by the risk engine.
type PauseView interface {
	IsPaused(module string) bool
}

// StaticPauses is a fixed set of paused module names.
type StaticPauses map[string]bool

func (s StaticPauses) IsPaused(module string) bool {
	return s[module]
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
