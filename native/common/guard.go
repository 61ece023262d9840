package common

import (
	"errors"
	"strings"
)

var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a named native module is administratively paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects mutating calls into a paused module. A nil view or empty
// module name means unpaused.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// StaticPauses is a PauseView fixed at startup from configuration. Module
// name matching is case-insensitive.
type StaticPauses map[string]struct{}

// NewStaticPauses builds a view from a list of module names, ignoring blank
// entries.
func NewStaticPauses(modules []string) StaticPauses {
	out := make(StaticPauses, len(modules))
	for _, module := range modules {
		module = strings.ToLower(strings.TrimSpace(module))
		if module != "" {
			out[module] = struct{}{}
		}
	}
	return out
}

// IsPaused implements the PauseView interface.
func (s StaticPauses) IsPaused(module string) bool {
	_, ok := s[strings.ToLower(module)]
	return ok
}
