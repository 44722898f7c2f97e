// Package deprecation announces deprecated API once per process.
//
// A Notice describes one deprecated entry point. Nag logs it the first time
// it is hit and stays quiet afterwards, so a deprecated call inside a loop
// does not flood the log.
//
//	var resolveGraphNotice = deprecation.Notice{
//	    Name:        "resolve.ResolveGraph",
//	    Replacement: "Engine.Resolve",
//	    RemovedIn:   2,
//	}
//
//	func ResolveGraph(...) {
//	    deprecation.Nag(logger, resolveGraphNotice)
//	    ...
//	}
package deprecation

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Notice describes a deprecated API.
type Notice struct {
	Name        string // fully qualified name of the deprecated API
	Replacement string // what to use instead, optional

	// RemovedIn is the major version that removes the API; 0 if unscheduled.
	RemovedIn int

	// UpgradeGuideVersion and UpgradeGuideSection point at the upgrade
	// guide entry. Both are optional.
	UpgradeGuideVersion int
	UpgradeGuideSection string

	// Disabled suppresses nagging while keeping the notice documented.
	Disabled bool
}

// Message renders the notice as one sentence.
func (n Notice) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s has been deprecated", n.Name)
	if n.RemovedIn > 0 {
		fmt.Fprintf(&b, " and is scheduled to be removed in v%d", n.RemovedIn)
	}
	b.WriteString(".")
	if n.Replacement != "" {
		fmt.Fprintf(&b, " Use %s instead.", n.Replacement)
	}
	if n.UpgradeGuideVersion > 0 {
		fmt.Fprintf(&b, " See the upgrade guide for v%d", n.UpgradeGuideVersion)
		if n.UpgradeGuideSection != "" {
			fmt.Fprintf(&b, " (section %q)", n.UpgradeGuideSection)
		}
		b.WriteString(".")
	}
	return b.String()
}

var (
	mu     sync.Mutex
	nagged = make(map[string]bool)
)

// Nag logs n as a warning the first time it is called for n.Name.
// It reports whether a message was logged. A nil logger uses log.Default().
func Nag(logger *log.Logger, n Notice) bool {
	if n.Disabled {
		return false
	}
	mu.Lock()
	if nagged[n.Name] {
		mu.Unlock()
		return false
	}
	nagged[n.Name] = true
	mu.Unlock()

	if logger == nil {
		logger = log.Default()
	}
	logger.Warn(n.Message())
	return true
}

// Reset forgets which notices were logged. Intended for tests.
func Reset() {
	mu.Lock()
	clear(nagged)
	mu.Unlock()
}
