// Package detector recognizes search pages whose listings are rendered in the
// browser, so an empty static fetch can be told apart from a real empty result.
package detector

import (
	"bytes"
)

const defaultShellBytes = 2048

// Heuristic applies a few rule-based checks to a captured page body.
type Heuristic struct {
	// ShellBytes is the size under which a script-heavy page counts as a shell.
	ShellBytes int
}

// NewHeuristic returns a detector; a zero threshold selects the default.
func NewHeuristic(shellBytes int) *Heuristic {
	if shellBytes <= 0 {
		shellBytes = defaultShellBytes
	}
	return &Heuristic{ShellBytes: shellBytes}
}

// Mount points left by the frameworks the supported boards ship with.
var mountMarkers = [][]byte{
	[]byte("__next_data__"),
	[]byte(`id="__next"`),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
	[]byte("data-reactroot"),
	[]byte("ng-version="),
	[]byte("<app-root"),
}

// ClientRendered reports whether body looks like an application shell that
// only fills in its listings once scripts run.
func (h *Heuristic) ClientRendered(body []byte) bool {
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	lower := bytes.ToLower(body)
	for _, marker := range mountMarkers {
		if bytes.Contains(lower, marker) {
			return true
		}
	}
	return len(lower) < h.ShellBytes && scriptShare(lower) >= 25
}

// scriptShare returns the percentage of lower covered by <script> elements.
// An unterminated element runs to the end of the document.
func scriptShare(lower []byte) int {
	openTag := []byte("<script")
	closeTag := []byte("</script>")

	covered := 0
	rest := lower
	for {
		start := bytes.Index(rest, openTag)
		if start < 0 {
			break
		}
		rest = rest[start:]
		end := bytes.Index(rest, closeTag)
		if end < 0 {
			covered += len(rest)
			break
		}
		end += len(closeTag)
		covered += end
		rest = rest[end:]
	}
	return covered * 100 / len(lower)
}
