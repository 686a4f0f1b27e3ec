// Package reflect implements the Reflection Tool (spec §4.6): a single
// zero-I/O primitive exposed to planning agents, creating a deliberate
// serialization point between search rounds. Grounded on the Python
// original's think_tool.
package reflect

import "strings"

// ThinkTool accepts free-form reflection text between search rounds and
// returns an acknowledgement. It performs no I/O and holds no state beyond
// the call itself — the value is the serialization point it creates in the
// planner's control flow, not anything it computes.
type ThinkTool struct{}

// Reflect returns an acknowledgement of the reflection text. An empty or
// whitespace-only reflection still acknowledges, since the contract is the
// call happening, not its content.
func (ThinkTool) Reflect(reflection string) string {
	trimmed := strings.TrimSpace(reflection)
	if trimmed == "" {
		return "Reflection recorded."
	}
	return "Reflection recorded: " + trimmed
}
