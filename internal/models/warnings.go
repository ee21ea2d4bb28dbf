package models

// Warnings collects non-fatal side-effect failures (such as a best-effort
// delete of a replaced image that did not succeed). The primary operation's
// result is unaffected by entries here.
type Warnings []string

// Add appends a warning and returns the extended slice.
func (w Warnings) Add(msg string) Warnings {
	return append(w, msg)
}
