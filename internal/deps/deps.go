package deps

// Status reports whether an external tool sermonmux shells out to can be
// run. The daemon status payload and the doctor command render it as is.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Missing returns the required entries that are not available.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}
