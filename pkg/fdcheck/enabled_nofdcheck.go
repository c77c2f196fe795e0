//go:build !fdcheck

package fdcheck

// Enabled reports whether descriptor tracking is compiled in.
const Enabled = false
