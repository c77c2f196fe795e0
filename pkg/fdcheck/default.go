package fdcheck

// Default returns the Checker selected at build time: a Validator reporting
// to the standard logrus logger when the program is built with the fdcheck
// tag, Nop otherwise.
func Default() Checker {
	if Enabled {
		return New()
	}
	return Nop
}
