package featureflag

// Flags is the set of feature flags a server was started with.
type Flags map[Flag]struct{}

// New returns the flag set for the given flag names.
func New(names []string) Flags {
	flags := make(Flags, len(names))
	for _, n := range names {
		flags[Flag(n)] = struct{}{}
	}
	return flags
}

// Set reports whether flag is set.
func (f Flags) Set(flag Flag) bool {
	_, ok := f[flag]
	return ok
}

// IfNotSet runs do unless flag is set.
func (f Flags) IfNotSet(flag Flag, do func()) {
	if f.Set(flag) {
		return
	}
	do()
}
