package participation

// Participation flag indices, as defined since the Altair fork.
const (
	TimelySourceFlagIndex = 0
	TimelyTargetFlagIndex = 1
	TimelyHeadFlagIndex   = 2
)

// Flags is the participation byte of a single validator.
type Flags uint8

const (
	TimelySource Flags = 1 << TimelySourceFlagIndex
	TimelyTarget Flags = 1 << TimelyTargetFlagIndex
	TimelyHead   Flags = 1 << TimelyHeadFlagIndex
)

// HasFlag reports whether all bits of mask are set in flags.
func HasFlag(flags Flags, mask Flags) bool {
	return flags&mask == mask
}
