package semantics

// Merger holds the settings of a merge between states at a control flow
// join. States share their merger when cloned.
type Merger struct {
	// MemoryAddressesMayAlias makes memory states consider addresses that may
	// be equal when reading and merging.
	MemoryAddressesMayAlias bool

	// MemoryMergeDebugging logs every memory cell merge at debug level.
	MemoryMergeDebugging bool

	// SetSizeLimit bounds the number of alternatives a merged symbolic value
	// can hold before it becomes bottom.
	SetSizeLimit int
}

func NewMerger() *Merger {
	return &Merger{
		MemoryAddressesMayAlias: true,
		SetSizeLimit:            1,
	}
}
