package srs

// Params defines the configurable parameters of the initial review schedule
type Params struct {
	// OffsetDays are the distances in days from the creation date, one per
	// stage, in stage order
	OffsetDays []int

	// Priority assigned to every initial review
	Priority int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance
type ParamsConfig struct {
	OffsetDays []int
	Priority   int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		// 1, 3, 7 and 14 days after creation
		OffsetDays: []int{1, 3, 7, 14},
		Priority:   1,
	}
}

// NewParams creates a new Params instance with custom configuration.
// Offsets that are empty or not strictly increasing are ignored.
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if validOffsets(config.OffsetDays) {
		params.OffsetDays = append([]int(nil), config.OffsetDays...)
	}
	if config.Priority > 0 {
		params.Priority = config.Priority
	}

	return params
}

func validOffsets(offsets []int) bool {
	if len(offsets) == 0 {
		return false
	}
	prev := 0
	for _, o := range offsets {
		if o <= prev {
			return false
		}
		prev = o
	}
	return true
}
