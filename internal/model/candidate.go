package model

// Candidate is one location ranked by distance from the origin.
//
// ID, Name, Address and Label are written once at ingestion. DistanceMiles
// and Resolved are owned by the ranking session: nil until a pass resolves
// the candidate, overwritten by a later pass and cleared by a reset.
type Candidate struct {
	ID            int          `json:"id"`
	Name          string       `json:"name"`
	Address       AddressQuery `json:"address"`
	Label         string       `json:"label"`
	DistanceMiles *float64     `json:"distance_miles,omitempty"`
	Resolved      *Coordinate  `json:"resolved,omitempty"`
}

// NewCandidate builds a candidate and derives its display label from the
// address, falling back to the name when the address is blank.
func NewCandidate(id int, name string, addr AddressQuery) Candidate {
	label := addr.Freeform()
	if label == "" {
		label = name
	}
	return Candidate{
		ID:      id,
		Name:    name,
		Address: addr.Trimmed(),
		Label:   label,
	}
}

// HasDistance reports whether the last pass resolved this candidate.
func (c Candidate) HasDistance() bool {
	return c.DistanceMiles != nil
}

// Distance returns the resolved distance, or zero and false when unresolved.
func (c Candidate) Distance() (float64, bool) {
	if c.DistanceMiles == nil {
		return 0, false
	}
	return *c.DistanceMiles, true
}

// ClearResolution drops any distance and coordinate left by a previous pass.
func (c *Candidate) ClearResolution() {
	c.DistanceMiles = nil
	c.Resolved = nil
}

// SetResolution records a successful resolution.
func (c *Candidate) SetResolution(coord Coordinate, miles float64) {
	c.Resolved = &coord
	c.DistanceMiles = &miles
}

// Clone returns a deep copy so callers cannot mutate session-owned fields.
func (c Candidate) Clone() Candidate {
	out := c
	if c.DistanceMiles != nil {
		d := *c.DistanceMiles
		out.DistanceMiles = &d
	}
	if c.Resolved != nil {
		r := *c.Resolved
		out.Resolved = &r
	}
	return out
}

// CloneAll deep-copies a candidate slice.
func CloneAll(cs []Candidate) []Candidate {
	out := make([]Candidate, len(cs))
	for i, c := range cs {
		out[i] = c.Clone()
	}
	return out
}
