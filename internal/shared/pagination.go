package shared

// Page bounds a limit/offset listing. Zero or negative values fall back to
// defaults; limit is clamped so a single request cannot drain a ledger.
type Page struct {
	Limit  int
	Offset int
}

// Normalize applies defaults and the clamp.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > 200 {
		p.Limit = 200
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
