package aggregates

// Contract names an aggregate and the tables whose consistency it owns. Writes to any
// of these tables go through the aggregate, and each write method runs in one
// transaction the aggregate opens itself.
type Contract struct {
	Name   string
	Tables []string
	Notes  string
}

// Aggregate is implemented by every write boundary so callers can log what they hold.
type Aggregate interface {
	Contract() Contract
}

// Owns reports whether table is one the aggregate is responsible for.
func (c Contract) Owns(table string) bool {
	for _, t := range c.Tables {
		if t == table {
			return true
		}
	}
	return false
}
