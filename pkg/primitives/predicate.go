package primitives

// Predicate is a comparison operator applied between two fields. Like is
// only meaningful for string fields.
type Predicate int

const (
	Equals Predicate = iota
	LessThan
	GreaterThan
	LessThanOrEqual
	GreaterThanOrEqual
	NotEqual
	Like
)

var predicateSymbols = [...]string{
	Equals:             "=",
	LessThan:           "<",
	GreaterThan:        ">",
	LessThanOrEqual:    "<=",
	GreaterThanOrEqual: ">=",
	NotEqual:           "<>",
	Like:               "LIKE",
}

func (p Predicate) String() string {
	if p < 0 || int(p) >= len(predicateSymbols) {
		return "UNKNOWN"
	}
	return predicateSymbols[p]
}
