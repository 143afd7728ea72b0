package db

// Kind tags the backend held by a Pool.
type Kind string

const (
	KindSQLite   Kind = "sqlite"
	KindPostgres Kind = "postgres"
)

func (k Kind) String() string {
	return string(k)
}

// ParseKind maps a backend name to its Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindSQLite, KindPostgres:
		return Kind(s), true
	default:
		return "", false
	}
}
