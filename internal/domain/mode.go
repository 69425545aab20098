package domain

// Mode is a game category with its own item pool and balance rules.
type Mode struct {
	ID         string
	Title      string
	Strategy   string
	Target     int
	PoolSize   int
	Categories []string
}
