package matcher

// Config holds the matching tolerances.
type Config struct {
	// AmountTolerance is the absolute difference below which two amounts
	// count as the same movement. Default: 0.001.
	AmountTolerance float64
}

// DefaultConfig returns the tolerances used in production.
func DefaultConfig() Config {
	return Config{
		AmountTolerance: 0.001,
	}
}
