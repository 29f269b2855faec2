package analysis

// FibMode selects which Fibonacci ratio family to project
type FibMode string

const (
	FibRetracement FibMode = "retracement"
	FibExtension   FibMode = "extension"
)

// Level labels
const (
	Fib236  = "23.6%"
	Fib382  = "38.2%"
	Fib500  = "50%"
	Fib618  = "61.8%"
	Fib786  = "78.6%"
	Fib1272 = "127.2%"
	Fib1618 = "161.8%"
	Fib2618 = "261.8%"
)

var retracementRatios = map[string]float64{
	Fib236: 0.236,
	Fib382: 0.382,
	Fib500: 0.5,
	Fib618: 0.618,
	Fib786: 0.786,
}

var extensionRatios = map[string]float64{
	Fib1272: 1.272,
	Fib1618: 1.618,
	Fib2618: 2.618,
}

// FibonacciLevels projects price levels from a swing.
// Retracements are measured down from high, extensions down from low.
// Passing high below low flips the projection direction.
func FibonacciLevels(high, low float64, mode FibMode) map[string]float64 {
	diff := high - low
	levels := make(map[string]float64)

	switch mode {
	case FibRetracement:
		for label, ratio := range retracementRatios {
			levels[label] = high - diff*ratio
		}
	case FibExtension:
		for label, ratio := range extensionRatios {
			levels[label] = low - diff*ratio
		}
	}

	return levels
}
