package shared

// Position represents the exposure a signal asks for over the next bar.
type Position int

const (
	Short Position = -1
	Flat  Position = 0
	Long  Position = 1
)

// String stringifies the provided position.
func (p Position) String() string {
	switch p {
	case Long:
		return "long"
	case Short:
		return "short"
	case Flat:
		return "flat"
	default:
		return "unknown"
	}
}

// Action returns the trading action for the position.
func (p Position) Action() string {
	switch p {
	case Long:
		return "buy"
	case Short:
		return "sell"
	default:
		return "stay out"
	}
}
