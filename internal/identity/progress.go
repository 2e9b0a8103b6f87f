package identity

const (
	// MessageExp is granted for every chat message a human sends.
	MessageExp = 5
	// MaxEarnedLevel is the highest level reachable through experience.
	MaxEarnedLevel = 90
)

// ExpForNextLevel returns the experience needed to advance past level.
func ExpForNextLevel(level int) int {
	if level <= 1 {
		return 100
	}
	a, b := 100, 100
	for i := 2; i <= level; i++ {
		a, b = b, a+b
	}
	return b
}

// Gain adds exp and applies every level-up it pays for.
func Gain(level, exp, gain int) (int, int) {
	if level < 1 {
		level = 1
	}
	exp += gain
	for level < MaxEarnedLevel && exp >= ExpForNextLevel(level) {
		exp -= ExpForNextLevel(level)
		level++
	}
	return level, exp
}
