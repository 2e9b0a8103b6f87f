package identity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoleFor(t *testing.T) {
	tests := []struct {
		name  string
		kind  Kind
		level int
		want  Role
	}{
		{name: "guest", kind: KindGuest, level: 1, want: RoleGuest},
		{name: "account", kind: KindAccount, level: 40, want: RoleAccount},
		{name: "moderator is still account", kind: KindAccount, level: 91, want: RoleAccount},
		{name: "top tier observer", kind: KindAccount, level: 99, want: RoleObserver},
		{name: "persona never observer", kind: KindPersona, level: 99, want: RolePersona},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, RoleFor(tt.kind, tt.level, 99))
		})
	}
}

func TestExpForNextLevel(t *testing.T) {
	require.Equal(t, 100, ExpForNextLevel(0))
	require.Equal(t, 100, ExpForNextLevel(1))
	require.Equal(t, 200, ExpForNextLevel(2))
	require.Equal(t, 300, ExpForNextLevel(3))
	require.Equal(t, 500, ExpForNextLevel(4))
}

func TestGainLevelsUp(t *testing.T) {
	level, exp := Gain(1, 98, MessageExp)
	require.Equal(t, 2, level)
	require.Equal(t, 3, exp)

	level, exp = Gain(1, 0, MessageExp)
	require.Equal(t, 1, level)
	require.Equal(t, 5, exp)
}

func TestGainStopsAtCap(t *testing.T) {
	level, exp := Gain(MaxEarnedLevel, 1_000_000, MessageExp)
	require.Equal(t, MaxEarnedLevel, level)
	require.Equal(t, 1_000_005, exp)
}
