package identity

// Role is the coarse participant category derived from account kind and privilege level.
type Role string

const (
	RoleGuest    Role = "guest"
	RoleAccount  Role = "account"
	RolePersona  Role = "automated-persona"
	RoleObserver Role = "privileged-observer"
)

// Kind tells how an identity was created.
type Kind int

const (
	KindAccount Kind = iota
	KindGuest
	KindPersona
)

// Identity is a uniquely named participant.
type Identity struct {
	Name   string
	Kind   Kind
	Level  int
	Exp    int
	Gender string
	Avatar string
}

// RoleFor derives the role tag. Privilege equal to topTier marks an observer
// regardless of how the identity was created, except for personas.
func RoleFor(kind Kind, level, topTier int) Role {
	switch {
	case kind == KindPersona:
		return RolePersona
	case topTier > 0 && level == topTier:
		return RoleObserver
	case kind == KindGuest:
		return RoleGuest
	default:
		return RoleAccount
	}
}

// Role returns the identity's role for the given top privilege tier.
func (i Identity) Role(topTier int) Role {
	return RoleFor(i.Kind, i.Level, topTier)
}

// IsPersona reports whether the identity is an automated persona.
func (i Identity) IsPersona() bool {
	return i.Kind == KindPersona
}
