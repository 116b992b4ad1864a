package auth

// Phase names a position in the session lifecycle.
type Phase string

const (
	PhaseUninitialized  Phase = "uninitialized"
	PhaseRehydrating    Phase = "rehydrating"
	PhaseAnonymous      Phase = "anonymous"
	PhaseAuthenticating Phase = "authenticating"
	PhaseAuthenticated  Phase = "authenticated"
	PhaseLoggingOut     Phase = "logging_out"
)

// State is an immutable snapshot of the current session.
//
// Invariants: IsAuthenticated implies User != nil and Role != "";
// Error != "" implies !IsAuthenticated.
type State struct {
	Phase           Phase
	User            *User
	Role            Role
	IsAuthenticated bool
	Loading         bool
	Error           string
}

// InitialState is the state of a freshly constructed store: loading and not authenticated.
func InitialState() State {
	return State{Phase: PhaseUninitialized, Loading: true}
}

// AnonymousState is the logged-out state carrying an optional error message.
func AnonymousState(errMsg string) State {
	return State{Phase: PhaseAnonymous, Error: errMsg}
}

// AuthenticatedState is the logged-in state for user and role.
func AuthenticatedState(user User, role Role) State {
	u := user
	return State{Phase: PhaseAuthenticated, User: &u, Role: role, IsAuthenticated: true}
}

// Anonymous reports whether the snapshot is settled and logged out.
func (s State) Anonymous() bool { return !s.Loading && !s.IsAuthenticated }
