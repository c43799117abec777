package update

// UnknownIdentity is used in place of a user or host name that could not be detected.
const UnknownIdentity = "unknown"

// Actor identifies who started an upgrade run.
type Actor struct {
	// Hostname is the machine name where the run was started.
	Hostname string
	// Username is the system user the run executes as.
	Username string
}

// UnknownActor returns an actor with both identifiers set to UnknownIdentity.
func UnknownActor() *Actor {
	return &Actor{
		Hostname: UnknownIdentity,
		Username: UnknownIdentity,
	}
}

// String renders the actor as "user@host", substituting UnknownIdentity for blanks.
func (a *Actor) String() string {
	if a == nil {
		return UnknownIdentity + "@" + UnknownIdentity
	}

	username, hostname := a.Username, a.Hostname
	if username == "" {
		username = UnknownIdentity
	}

	if hostname == "" {
		hostname = UnknownIdentity
	}

	return username + "@" + hostname
}
