package domain

// Identity is the per-request authentication outcome: either a resolved
// account or anonymous. It is computed fresh for every request and never
// persisted. Anonymous is the zero value and a normal state, not an error.
type Identity struct {
	accountID int64
	username  string
	authed    bool
}

// Authenticated builds the identity of a resolved account.
func Authenticated(accountID int64, username string) Identity {
	return Identity{accountID: accountID, username: username, authed: true}
}

// Anonymous is the identity of a request carrying no valid session.
func Anonymous() Identity {
	return Identity{}
}

// Account returns the resolved account id, and false when anonymous.
func (i Identity) Account() (int64, bool) {
	if !i.authed {
		return 0, false
	}
	return i.accountID, true
}

// Username returns the resolved account's username, empty when anonymous.
func (i Identity) Username() string {
	return i.username
}

// IsAnonymous reports whether no account was resolved for the request.
func (i Identity) IsAnonymous() bool {
	return !i.authed
}
