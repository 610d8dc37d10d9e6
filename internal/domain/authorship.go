package domain

// Authorship is the union of the ways a comment names its author: a
// reference to an account (linked), a free-text name carried by rows that
// predate accounts (legacy), or neither when the linked account has since
// been deleted (orphaned). Constructors keep at most one case populated;
// there is no way to build a value with both.
type Authorship struct {
	accountID  *int64
	legacyName string
}

// LinkedAuthorship references a live account as the comment's author.
func LinkedAuthorship(accountID int64) Authorship {
	return Authorship{accountID: &accountID}
}

// LegacyAuthorship records a pre-account free-text author name. An empty
// name yields the orphaned case instead.
func LegacyAuthorship(name string) Authorship {
	return Authorship{legacyName: name}
}

// OrphanedAuthorship marks a comment whose linked account was deleted.
// The comment survives; its ownership does not.
func OrphanedAuthorship() Authorship {
	return Authorship{}
}

// Linked returns the referenced account id, and false for the other cases.
func (a Authorship) Linked() (int64, bool) {
	if a.accountID == nil {
		return 0, false
	}
	return *a.accountID, true
}

// Legacy returns the free-text author name, and false for the other cases.
func (a Authorship) Legacy() (string, bool) {
	if a.accountID != nil || a.legacyName == "" {
		return "", false
	}
	return a.legacyName, true
}

// Orphaned reports whether the author's account no longer exists and no
// legacy name was ever recorded. Callers must render a placeholder for
// these, never an empty string.
func (a Authorship) Orphaned() bool {
	return a.accountID == nil && a.legacyName == ""
}
