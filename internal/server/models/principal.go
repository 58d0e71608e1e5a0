package models

// Principal is an authenticated identity together with the account
// attributes carried by its credential.
type Principal struct {
	UserID string
	// Permanent is set for long-lived credentials issued to system accounts.
	Permanent bool
	// PersistAll forces every upload of this account to be persistent.
	PersistAll bool
	// DefaultTags are prepended to the tags of every upload.
	DefaultTags []string
}
