package models

// Realm is a flat protection-domain label carried by tokens. There is no
// hierarchy: admins does not imply users.
type Realm string

const (
	RealmUsers   Realm = "users"
	RealmVendors Realm = "vendors"
	RealmAdmins  Realm = "admins"
)

// Realms lists every recognized label.
var Realms = []Realm{RealmUsers, RealmVendors, RealmAdmins}

// ParseRealm validates a requested realm label. The empty string is valid:
// a token may carry no realm, in which case it only passes endpoints with an
// empty required set.
func ParseRealm(s string) (Realm, bool) {
	if s == "" {
		return "", true
	}
	for _, r := range Realms {
		if Realm(s) == r {
			return r, true
		}
	}
	return "", false
}

// In reports whether the realm is a member of the required set. An empty
// required set passes unconditionally.
func (r Realm) In(required []Realm) bool {
	if len(required) == 0 {
		return true
	}
	for _, req := range required {
		if r == req {
			return true
		}
	}
	return false
}
