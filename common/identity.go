package common

// Identity is the authenticated caller decoded from a valid session token.
type Identity struct {
	UserID uint
}
