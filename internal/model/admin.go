package model

// Admin is a stored username/password-hash pair authorized to sign in. The ID
// is the record's key in the datastore and is not part of the stored document.
type Admin struct {
	ID           string `json:"-"`
	Username     string `json:"username"`
	PasswordHash string `json:"password"` // bcrypt hash, never expose over HTTP
}

// Identity is what a successful sign-in yields and what a session token
// carries.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
