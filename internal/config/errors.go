package config

import "github.com/keydash/keydash/internal/apperr"

// ErrMissingSecret is returned by Validate when no session signing secret is
// configured. The server must not start without one.
var ErrMissingSecret = apperr.New(apperr.Configuration, "session signing secret is not configured (set KEYDASH_AUTH_SECRET or NEXTAUTH_SECRET)")
