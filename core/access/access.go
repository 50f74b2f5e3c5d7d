// Copyright 2026 dynrest.tech - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dynrest.tech
//

/*Package access provides the authentication boundary of the REST surface.

It validates bearer credentials, stores the authenticated identity in the
request context, and serves the token endpoints. The dispatcher itself only
ever asks whether a request carries a valid credential.
*/
package access

import (
	"context"
)

// contextKey is the type for context keys. Go linter does not like plain strings
type contextKey string

const contextKeyIdentity contextKey = "_identity_"

// ContextWithIdentity returns a new context with the authenticated identity
func ContextWithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, contextKeyIdentity, identity)
}

// IdentityFromContext retrieves the authenticated identity from the context,
// or the empty string for unauthenticated requests.
func IdentityFromContext(ctx context.Context) string {
	identity, ok := ctx.Value(contextKeyIdentity).(string)
	if !ok {
		return ""
	}
	return identity
}
