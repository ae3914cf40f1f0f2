package domain

import "context"

// Decision is the outcome of a tenant authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow is the positive decision.
var Allow = Decision{Allowed: true}

// Deny builds a negative decision.
func Deny(reason string) Decision {
	return Decision{Reason: reason}
}

// AuthorizeTenant decides whether a caller may access a resource owned by
// resource. A nil caller means no authentication is installed.
func AuthorizeTenant(resource TenantID, caller *Authentication, checkEnabled bool) Decision {
	if !checkEnabled {
		return Allow
	}
	if resource.IsNone() {
		return Allow
	}
	if caller == nil {
		return Deny("no authentication installed")
	}
	if caller.TenantIDs.Contains(resource) {
		return Allow
	}
	return Deny("tenant '" + string(resource) + "' is not an authenticated tenant")
}

type authKey struct{}

type authSlot struct {
	auth *Authentication
}

// WithAuthentication installs auth on ctx for the duration of a request or job.
func WithAuthentication(ctx context.Context, auth Authentication) context.Context {
	auth.TenantIDs = NewTenantSet(auth.TenantIDs...)
	return context.WithValue(ctx, authKey{}, authSlot{auth: &auth})
}

// WithoutAuthentication hides any authentication installed by a parent context.
func WithoutAuthentication(ctx context.Context) context.Context {
	return context.WithValue(ctx, authKey{}, authSlot{})
}

// AuthenticationFromContext returns the installed authentication, or nil.
func AuthenticationFromContext(ctx context.Context) *Authentication {
	slot, ok := ctx.Value(authKey{}).(authSlot)
	if !ok || slot.auth == nil {
		return nil
	}
	a := *slot.auth
	return &a
}
