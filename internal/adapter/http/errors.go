package http

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/tenantscope/internal/adapter/manifest"
	"github.com/neomorfeo/tenantscope/internal/domain"
)

var errBadRequest = errors.New("bad request")

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	switch {
	case errors.Is(err, domain.ErrDefinitionNotFound),
		errors.Is(err, domain.ErrDeploymentNotFound),
		errors.Is(err, domain.ErrEntityNotFound),
		errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrBatchNotFound):
		return huma.Error404NotFound(err.Error())

	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrNullTenantID),
		errors.Is(err, domain.ErrTenantFilterClash),
		errors.Is(err, domain.ErrInvalidLookup),
		errors.Is(err, domain.ErrInvalidDeployment),
		errors.Is(err, domain.ErrNoInstances),
		errors.Is(err, manifest.ErrEmptyManifest):
		return huma.Error400BadRequest(err.Error())
	}

	var authErr *domain.TenantAuthorizationError
	if errors.As(err, &authErr) {
		return huma.Error403Forbidden(authErr.Error())
	}

	var specErr *domain.IllegalTenantSpecError
	if errors.As(err, &specErr) {
		return huma.Error400BadRequest(specErr.Error())
	}

	var ambiguous *domain.AmbiguousTenantError
	if errors.As(err, &ambiguous) {
		return huma.Error409Conflict(ambiguous.Error())
	}

	var immutable *domain.TenantImmutabilityError
	if errors.As(err, &immutable) {
		return huma.Error409Conflict(immutable.Error())
	}

	var (
		planErr     *domain.PlanTenantMismatchError
		instanceErr *domain.InstanceTenantError
		corrErr     *domain.CorrelationError
		trErr       *domain.TransitionError
		jobErr      *domain.JobFailureError
	)
	if errors.As(err, &planErr) || errors.As(err, &instanceErr) || errors.As(err, &corrErr) ||
		errors.As(err, &trErr) || errors.As(err, &jobErr) {
		return huma.Error422UnprocessableEntity(err.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
