package service

import (
	"errors"

	"registrar/internal/registration/models"
	dErrors "registrar/pkg/domain-errors"
	"registrar/pkg/platform/sentinel"
)

// wrapStoreErr translates store failures. Missing rows become the given
// not-found rule; conflicts pass through untouched so runInTx can retry.
func wrapStoreErr(err error, notFound *models.RuleError, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrConflict):
		return err
	case notFound != nil && errors.Is(err, sentinel.ErrNotFound):
		return notFoundErr(notFound)
	case isDomainErr(err):
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func notFoundErr(rule *models.RuleError) error {
	return dErrors.Wrap(rule, dErrors.CodeNotFound, rule.Error())
}

func policyErr(err error) error {
	return dErrors.Wrap(err, dErrors.CodePolicyViolation, err.Error())
}

// toValidation turns model invariant failures into client-facing validation errors.
func toValidation(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		return dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
	}
	return err
}

func isDomainErr(err error) bool {
	var de *dErrors.Error
	return errors.As(err, &de)
}
