package domain

import "errors"

var (
	ErrInvalidApproach   = errors.New("domain: invalid approach")
	ErrInvalidSample     = errors.New("domain: invalid sensor sample")
	ErrInvalidTimingPlan = errors.New("domain: invalid timing plan")
	ErrPlanNotFound      = errors.New("domain: timing plan not found")
)
