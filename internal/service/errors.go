package service

import (
	"errors"
	"fmt"
)

// ValidationError reports input the caller must correct. It never triggers a retry.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a referenced country, product or tariff that does not exist
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

// IntegrityError means the stored timeline is corrupt: a point-in-time lookup matched more than one tariff
type IntegrityError struct {
	Key   string
	Date  string
	Count int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("tariff integrity violation: %d enabled tariffs for %s cover %s", e.Count, e.Key, e.Date)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsIntegrity(err error) bool {
	var target *IntegrityError
	return errors.As(err, &target)
}
