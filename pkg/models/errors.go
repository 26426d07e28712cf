package models

import "github.com/forgelane/proposal-engine/pkg/apperrors"

func errInvalid(field, message string) error {
	return apperrors.NewValidation(field, message)
}
