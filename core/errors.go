package core

// FieldError ties a validation failure to one request field, under the
// field's JSON name.
type FieldError struct {
	Field string
	Error string
}

// ValidationError marks an error as a client mistake so the HTTP layer can
// answer 400 instead of 500. Fields carries optional per-field detail.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, fields ...FieldError) error {
	return &ValidationError{Err: err, Fields: fields}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}
