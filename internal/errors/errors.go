package errors

import "fmt"

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code, message string, cause ...error) *AppError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   c,
	}
}

var (
	ErrConfigNotFound = &AppError{Code: "CONFIG_001", Message: "configuration not found"}
	ErrConfigInvalid  = &AppError{Code: "CONFIG_002", Message: "invalid configuration"}

	ErrValidation        = &AppError{Code: "VALID_001", Message: "invalid medicine record"}
	ErrMissingName       = &AppError{Code: "VALID_002", Message: "medicine name is required"}
	ErrInvalidTime       = &AppError{Code: "VALID_003", Message: "reminder time is not a valid HH:MM string"}
	ErrNegativeDosage    = &AppError{Code: "VALID_004", Message: "dosage amount must not be negative"}
	ErrDuplicateSlot     = &AppError{Code: "VALID_005", Message: "duplicate reminder time"}
	ErrInvalidSchedule   = &AppError{Code: "VALID_006", Message: "schedule end date is before start date"}
	ErrDuplicateID       = &AppError{Code: "VALID_007", Message: "medicine id already exists"}
	ErrMedicineNotFound  = &AppError{Code: "VALID_008", Message: "medicine not found"}

	ErrStorageRead  = &AppError{Code: "STORE_001", Message: "failed to read medicine collection"}
	ErrStorageWrite = &AppError{Code: "STORE_002", Message: "failed to persist medicine collection"}

	ErrEnrichment         = &AppError{Code: "ENRICH_001", Message: "label extraction failed"}
	ErrEnrichUnavailable  = &AppError{Code: "ENRICH_002", Message: "extraction provider unavailable"}

	ErrNotifyUnavailable = &AppError{Code: "NOTIFY_001", Message: "notification channel unavailable"}

	ErrNotFound   = &AppError{Code: "GEN_001", Message: "resource not found"}
	ErrBadRequest = &AppError{Code: "GEN_002", Message: "bad request"}
	ErrInternal   = &AppError{Code: "GEN_003", Message: "internal error"}
)

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}
