package apperrors

type Code string

const (
	CodeUnknown         Code = "UNKNOWN"
	CodeValidation      Code = "VALIDATION"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeNotFound        Code = "NOT_FOUND"
	CodeBlocked         Code = "BLOCKED"
	CodeNotAMember      Code = "NOT_A_MEMBER"
	CodeAdmissionFailed Code = "ADMISSION_FAILED"
	CodeInternal        Code = "INTERNAL"
)
