package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_007"
	ErrCodeTimeout            ErrorCode = "COMMON_008"
	ErrCodeValidation         ErrorCode = "COMMON_009"
	ErrCodeSerialization      ErrorCode = "COMMON_010"
	ErrCodeDatabaseError      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_012"
	ErrCodeEventBusError      ErrorCode = "COMMON_013"

	ErrCodeUnknown ErrorCode = "COMMON_000"
	CodeOK         ErrorCode = "OK"
)

// Plan module error codes.
const (
	ErrCodePlanNotFound      ErrorCode = "PLAN_001"
	ErrCodePlanAccessDenied  ErrorCode = "PLAN_002"
	ErrCodePlanStatusInvalid ErrorCode = "PLAN_003"
	ErrCodePlanKindInvalid   ErrorCode = "PLAN_004"
)

// Installment module error codes.
const (
	ErrCodeInstallmentNotFound    ErrorCode = "INST_001"
	ErrCodeInstallmentAlreadyPaid ErrorCode = "INST_002"
	ErrCodeInstallmentNotPaid     ErrorCode = "INST_003"
	ErrCodeScheduleInvalid        ErrorCode = "INST_004"
)

// Migration module error codes.
const (
	ErrCodeSameSourceTarget ErrorCode = "MIG_001"
	ErrCodeEmptySelection   ErrorCode = "MIG_002"
	ErrCodeNoActiveDebts    ErrorCode = "MIG_003"
	ErrCodeLinkConflict     ErrorCode = "MIG_004"
	ErrCodeRollbackMismatch ErrorCode = "MIG_005"
	ErrCodeDebtNotFound     ErrorCode = "MIG_006"
	ErrCodeLinkNotFound     ErrorCode = "MIG_007"
	ErrCodeDecayNotEligible ErrorCode = "MIG_008"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeEventBusError:      http.StatusInternalServerError,

	ErrCodePlanNotFound:      http.StatusNotFound,
	ErrCodePlanAccessDenied:  http.StatusForbidden,
	ErrCodePlanStatusInvalid: http.StatusConflict,
	ErrCodePlanKindInvalid:   http.StatusBadRequest,

	ErrCodeInstallmentNotFound:    http.StatusNotFound,
	ErrCodeInstallmentAlreadyPaid: http.StatusConflict,
	ErrCodeInstallmentNotPaid:     http.StatusConflict,
	ErrCodeScheduleInvalid:        http.StatusUnprocessableEntity,

	ErrCodeSameSourceTarget: http.StatusUnprocessableEntity,
	ErrCodeEmptySelection:   http.StatusUnprocessableEntity,
	ErrCodeNoActiveDebts:    http.StatusUnprocessableEntity,
	ErrCodeLinkConflict:     http.StatusConflict,
	ErrCodeRollbackMismatch: http.StatusConflict,
	ErrCodeDebtNotFound:     http.StatusNotFound,
	ErrCodeLinkNotFound:     http.StatusNotFound,
	ErrCodeDecayNotEligible: http.StatusConflict,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeEventBusError:      "event bus error",

	ErrCodePlanNotFound:      "plan not found",
	ErrCodePlanAccessDenied:  "caller lacks rights on the referenced plan",
	ErrCodePlanStatusInvalid: "plan status does not allow this operation",
	ErrCodePlanKindInvalid:   "plan kind does not allow this operation",

	ErrCodeInstallmentNotFound:    "installment not found",
	ErrCodeInstallmentAlreadyPaid: "installment is already paid",
	ErrCodeInstallmentNotPaid:     "installment is not paid",
	ErrCodeScheduleInvalid:        "installment schedule is invalid",

	ErrCodeSameSourceTarget: "source and target plans must differ",
	ErrCodeEmptySelection:   "selection must not be empty",
	ErrCodeNoActiveDebts:    "no active debts matched the selection",
	ErrCodeLinkConflict:     "an active link already exists",
	ErrCodeRollbackMismatch: "rollback ids do not match the recorded migration",
	ErrCodeDebtNotFound:     "debt not found",
	ErrCodeLinkNotFound:     "link not found",
	ErrCodeDecayNotEligible: "plan is not eligible for decay confirmation",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
