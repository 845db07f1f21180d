package errors

import "net/http"

// ErrorCode identifies a failure category. Codes are stable strings so they
// can be emitted as metric labels and matched by API clients.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes shared by every layer.
const (
	CodeOK                 ErrorCode = "OK"
	CodeUnknown            ErrorCode = "COMMON_000"
	CodeInternal           ErrorCode = "COMMON_001"
	CodeBadRequest         ErrorCode = "COMMON_002"
	CodeNotFound           ErrorCode = "COMMON_003"
	CodeConflict           ErrorCode = "COMMON_004"
	CodeValidation         ErrorCode = "COMMON_005"
	CodeTimeout            ErrorCode = "COMMON_006"
	CodeSerialization      ErrorCode = "COMMON_007"
	CodeDatabaseError      ErrorCode = "COMMON_008"
	CodeCacheError         ErrorCode = "COMMON_009"
	CodeExternalService    ErrorCode = "COMMON_010"
	CodeServiceUnavailable ErrorCode = "COMMON_011"
)

// Ingestion error codes.
const (
	CodeSourceFetchFailed  ErrorCode = "ING_001"
	CodeSourceParseFailed  ErrorCode = "ING_002"
	CodeDuplicateProblem   ErrorCode = "ING_003"
	CodeArchiveWriteFailed ErrorCode = "ING_004"
)

// Analysis error codes.
const (
	CodeEmbeddingFailed   ErrorCode = "ANL_001"
	CodeVectorIndexError  ErrorCode = "ANL_002"
	CodeCapabilityUnknown ErrorCode = "ANL_003"
	CodeGapExists         ErrorCode = "ANL_004"
)

// httpStatusByCode maps error codes to the HTTP status the API layer should
// respond with. Codes absent from the map resolve to 500.
var httpStatusByCode = map[ErrorCode]int{
	CodeOK:                 http.StatusOK,
	CodeBadRequest:         http.StatusBadRequest,
	CodeValidation:         http.StatusBadRequest,
	CodeNotFound:           http.StatusNotFound,
	CodeConflict:           http.StatusConflict,
	CodeDuplicateProblem:   http.StatusConflict,
	CodeGapExists:          http.StatusConflict,
	CodeTimeout:            http.StatusGatewayTimeout,
	CodeServiceUnavailable: http.StatusServiceUnavailable,
	CodeSourceFetchFailed:  http.StatusBadGateway,
	CodeExternalService:    http.StatusBadGateway,
}

// HTTPStatus returns the HTTP status code associated with c.
func (c ErrorCode) HTTPStatus() int {
	if s, ok := httpStatusByCode[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}
