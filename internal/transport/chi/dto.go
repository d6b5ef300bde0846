package chi

import domquota "github.com/kailas-cloud/limitwatch/internal/domain/quota"

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeProjectNotFound  ErrorCode = "project_not_found"
	ErrorCodeStoreUnavailable ErrorCode = "store_unavailable"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// QuotaResponse is the quota state of a project.
type QuotaResponse struct {
	Project     string `json:"project"`
	Limit       int64  `json:"limit"`
	Used        int64  `json:"used"`
	Remaining   int64  `json:"remaining"`
	WarningSent bool   `json:"warning_sent"`
}

// UsageRequest is the body of POST /v1/projects/{id}/usage.
type UsageRequest struct {
	Amount int64 `json:"amount"`
}

func quotaToResponse(projectID string, q domquota.Quota) QuotaResponse {
	return QuotaResponse{
		Project:     projectID,
		Limit:       q.Limit(),
		Used:        q.Used(),
		Remaining:   q.Remaining(),
		WarningSent: q.WarningSent(),
	}
}
