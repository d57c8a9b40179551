// Package shared contains response helpers used by every HTTP feature handler.
package shared

import (
	"errors"
	"log/slog"
	"net/http"

	domainerrors "idverse/pkg/domain-errors"
	"idverse/internal/transport/http/json"
)

// ErrorResponse is the JSON error envelope returned to clients.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// statusFor maps domain error codes to HTTP status codes. Unknown codes
// fall through to 500.
func statusFor(code domainerrors.Code) int {
	switch code {
	case domainerrors.CodeNotFound, domainerrors.CodeVCNotFound:
		return http.StatusNotFound
	case domainerrors.CodeBadRequest, domainerrors.CodeInvalidInput,
		domainerrors.CodeValidation, domainerrors.CodeUnknownClaim,
		domainerrors.CodeDisclosureMismatch:
		return http.StatusBadRequest
	case domainerrors.CodeUnauthorized, domainerrors.CodeInvalidSignature,
		domainerrors.CodeUnknownChallenge, domainerrors.CodeExpiredChallenge,
		domainerrors.CodeReplayedChallenge:
		return http.StatusUnauthorized
	case domainerrors.CodeForbidden, domainerrors.CodeUntrustedIssuer:
		return http.StatusForbidden
	case domainerrors.CodeConflict, domainerrors.CodeRevokedCredential,
		domainerrors.CodeExpiredCredential:
		return http.StatusConflict
	case domainerrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case domainerrors.CodeChainUnavailable, domainerrors.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError translates a domain error into an HTTP response. Internal
// errors are logged with their cause and masked from the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var derr *domainerrors.Error
	if !errors.As(err, &derr) {
		slog.ErrorContext(r.Context(), "unhandled error", "error", err)
		json.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	status := statusFor(derr.Code)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "code", derr.Code, "error", err)
		json.WriteJSON(w, status, ErrorResponse{Error: "internal server error", Code: string(derr.Code)})
		return
	}
	json.WriteJSON(w, status, ErrorResponse{Error: derr.Error(), Code: string(derr.Code)})
}

// DecodeError writes a 400 for malformed request bodies.
func DecodeError(w http.ResponseWriter, r *http.Request, err error) {
	WriteError(w, r, domainerrors.Wrap(err, domainerrors.CodeBadRequest, "invalid request body"))
}
