package core

import (
	"encoding/json"
	"net/http"
)

// Standard response codes
const (
	// oks
	CodeOkSignup          = "ok_signup"
	CodeOkAuthentication  = "ok_authentication"
	CodeOkEmailVerified   = "ok_email_verified"
	CodeOkLogout          = "ok_logout"
	CodeOkTokenRefreshed  = "ok_token_refreshed"
	CodeOkAuthenticated   = "ok_authenticated"
	CodeOkProfile         = "ok_profile"
	CodeOkProfileUpdated  = "ok_profile_updated"
	CodeOkPasswordChanged = "ok_password_changed"
	CodeOkAccountDeleted  = "ok_account_deleted"
	CodeOkSessionsList    = "ok_sessions_list"
	CodeOkSessionRevoked  = "ok_session_revoked"

	// errors
	CodeErrorInvalidRequest     = "err_invalid_input"
	CodeErrorInvalidContentType = "err_invalid_content_type"
	CodeErrorNotFound           = "err_not_found"
	CodeErrorInternal           = "err_internal"
)

// precomputeBasicResponse marshals the body once. Package level responses
// are built before main runs and written as raw bytes.
func precomputeBasicResponse(status int, code, message string) jsonResponse {
	basic := JsonBasic{
		Status:  status,
		Code:    code,
		Message: message,
	}
	body, _ := json.Marshal(basic)
	return jsonResponse{status: status, body: body}
}

// Precomputed error and ok responses with status codes
var (
	// errors
	errorInvalidRequest     = precomputeBasicResponse(http.StatusBadRequest, CodeErrorInvalidRequest, "The request contains invalid data")
	errorInvalidContentType = precomputeBasicResponse(http.StatusUnsupportedMediaType, CodeErrorInvalidContentType, "Unsupported media type")
	errorNotFound           = precomputeBasicResponse(http.StatusNotFound, CodeErrorNotFound, "Requested resource not found")
	errorInternal           = precomputeBasicResponse(http.StatusInternalServerError, CodeErrorInternal, "Internal Server Error")

	// oks
	okEmailVerified   = precomputeBasicResponse(http.StatusOK, CodeOkEmailVerified, "Email verified successfully")
	okLogout          = precomputeBasicResponse(http.StatusOK, CodeOkLogout, "Logged out successfully")
	okPasswordChanged = precomputeBasicResponse(http.StatusOK, CodeOkPasswordChanged, "Password updated successfully")
	okAccountDeleted  = precomputeBasicResponse(http.StatusOK, CodeOkAccountDeleted, "Account deleted successfully")
	okSessionRevoked  = precomputeBasicResponse(http.StatusOK, CodeOkSessionRevoked, "Session revoked successfully")

	// okHealth is the heartbeat body, outside the envelope.
	okHealth = jsonResponse{status: http.StatusOK, body: []byte(`{"status":"ok"}`)}
)
