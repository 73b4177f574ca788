package core

import (
	"net/http"

	"github.com/caasmo/notesapi/auth"
)

// Example signup or login response:
//
//	{
//	  "status": 200,
//	  "code": "ok_authentication",
//	  "message": "Login successful",
//	  "data": {
//	    "_id": "6f1c...",
//	    "fullName": "Jane Doe",
//	    "email": "jane@example.com",
//	    "profilePic": "",
//	    "isVerified": true,
//	    "accessToken": "eyJhbGciOiJIUzI...",
//	    "refreshToken": "9b1e..."
//	  }
//	}

// AuthData is the data of signup and login responses.
type AuthData struct {
	auth.UserSummary
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshData is the data of the refresh token response.
type RefreshData struct {
	AccessToken string `json:"accessToken"`
}

// SessionsData wraps the session list.
type SessionsData struct {
	Sessions any `json:"sessions"`
}

func writeAuthResponse(w http.ResponseWriter, status int, code, message string, res *auth.AuthResult) {
	writeJsonWithData(w, JsonWithData{
		JsonBasic: JsonBasic{
			Status:  status,
			Code:    code,
			Message: message,
		},
		Data: AuthData{
			UserSummary:  res.User,
			AccessToken:  res.AccessToken,
			RefreshToken: res.RefreshToken,
		},
	})
}

func writeOkWithData(w http.ResponseWriter, code, message string, data any) {
	writeJsonWithData(w, JsonWithData{
		JsonBasic: JsonBasic{
			Status:  http.StatusOK,
			Code:    code,
			Message: message,
		},
		Data: data,
	})
}
