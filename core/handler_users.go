package core

import (
	"net/http"

	"github.com/caasmo/notesapi/auth"
)

// ProfileHandler returns the account of the authenticated user.
// Endpoint: GET /api/users/me
// Authenticated: Yes
func (a *App) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeJsonError(w, errorResponse(auth.ErrNoAccessToken))
		return
	}

	profile, err := a.authService.GetProfile(r.Context(), user.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeOkWithData(w, CodeOkProfile, "Profile retrieved", profile)
}

// UpdateProfileHandler changes the display name and the picture. Omitted
// fields keep their value.
// Endpoint: PUT /api/users/me
// Authenticated: Yes
// Allowed Mimetype: application/json
func (a *App) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	if resp, err := a.Validator().ContentType(r, MimeTypeJSON); err != nil {
		writeJsonError(w, resp)
		return
	}
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeJsonError(w, errorResponse(auth.ErrNoAccessToken))
		return
	}

	var req struct {
		FullName   string `json:"fullName"`
		ProfilePic string `json:"profilePic"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeJsonError(w, errorInvalidRequest)
		return
	}

	profile, err := a.authService.UpdateProfile(r.Context(), user.ID, auth.UpdateProfileInput{
		FullName:   req.FullName,
		ProfilePic: req.ProfilePic,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeOkWithData(w, CodeOkProfileUpdated, "Profile updated", profile)
}

// ChangePasswordHandler replaces the password after checking the current
// one and re-issues the access cookie.
// Endpoint: PUT /api/users/me/password
// Authenticated: Yes
// Allowed Mimetype: application/json
func (a *App) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	if resp, err := a.Validator().ContentType(r, MimeTypeJSON); err != nil {
		writeJsonError(w, resp)
		return
	}
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeJsonError(w, errorResponse(auth.ErrNoAccessToken))
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeJsonError(w, errorInvalidRequest)
		return
	}

	err := a.authService.ChangePassword(r.Context(), user.ID, auth.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	token, _, err := a.authService.Issuer().AccessToken(user.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.setAccessCookie(w, token)
	writeJsonOk(w, okPasswordChanged)
}

// DeleteAccountHandler removes the account with its refresh tokens. Accounts
// with a password must confirm it.
// Endpoint: DELETE /api/users/me
// Authenticated: Yes
// Allowed Mimetype: application/json, or no body for OAuth2 accounts
func (a *App) DeleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeJsonError(w, errorResponse(auth.ErrNoAccessToken))
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if r.ContentLength != 0 {
		if resp, err := a.Validator().ContentType(r, MimeTypeJSON); err != nil {
			writeJsonError(w, resp)
			return
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeJsonError(w, errorInvalidRequest)
			return
		}
	}

	if err := a.authService.DeleteAccount(r.Context(), user.ID, req.Password); err != nil {
		a.writeError(w, r, err)
		return
	}

	a.clearAccessCookie(w)
	writeJsonOk(w, okAccountDeleted)
}
