package core

import (
	"net/http"

	"github.com/caasmo/notesapi/assets"
)

// OAuth2PopupScriptHandler serves the opener side of the popup handshake
// for the web client.
// Endpoint: GET /assets/oauth-popup.js
// Authenticated: No
func (a *App) OAuth2PopupScriptHandler(w http.ResponseWriter, r *http.Request) {
	setHeaders(w, headersScript)
	w.WriteHeader(http.StatusOK)
	w.Write(assets.OAuthPopupScript)
}
