package assets

import _ "embed"

// OAuthPopupScript opens the provider login in a popup and waits for the
// oauth_success message of the callback page.
//
//go:embed oauth-popup.js
var OAuthPopupScript []byte
