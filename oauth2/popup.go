package oauth2

import (
	"html/template"
	"io"
)

var successPage = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Authentication Successful</title>
</head>
<body>
<p>Authentication successful. Closing window...</p>
<script nonce="{{.Nonce}}">
try {
  if (window.opener && window.opener.postMessage) {
    window.opener.postMessage({ type: 'oauth_success' }, {{.Origin}});
  } else {
    document.body.textContent = "Authentication successful, but the main window could not be notified. Please close this popup.";
  }
  window.close();
} catch (err) {
  document.body.textContent = "An error occurred during the final step of authentication. Please close this window and try again.";
}
</script>
</body>
</html>
`))

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Authentication Failed</title>
</head>
<body>
<p>{{.Message}}</p>
<p>You can close this window.</p>
</body>
</html>
`))

// GenericFailure is the only failure text shown in the popup.
const GenericFailure = "Authentication failed. Please try again."

// RenderSuccess writes the popup page that signals the opener at origin and
// closes itself. nonce must match the script-src nonce of the response CSP.
// No token ever appears in the page.
func RenderSuccess(w io.Writer, origin, nonce string) error {
	return successPage.Execute(w, struct{ Origin, Nonce string }{origin, nonce})
}

// RenderFailure writes the popup error page with the generic message.
func RenderFailure(w io.Writer) error {
	return errorPage.Execute(w, struct{ Message string }{GenericFailure})
}
