/*
Package authsdk is the wire contract and Go client for the authcore service.

The request and response types in this package are what the HTTP handlers
encode, so a client built on them cannot drift from the server. Every response
body carries the envelope fields "success" and "message".

# SDKClient vs Session

The package is organized around two main types:

  - SDKClient: unauthenticated calls (register, login, refresh, logout, health)
  - Session: calls that need an access token, with transparent refresh

Create an SDKClient and log in to obtain a Session:

	client := authsdk.NewSDKClient("https://auth.example.com")

	session, err := client.AuthenticateWithPassword(ctx, "alice@example.com", "correct horse")
	if err != nil {
		var apiErr *authsdk.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			// wrong email or password
		}
	}

	me, err := session.Me(ctx)

When the server rejects the access token the Session exchanges its refresh
token once and retries. Refresh tokens are single use; the Session always
keeps the most recent one.

	err = session.Logout(ctx)
*/
package authsdk
