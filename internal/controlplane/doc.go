// Package controlplane implements the HTTP client for the platform's
// identity and provisioning API.
//
// The client is deliberately thin: one method per endpoint, one blocking
// round trip per call, no retries and no caching. Policy (rollback on
// partial provisioning, idempotent teardown) lives in the fixture package;
// this package only translates Go calls into the platform's wire contract:
//
//	POST   /users/login/admin       {Email, Password}           -> {Token}
//	POST   /users/login             {Email, Password}           -> {Token}
//	GET    /users/email/{email}     (admin token)               -> {Id}
//	POST   /users/                  (admin token) {FullName, Email, Password} -> {Id}
//	DELETE /users/{id}              (admin token)               -> {Id}
//	POST   /things/                 (user token) {Name, Key}    -> {Id}
//	DELETE /things/{id}             (user token)                -> {Id}
//	GET    /things/{id}/token       (user token)                -> {Token}
//
// Any non-200 response becomes a *platform.ControlPlaneError carrying the
// status code and the response's reason text.
package controlplane
