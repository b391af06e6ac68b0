// Package auth connects the external identity provider to the backend
// session. [Synchronizer] performs the token exchange with retries and
// reports a user-visible [Status].
package auth
