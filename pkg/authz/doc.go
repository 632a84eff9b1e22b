// Package authz implements the authorization predicate described by the
// orchestrator: a space-separated scope list plus a request path yields
// an allow/deny decision driven entirely by a static Rule table, either
// supplied by the caller or loaded from a SCOPES_FILE YAML document.
package authz
