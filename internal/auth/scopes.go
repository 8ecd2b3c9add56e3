package auth

// Scopes understood by the API.
const (
	ScopeRecordsRead      = "records:read"
	ScopeRecordsWrite     = "records:write"
	ScopePreferencesWrite = "preferences:write"
)

// AllScopes lists every scope.
var AllScopes = []string{ScopeRecordsRead, ScopeRecordsWrite, ScopePreferencesWrite}
