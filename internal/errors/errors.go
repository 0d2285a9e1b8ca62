package errors

import "fmt"

// ErrorType defines the category of the error
type ErrorType string

const (
	TypeConfiguration ErrorType = "CONFIGURATION"
	TypeVCS           ErrorType = "VCS"
	TypePublish       ErrorType = "PUBLISH"
	TypeParse         ErrorType = "PARSE"
	TypeInternal      ErrorType = "INTERNAL"
)

// AppError represents a domain-level error with a type and an underlying error
type AppError struct {
	Type       ErrorType
	Message    string
	Context    map[string]interface{}
	Err        error
	Suggestion string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithError creates a new AppError with an underlying error
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    e.Context,
		Err:        err,
		Suggestion: e.Suggestion,
	}
}

// WithContext creates a new AppError with additional context
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	ctx := make(map[string]interface{})
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    ctx,
		Err:        e.Err,
		Suggestion: e.Suggestion,
	}
}

func (e *AppError) WithSuggestion(suggestion string) *AppError {
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    e.Context,
		Err:        e.Err,
		Suggestion: suggestion,
	}
}

// NewAppError creates a new AppError
func NewAppError(t ErrorType, msg string, err error) *AppError {
	return &AppError{
		Type:    t,
		Message: msg,
		Err:     err,
	}
}

// GitHub errors
var (
	ErrGitHubRateLimit = NewAppError(TypeVCS, "GitHub API rate limit exceeded", nil).
				WithSuggestion("Wait for the rate limit window to reset; the next tick retries the same window")

	ErrGitHubTokenInvalid = NewAppError(TypeVCS, "GitHub token is invalid or expired", nil).
				WithSuggestion("Set a valid token in GITHUB_TOKEN")

	ErrRepositoryNotFound = NewAppError(TypeVCS, "Repository not found", nil).
				WithSuggestion("Check REPO_OWNER and REPO_NAME, and that the token can read the repository")

	ErrUserNotFound = NewAppError(TypeVCS, "GitHub user not found", nil)
)

// Parse errors
var (
	ErrMissingStateTime = NewAppError(TypeParse, "Pull request has no timestamp for its reported state", nil)

	ErrMalformedSocialURL = NewAppError(TypeParse, "Linked social account URL does not match the expected shape", nil)
)

// Bluesky errors
var (
	ErrBlueskyAuth = NewAppError(TypePublish, "Bluesky authentication failed", nil).
			WithSuggestion("Check BLUESKY_IDENTIFIER and BLUESKY_PASSWORD (an app password, not the account password)")

	ErrResolveHandle = NewAppError(TypePublish, "Could not resolve handle to a DID", nil)

	ErrCreatePost = NewAppError(TypePublish, "Failed to create post", nil)

	ErrUploadBlob = NewAppError(TypePublish, "Failed to upload blob", nil)
)

// Configuration errors
var (
	ErrInvalidStartFrom = NewAppError(TypeConfiguration, "START_FROM is not a valid RFC3339 timestamp", nil).
				WithSuggestion("Use a value like 2024-01-01T00:00:00Z")

	ErrInvalidTimezone = NewAppError(TypeConfiguration, "TIMEZONE is not a valid IANA location", nil).
				WithSuggestion("Use a value like America/Argentina/Buenos_Aires or UTC")

	ErrInvalidCronSpec = NewAppError(TypeConfiguration, "POLL_CRON is not a valid cron expression", nil).
				WithSuggestion("Use a five-field spec like */5 * * * *")
)
