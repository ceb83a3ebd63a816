// Package buildinfo contains build-time metadata and validation state separate from user configuration
package buildinfo

// UnknownValue is returned by Context's accessors when the corresponding
// field was never set (e.g. a binary built without -ldflags version info).
const UnknownValue = "unknown"

// BuildInfo provides an interface for accessing build-time metadata.
// This interface makes testing easier and allows for different implementations.
type BuildInfo interface {
	Version() string
	BuildDate() string
	SystemID() string
}

// Context contains build-time metadata that is not user-configurable.
// This data is injected at application startup (via NewContext, populated
// from -ldflags in cmd/audiopathd) and should not be part of the
// configuration system.
type Context struct {
	version   string
	buildDate string
	systemID  string
}

// NewContext constructs a Context from the values linked into the binary
// at build time.
func NewContext(version, buildDate, systemID string) *Context {
	return &Context{version: version, buildDate: buildDate, systemID: systemID}
}

// Version returns the Git version tag the binary was built from, or
// UnknownValue if none was linked in.
func (c *Context) Version() string {
	if c == nil || c.version == "" {
		return UnknownValue
	}
	return c.version
}

// BuildDate returns the time the binary was built, or UnknownValue.
func (c *Context) BuildDate() string {
	if c == nil || c.buildDate == "" {
		return UnknownValue
	}
	return c.buildDate
}

// SystemID returns the unique system identifier used for diagnostics, or
// UnknownValue.
func (c *Context) SystemID() string {
	if c == nil || c.systemID == "" {
		return UnknownValue
	}
	return c.systemID
}

// GetVersion is a deprecated alias for Version, kept for callers written
// against the earlier accessor names.
func (c *Context) GetVersion() string { return c.Version() }

// GetBuildDate is a deprecated alias for BuildDate.
func (c *Context) GetBuildDate() string { return c.BuildDate() }

// GetSystemID is a deprecated alias for SystemID.
func (c *Context) GetSystemID() string { return c.SystemID() }

// ValidationResult holds validation outcomes separately from configuration
// This prevents mixing validation state with configuration data.
type ValidationResult struct {
	// Warnings are configuration issues that don't prevent startup
	Warnings []string `json:"warnings,omitempty"`

	// Errors are critical issues that should prevent startup
	Errors []string `json:"errors,omitempty"`

	// Valid indicates if the configuration passed validation
	Valid bool `json:"valid"`
}

// AddWarning adds a warning to the validation result
func (r *ValidationResult) AddWarning(message string) {
	r.Warnings = append(r.Warnings, message)
}

// AddError adds an error to the validation result
func (r *ValidationResult) AddError(message string) {
	r.Errors = append(r.Errors, message)
	r.Valid = false
}

// HasIssues returns true if there are any warnings or errors
func (r *ValidationResult) HasIssues() bool {
	return len(r.Warnings) > 0 || len(r.Errors) > 0
}

// NewValidationResult creates a new validation result with Valid set to true
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid: true,
	}
}
