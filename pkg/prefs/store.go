package prefs

// Preference keys used by the linter.
const (
	KeyLintingEnabled = "linter.enabled"
	KeySchemaPath     = "linter.schema_path"
	KeyDisabledRules  = "linter.disabled_rules"
)

// Store is the narrow read/write contract the linter uses for settings.
// Implementations must be safe for concurrent use.
type Store interface {
	GetBool(key string, def bool) bool
	SetBool(key string, value bool) error

	GetString(key string, def string) string
	SetString(key string, value string) error

	GetStringList(key string, def []string) []string
	SetStringList(key string, value []string) error
}
