package constants

// Tool name and related constants
const (
	// ToolName is the name of this tool
	ToolName = "tsrefs"

	// ConfigFileName is the config file written by `tsrefs init`
	ConfigFileName = "tsrefs.yaml"

	// EnvVarPrefix is the prefix for environment variables
	EnvVarPrefix = "TSREFS"
)

// Reference kinds, named after the initializer property they are added to
const (
	KindMigration  = "migration"
	KindEntity     = "entity"
	KindSubscriber = "subscriber"
)

// Initializer properties grown by the add-references command
const (
	PropertyMigrations  = "migrations"
	PropertyEntities    = "entities"
	PropertySubscribers = "subscribers"
)

// Source file extensions a matched directory expands to
var DirectoryExtensions = []string{".ts", ".cts", ".mts"}

// Output format constants
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)
