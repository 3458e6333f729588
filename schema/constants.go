package schema

// Custom string types for type safety.
type (
	// TelemetryFormat identifies which family of species a handler imports.
	TelemetryFormat string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for telemetry storage.
	DatabaseBackend string

	// RunStatus represents the outcome of a single import run.
	RunStatus string

	// ErrorKind classifies the phase in which an import failed.
	ErrorKind string
)

// All telemetry formats supported.
const (
	GasFormat       TelemetryFormat = "gas"
	PollutionFormat TelemetryFormat = "pollution" // default
	WeatherFormat   TelemetryFormat = "weather"
)

// All output modes supported.
const (
	TextOut OutputMode = "text" // default
	CSVOut  OutputMode = "csv"
	JSONOut OutputMode = "json"
)

// All storage backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All run statuses recorded in the run store.
const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// All import error kinds.
const (
	SourceUnreachableKind ErrorKind = "source_unreachable"
	ReadErrorKind         ErrorKind = "read_error"
	PersistErrorKind      ErrorKind = "persist_error"
)

// AllFormats lists every telemetry format in a stable order.
var AllFormats = []TelemetryFormat{GasFormat, PollutionFormat, WeatherFormat}

// ValidFormats lists all valid telemetry formats.
var ValidFormats = map[TelemetryFormat]struct{}{
	GasFormat:       {},
	PollutionFormat: {},
	WeatherFormat:   {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	TextOut: {},
	CSVOut:  {},
	JSONOut: {},
}

// ValidDatabaseBackends lists all valid storage backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// formatSpecies maps each format to the AQICN specie codes it owns.
var formatSpecies = map[TelemetryFormat][]string{
	GasFormat:       {"co", "no2", "o3", "so2"},
	PollutionFormat: {"neph", "pm1", "pm10", "pm25"},
	WeatherFormat:   {"dew", "humidity", "precipitation", "pressure", "temperature", "uvi", "wd", "wind-gust", "wind-speed"},
}

// GetFormatSpecies returns the specie codes owned by the given format.
// The returned slice is a copy and may be modified by the caller.
func GetFormatSpecies(format TelemetryFormat) []string {
	species := formatSpecies[format]
	out := make([]string, len(species))
	copy(out, species)
	return out
}

// FormatForSpecie returns the format owning the specie, if any.
func FormatForSpecie(specie string) (TelemetryFormat, bool) {
	for _, format := range AllFormats {
		for _, s := range formatSpecies[format] {
			if s == specie {
				return format, true
			}
		}
	}
	return "", false
}
