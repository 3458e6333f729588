package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/qiotlabs/aqimport/schema"
)

// Status label constants.
const (
	OKValue     = "OK"
	FailedValue = "Failed"
	EmptyValue  = "Empty"
)

// Color variables for console output.
var (
	OKColor     = color.New(color.FgGreen, color.Bold)
	FailedColor = color.New(color.FgRed, color.Bold)
	EmptyColor  = color.New(color.FgYellow)
)

// GetPlainLabel returns a plain text label for an import result. This is the
// core logic used for CSV, JSON, and table printing.
func GetPlainLabel(result schema.ImportResult) string {
	if result.Items == 0 {
		return EmptyValue
	}
	return OKValue
}

// GetColorLabel returns a colored label for console output (table).
func GetColorLabel(label string) string {
	switch label {
	case OKValue:
		return OKColor.Sprint(label)
	case FailedValue:
		return FailedColor.Sprint(label)
	default:
		return EmptyColor.Sprint(label)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on
// the provided file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetDBFilePath returns the path to the SQLite DB file for telemetry storage.
func GetDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".aqimport.db"
	}
	return filepath.Join(homeDir, ".aqimport.db")
}

// RedactToken replaces every occurrence of token in s so that URLs can be logged.
func RedactToken(s, token string) string {
	if token == "" {
		return s
	}
	return strings.ReplaceAll(s, token, "***")
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
