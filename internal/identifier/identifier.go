// Package identifier validates user-supplied schema object names before any of
// them reach dynamically built DDL or DML. Nothing in this package touches the
// database.
package identifier

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxLength is the PostgreSQL identifier byte limit (NAMEDATALEN - 1). Derived
// names longer than this are truncated by the caller, never rejected here.
const MaxLength = 63

var (
	ErrInvalidDiseaseCode = errors.New("invalid_disease_code")
	ErrInvalidTableName   = errors.New("invalid_table_name")
	ErrInvalidSchemaName  = errors.New("invalid_schema_name")
	ErrPrefixMismatch     = errors.New("table_prefix_mismatch")
)

var (
	diseaseCodeRe = regexp.MustCompile(`^[A-Z][0-9]{2}$`)
	tableNameRe   = regexp.MustCompile(`^[a-z][0-9]{2}_[a-z0-9_]*$`)
	schemaNameRe  = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

// DiseaseCode normalizes a disease code (trim, upper) and validates the
// one-letter-two-digit format, e.g. "A90".
func DiseaseCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if !diseaseCodeRe.MatchString(code) {
		return "", fmt.Errorf("%w: %q must match one letter followed by two digits", ErrInvalidDiseaseCode, raw)
	}
	return code, nil
}

// TableName normalizes a fact-table name (trim, lower) and validates it against
// the disease-table naming convention: starts with a letter and two digits plus
// an underscore, charset [a-z0-9_], no schema separator, at most MaxLength bytes.
func TableName(raw string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidTableName)
	}
	if strings.Contains(name, ".") {
		return "", fmt.Errorf("%w: %q must not reference another schema", ErrInvalidTableName, raw)
	}
	if len(name) > MaxLength {
		return "", fmt.Errorf("%w: %q exceeds %d bytes", ErrInvalidTableName, raw, MaxLength)
	}
	if !tableNameRe.MatchString(name) {
		return "", fmt.Errorf("%w: %q must start with a disease prefix (letter, two digits, underscore) and use only [a-z0-9_]", ErrInvalidTableName, raw)
	}
	return name, nil
}

// SchemaName normalizes and validates a schema name read back from a stored
// mapping before it is used to qualify a relation.
func SchemaName(raw string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" || len(name) > MaxLength || !schemaNameRe.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSchemaName, raw)
	}
	return name, nil
}

// TablePair validates a table name together with its disease code and enforces
// that the table's prefix matches the code, e.g. code "A90" owns "a90_*" tables.
// Returns the normalized (tableName, diseaseCode).
func TablePair(rawTable, rawCode string) (string, string, error) {
	name, err := TableName(rawTable)
	if err != nil {
		return "", "", err
	}
	code, err := DiseaseCode(rawCode)
	if err != nil {
		return "", "", err
	}
	want := strings.ToLower(code) + "_"
	if !strings.HasPrefix(name, want) {
		return "", "", fmt.Errorf("%w: table %q must begin with %q for disease %s", ErrPrefixMismatch, name, want, code)
	}
	return name, code, nil
}

// Truncate caps a derived object name at MaxLength bytes. Two distinct long
// names can truncate to the same identifier; the provisioner documents this as
// a known limitation rather than de-duplicating.
func Truncate(name string) string {
	if len(name) <= MaxLength {
		return name
	}
	return name[:MaxLength]
}
