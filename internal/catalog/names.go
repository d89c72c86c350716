package catalog

import (
	"regexp"
	"strings"

	gerrors "github.com/rohankatakam/grin/internal/errors"
)

// ReservedPrefix is used by backends for bookkeeping properties
const ReservedPrefix = "grin_"

var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// IsValidIdentifier validates that a name can be used as a type or property
// name. Names double as Cypher labels and keys, so only alphanumerics and
// underscores are allowed.
func IsValidIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}

func checkName(kind, name string) error {
	if !IsValidIdentifier(name) {
		return gerrors.ValidationErrorf("invalid %s name %q (must be alphanumeric + underscore)", kind, name)
	}
	if strings.HasPrefix(strings.ToLower(name), ReservedPrefix) {
		return gerrors.ValidationErrorf("%s name %q uses reserved prefix %q", kind, name, ReservedPrefix)
	}
	return nil
}
