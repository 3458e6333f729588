package importer

import (
	"errors"
	"fmt"

	"github.com/qiotlabs/aqimport/schema"
)

// Sentinels matched by errors.Is against an *ImportError of the same kind.
var (
	ErrSourceUnreachable = errors.New("source unreachable")
	ErrRead              = errors.New("read error")
	ErrPersist           = errors.New("persist error")
)

// ImportError reports the phase in which importing one period failed.
type ImportError struct {
	Kind   schema.ErrorKind
	Period schema.Period
	Target string // redacted URL or period name
	Err    error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("%s %s: %v", phaseOf(e.Kind), e.Target, e.Err)
}

// Unwrap returns the original cause.
func (e *ImportError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *ImportError) Is(target error) bool {
	switch target {
	case ErrSourceUnreachable:
		return e.Kind == schema.SourceUnreachableKind
	case ErrRead:
		return e.Kind == schema.ReadErrorKind
	case ErrPersist:
		return e.Kind == schema.PersistErrorKind
	}
	return false
}

func phaseOf(kind schema.ErrorKind) string {
	switch kind {
	case schema.SourceUnreachableKind:
		return "connecting to"
	case schema.ReadErrorKind:
		return "reading"
	default:
		return "importing"
	}
}

// KindOf returns the kind of the first ImportError in err's chain, or an
// empty kind when there is none.
func KindOf(err error) schema.ErrorKind {
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}
