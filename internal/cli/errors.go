package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/apishape/internal/collection"
)

var ErrUsage = errors.New("cli usage error")

type usageError struct {
	msg string
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}

// collectionError maps a *collection.CollectionError into a usage error
// naming where the collection came from.
func collectionError(err error) error {
	var ce *collection.CollectionError
	if !errors.As(err, &ce) {
		return err
	}
	msg := ce.Message
	if !strings.HasPrefix(msg, "collection:") {
		msg = "collection: " + msg
	}
	if ce.Location != "" {
		msg = fmt.Sprintf("%s\nLocation: %s", msg, ce.Location)
	}
	switch ce.Code {
	case collection.NetworkError:
		msg += "\nHint: check the URL and your network connection."
	case collection.InputError:
		msg += "\nHint: set --collection or the collection key in the config file."
	}
	return newUsageError(msg)
}
