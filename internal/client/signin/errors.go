package signin

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fediauth/internal/client/client"
	"github.com/dmitrijs2005/fediauth/internal/common"
)

// classify maps a stage failure onto the sign-in error kinds, keeping the
// cause reachable through errors.Is.
func classify(stage Stage, err error) error {
	var kind error
	switch {
	case stage == StagePersisting, errors.Is(err, common.ErrPersistence):
		kind = common.ErrPersistence
	case errors.Is(err, client.ErrUnauthorized), errors.Is(err, common.ErrBadCredentials):
		kind = common.ErrBadCredentials
	default:
		kind = common.ErrTransport
	}

	if errors.Is(err, kind) {
		return fmt.Errorf("%s: %w", stage, err)
	}
	return fmt.Errorf("%s: %w: %w", stage, kind, err)
}
