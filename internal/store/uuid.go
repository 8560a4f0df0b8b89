package store

import (
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, eris.Wrapf(err, "store: bad id %q", s)
	}
	return id, nil
}

func newID() string { return uuid.New().String() }
