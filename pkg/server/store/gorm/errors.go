package gorm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cmformation/formation-portal/pkg/server/store"
)

// translate maps GORM errors onto the store sentinels
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	case errors.Is(err, gorm.ErrCheckConstraintViolated), errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", store.ErrInvalid, err)
	}
	return err
}

// checkIDs reports ids that are not UUIDs as missing records.
// The id columns are uuid typed in PostgreSQL, which rejects other input with an error.
func checkIDs(ids ...string) error {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return store.ErrNotFound
		}
	}
	return nil
}

// likePattern builds a case-insensitive substring pattern for use against LOWER(column)
func likePattern(query string) string {
	return "%" + likeEscaper(query) + "%"
}

func likeEscaper(s string) string {
	return likeReplacer.Replace(strings.ToLower(s))
}

var likeReplacer = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
