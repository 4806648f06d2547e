package mongo

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/diggingyuhak/community-api/internal/core/domain"
)

func dupErr(index, value string) error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Code:    duplicateKeyCode,
		Message: `E11000 duplicate key error collection: community.users index: ` + index + ` dup key: { ` + value + ` }`,
	}}}
}

func TestDuplicateField_UsesIndexName(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"email", dupErr(emailIndex, `email: "a@example.com"`), domain.ErrEmailTaken},
		{"username", dupErr(usernameIndex, `username: "alice"`), domain.ErrUsernameTaken},
		{"email value mentions username", dupErr(emailIndex, `email: "username@example.com"`), domain.ErrEmailTaken},
		{"email value mentions index name", dupErr(emailIndex, `email: "uniq_username@example.com"`), domain.ErrEmailTaken},
		{"username value mentions email", dupErr(usernameIndex, `username: "uniq_email"`), domain.ErrUsernameTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, duplicateField(tt.err), tt.want)
		})
	}
}

func TestDuplicateField_UnknownIndexIsConflict(t *testing.T) {
	err := duplicateField(dupErr("other_index", `x: 1`))
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.False(t, errors.Is(err, domain.ErrEmailTaken))
	assert.False(t, errors.Is(err, domain.ErrUsernameTaken))

	assert.ErrorIs(t, duplicateField(errors.New("E11000 something")), domain.ErrConflict)
}

func TestPageSkip(t *testing.T) {
	assert.Equal(t, int64(0), pageSkip(1, 20))
	assert.Equal(t, int64(0), pageSkip(0, 20))
	assert.Equal(t, int64(40), pageSkip(3, 20))
	assert.Equal(t, int64(math.MaxInt64), pageSkip(math.MaxInt, 100))
	assert.GreaterOrEqual(t, pageSkip(math.MaxInt/50, 100), int64(0))
}
