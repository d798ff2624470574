// AngelaMos | 2026
// core_test.go

package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastParams = Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32}

func TestPasswordHasherRoundTrip(t *testing.T) {
	h := NewPasswordHasher(fastParams)

	hash, err := h.Hash("correct-horse")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	ok, err := h.Verify("correct-horse", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := h.Hash("correct-horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other)
}

func TestVerifyTimingSafe(t *testing.T) {
	h := NewPasswordHasher(fastParams)

	valid, newHash, err := h.VerifyTimingSafe("anything", "")
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Empty(t, newHash)

	old := NewPasswordHasher(Argon2Params{Time: 2, Memory: 1024, Threads: 1, KeyLen: 32})
	oldHash, err := old.Hash("correct-horse")
	require.NoError(t, err)
	assert.True(t, h.NeedsRehash(oldHash))

	valid, newHash, err = h.VerifyTimingSafe("correct-horse", oldHash)
	require.NoError(t, err)
	assert.True(t, valid)
	require.NotEmpty(t, newHash)
	assert.False(t, h.NeedsRehash(newHash))

	valid, newHash, err = h.VerifyTimingSafe("wrong", oldHash)
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Empty(t, newHash)
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	h := NewPasswordHasher(fastParams)

	for _, bad := range []string{"plain", "$bcrypt$v=19$m=1,t=1,p=1$aa$bb", "$argon2id$v=1$m=1,t=1,p=1$aa$bb"} {
		_, err := h.Verify("x", bad)
		assert.Error(t, err, bad)
		assert.True(t, h.NeedsRehash(bad), bad)
	}
}

func TestJSONErrorMapsAppErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, fmt.Errorf("wrapped: %w", AccountLockedError()))

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ACCOUNT_LOCKED", resp.Error.Code)

	rec = httptest.NewRecorder()
	JSONError(rec, errors.New("db exploded"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db exploded")
}

func TestTooManyRequestsIsNotForbidden(t *testing.T) {
	err := TooManyRequestsError("slow down")
	assert.Equal(t, http.StatusTooManyRequests, err.StatusCode)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.False(t, errors.Is(err, ErrForbidden))
}

func TestPaginatedMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	Paginated(rec, []int{1, 2}, 2, 10, 25)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.Equal(t, 25, resp.Meta.Total)
}

func TestFormatValidationError(t *testing.T) {
	type req struct {
		Email string `json:"email" validate:"required,email"`
	}

	err := validator.New().Struct(req{Email: "nope"})
	require.Error(t, err)
	assert.NotEqual(t, "invalid request", FormatValidationError(err))
	assert.Equal(t, "invalid request", FormatValidationError(errors.New("other")))
}
