package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsHexColor(t *testing.T) {
	for _, c := range []string{"#1A2B3C", "#abc", "#49B64E", "#FFF"} {
		assert.True(t, IsHexColor(c), c)
	}
	for _, c := range []string{"#12", "rednotahex", "1A2B3C", "#1A2B3G", "#1A2B3C4D", ""} {
		assert.False(t, IsHexColor(c), c)
	}
}

func TestCheckUsername(t *testing.T) {
	assert.NoError(t, CheckUsername("cook.master+1@home-made_"))
	assert.True(t, errors.Is(CheckUsername("me"), ErrReservedUsername))
	assert.True(t, errors.Is(CheckUsername("ME"), ErrReservedUsername))
	assert.True(t, errors.Is(CheckUsername("bad name!"), ErrUsernameChars))
}

func TestForbiddenUsernameChars(t *testing.T) {
	assert.Equal(t, " !#", ForbiddenUsernameChars("a#b c!#"))
	assert.Equal(t, "", ForbiddenUsernameChars("fine_name"))
}

type tagRow struct {
	Name  string `json:"name" validate:"required,max=50"`
	Color string `json:"color" validate:"required,tagcolor"`
}

type userRow struct {
	Username string `json:"username" validate:"required,max=150,username"`
}

func TestValidatorStruct(t *testing.T) {
	v := New()

	assert.Nil(t, v.Struct(tagRow{Name: "Lunch", Color: "#49B64E"}))

	fields := v.Struct(tagRow{Color: "red"})
	require.NotNil(t, fields)
	assert.Equal(t, []string{"This field is required."}, fields["name"])
	assert.Equal(t, []string{"Enter a valid hex color such as #49B64E."}, fields["color"])
}

func TestValidatorPartial(t *testing.T) {
	v := New()

	assert.Nil(t, v.Partial(&tagRow{Color: "#FFF"}, "Color"))

	fields := v.Partial(&tagRow{Color: "red"}, "Color")
	require.NotNil(t, fields)
	assert.NotContains(t, fields, "name")
	assert.Contains(t, fields, "color")
}

func TestValidatorUsernameMessages(t *testing.T) {
	v := New()

	fields := v.Struct(userRow{Username: "me"})
	assert.Equal(t, []string{"Username 'me' is reserved."}, fields["username"])

	fields = v.Struct(userRow{Username: "a#b"})
	assert.Equal(t, []string{"Username contains forbidden characters: #"}, fields["username"])
}

func TestRegisterBindingIsIdempotent(t *testing.T) {
	require.NoError(t, RegisterBinding())
	require.NoError(t, RegisterBinding())
}
