package user_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/tests"
)

func TestNewUser_Validate(t *testing.T) {
	env := testutil.NewEnv()

	valid := func() user.NewUser {
		return user.NewUser{
			Name:            "Wayan Sudarma",
			Username:        "wayan",
			Email:           "wayan@test.id",
			Password:        "Tr1cky.Kite",
			PasswordConfirm: "Tr1cky.Kite",
			Roles:           []string{user.RoleTeacher},
		}
	}

	tests := []struct {
		name    string
		modify  func(nu *user.NewUser)
		wantTag string
	}{
		{name: "valid", modify: func(nu *user.NewUser) {}},
		{name: "no username nor email", modify: func(nu *user.NewUser) { nu.Username, nu.Email = "", "" }, wantTag: "username_or_email"},
		{name: "unknown role", modify: func(nu *user.NewUser) { nu.Roles = []string{"teacher:", "lol"} }, wantTag: "allroles"},
		{name: "too short", modify: func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "Ab1.", "Ab1." }, wantTag: "pwdminlen"},
		{name: "whitespace", modify: func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "Tr1cky Kite", "Tr1cky Kite" }, wantTag: "pwdnospace"},
		{name: "numeric", modify: func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "1234567890", "1234567890" }, wantTag: "pwdnotallnum"},
		{name: "too simple", modify: func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "trickykite", "trickykite" }, wantTag: "pwdcplx"},
		{name: "like the username", modify: func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "Wayan.123", "Wayan.123" }, wantTag: "pwdtoosim"},
		{name: "common", modify: func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "P@ssw0rd", "P@ssw0rd" }, wantTag: "pwdnocommon"},
		{name: "confirmation mismatch", modify: func(nu *user.NewUser) { nu.PasswordConfirm = "Tr1cky.Kit3" }, wantTag: "eqfield"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := valid()
			tt.modify(&nu)
			err := nu.Validate(env.Validate)
			if tt.wantTag == "" {
				require.NoError(t, err)
				return
			}
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			tags := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				tags = append(tags, fe.Tag())
			}
			assert.Contains(t, tags, tt.wantTag)
		})
	}
}

func TestNewUser_Validate_cleans(t *testing.T) {
	env := testutil.NewEnv()
	nu := user.NewUser{
		Name:            "  Made ",
		Username:        " MADE_1 ",
		Email:           " Made@Test.ID ",
		Password:        "Tr1cky.Kite",
		PasswordConfirm: "Tr1cky.Kite",
	}
	require.NoError(t, nu.Validate(env.Validate))
	assert.Equal(t, "Made", nu.Name)
	assert.Equal(t, "made_1", nu.Username)
	assert.Equal(t, "made@test.id", nu.Email)
}

func TestMaxRolePriority(t *testing.T) {
	assert.Greater(t, user.MaxRolePriority([]string{user.RoleAdminOwner}), user.MaxRolePriority([]string{user.RoleAdmin}))
	assert.Greater(t, user.MaxRolePriority([]string{user.RoleTeacher, user.RoleAdmin}), user.MaxRolePriority([]string{user.RoleTeacher}))
	assert.Zero(t, user.MaxRolePriority(nil))
}
