package echoapi_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/mradi/apps/api/echo"
	"github.com/trezcool/mradi/core/user"
	emailsvc "github.com/trezcool/mradi/services/email"
	"github.com/trezcool/mradi/testutil"
)

func TestAuthAPI_register(t *testing.T) {
	app := setup(t)

	newUser := func(email, role string) user.NewUser {
		return user.NewUser{
			Email:           email,
			Password:        testutil.DefaultPassword,
			PasswordConfirm: testutil.DefaultPassword,
			Role:            role,
			Name:            "Grace Chebet",
			RollNumber:      "CS-007",
			Semester:        3,
		}
	}

	t.Run("student", func(t *testing.T) {
		rec := app.serve(http.MethodPost, "/api/auth/register", "", marchallObj(t, newUser("grace@uni.ke", user.RoleStudent)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp echoapi.AuthResponse
		unmarchall(t, rec, &resp)
		assert.Equal(t, "grace@uni.ke", resp.User.Email)
		assert.Equal(t, app.faculty.ID, resp.User.FacultyID)
		assert.NotEmpty(t, resp.Token)

		rec = app.serve(http.MethodGet, "/api/auth/me", resp.Token)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	noUniversity := newUser("prof@uni.ke", user.RoleFaculty)
	noUniversity.Semester = 0

	app.run(t, []httpTest{
		{
			name: "email taken", method: http.MethodPost, path: "/api/auth/register",
			body:     marchallObj(t, newUser("KEVIN@uni.ke", user.RoleStudent)),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, fieldErr("email", "a user with this email already exists")),
		},
		{
			name: "admin", method: http.MethodPost, path: "/api/auth/register",
			body:     marchallObj(t, newUser("boss@uni.ke", user.RoleAdmin)),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, fieldErr("role", "invalid role")),
		},
		{
			name: "missing role fields", method: http.MethodPost, path: "/api/auth/register",
			body:     marchallObj(t, noUniversity),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid data", Fields: map[string]string{"university": "this field is required"}}),
		},
		{
			name: "unknown field", method: http.MethodPost, path: "/api/auth/register",
			body:     []byte(`{"email": "x@uni.ke", "isAdmin": true}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, fieldErr("isAdmin", "unknown field")),
		},
		{
			name: "malformed", method: http.MethodPost, path: "/api/auth/register",
			body:     []byte(`{"email": `),
			wantCode: http.StatusBadRequest,
		},
	})
}

func TestAuthAPI_login(t *testing.T) {
	app := setup(t)

	t.Run("success", func(t *testing.T) {
		body := marchallObj(t, echoapi.LoginRequest{Email: " Kevin@Uni.ke ", Password: testutil.DefaultPassword})
		rec := app.serve(http.MethodPost, "/api/auth/login", "", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp echoapi.AuthResponse
		unmarchall(t, rec, &resp)
		assert.Equal(t, app.student.ID, resp.User.ID)
		assert.NotNil(t, resp.User.LastLogin)
		assert.NotEmpty(t, resp.Token)
	})

	app.run(t, []httpTest{
		{
			name: "wrong password", method: http.MethodPost, path: "/api/auth/login",
			body:     marchallObj(t, echoapi.LoginRequest{Email: app.student.Email, Password: "nope"}),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid credentials"}),
		},
		{
			name: "unknown email", method: http.MethodPost, path: "/api/auth/login",
			body:     marchallObj(t, echoapi.LoginRequest{Email: "ghost@uni.ke", Password: testutil.DefaultPassword}),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid credentials"}),
		},
		{
			name: "missing email", method: http.MethodPost, path: "/api/auth/login",
			body:     []byte(`{"password": "x"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid data", Fields: map[string]string{"email": "this field is required"}}),
		},
	})

	t.Run("deactivated", func(t *testing.T) {
		usr := app.faculty
		usr.IsActive = false
		_, err := app.usrRepo.UpdateUser(context.Background(), usr)
		require.NoError(t, err)

		body := marchallObj(t, echoapi.LoginRequest{Email: usr.Email, Password: testutil.DefaultPassword})
		rec := app.serve(http.MethodPost, "/api/auth/login", "", body)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestAuthAPI_me(t *testing.T) {
	app := setup(t)
	token := getToken(t, app.conf, app.student)

	app.run(t, []httpTest{
		{name: "no token", path: "/api/auth/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "bad token", path: "/api/auth/me", token: "not.a.jwt",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{name: "me", path: "/api/auth/me", token: token, wantData: marchallObj(t, app.student)},
		{name: "logout", method: http.MethodPost, path: "/api/auth/logout", token: token, wantCode: http.StatusNoContent},
		{
			name: "revoked", path: "/api/auth/me", token: token,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "token has been revoked"}),
		},
		{
			name: "revoked on other endpoints", path: "/api/projects", token: token,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "token has been revoked"}),
		},
	})
}

func TestAuthAPI_refreshToken(t *testing.T) {
	app := setup(t)

	t.Run("success", func(t *testing.T) {
		rec := app.serve(http.MethodPost, "/api/auth/token-refresh", getToken(t, app.conf, app.student))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp echoapi.TokenResponse
		unmarchall(t, rec, &resp)
		rec = app.serve(http.MethodGet, "/api/auth/me", resp.Token)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("refresh expired", func(t *testing.T) {
		oriat := time.Now().Add(-app.conf.Server.JWTRefreshExpirationDelta - time.Hour).Unix()
		token, err := echoapi.GenerateToken(app.conf, echoapi.NewClaims(app.conf, app.student, oriat))
		require.NoError(t, err)

		rec := app.serve(http.MethodPost, "/api/auth/token-refresh", token)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		ok, err := jsonBytesEqual(rec.Body.Bytes(), marchallObj(t, httpErr{Error: "refresh has expired"}))
		require.NoError(t, err)
		assert.True(t, ok, rec.Body.String())
	})

	t.Run("deactivated", func(t *testing.T) {
		token := getToken(t, app.conf, app.faculty)
		usr := app.faculty
		usr.IsActive = false
		_, err := app.usrRepo.UpdateUser(context.Background(), usr)
		require.NoError(t, err)

		rec := app.serve(http.MethodPost, "/api/auth/token-refresh", token)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestAuthAPI_passwordReset(t *testing.T) {
	app := setup(t)
	success := echoapi.SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	}

	app.run(t, []httpTest{
		{
			name: "unknown email", method: http.MethodPost, path: "/api/auth/password-reset",
			body: marchallObj(t, echoapi.PasswordResetRequest{Email: "ghost@uni.ke"}), wantData: marchallObj(t, success),
		},
		{
			name: "known email", method: http.MethodPost, path: "/api/auth/password-reset",
			body: marchallObj(t, echoapi.PasswordResetRequest{Email: app.student.Email}), wantData: marchallObj(t, success),
		},
	})

	msg, ok := emailsvc.LastSentMessage()
	require.True(t, ok)
	require.Equal(t, app.student.Email, msg.To[0].Address)
	data, ok := msg.TemplateData.(map[string]interface{})
	require.True(t, ok)

	newPwd := "N3wPassw0rd!"
	reset := user.ResetUserPassword{
		UID:             data["UID"].(string),
		Token:           data["Token"].(string),
		Password:        newPwd,
		PasswordConfirm: newPwd,
	}
	badToken := reset
	badToken.Token = "1-abc"

	app.run(t, []httpTest{
		{
			name: "bad token", method: http.MethodPost, path: "/api/auth/password-reset-confirm",
			body: marchallObj(t, badToken), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid password reset link"}),
		},
		{
			name: "confirm", method: http.MethodPost, path: "/api/auth/password-reset-confirm",
			body:     marchallObj(t, reset),
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
		},
		{
			name: "login with new password", method: http.MethodPost, path: "/api/auth/login",
			body: marchallObj(t, echoapi.LoginRequest{Email: app.student.Email, Password: newPwd}),
		},
	})
}
