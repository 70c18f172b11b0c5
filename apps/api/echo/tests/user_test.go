package tests

import (
	"context"
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/elimu/apps/api/echo"
	"github.com/trezcool/elimu/core/user"
	emailsvc "github.com/trezcool/elimu/services/email"
	"github.com/trezcool/elimu/tests"
)

const testPwd = "Pwd@12345x"

func TestUserAPI_login(t *testing.T) {
	db.Reset()
	_ = testutil.CreateUser(t, usrRepo, "John Doe", "jdoe", "jdoe@mail.com", testPwd, []string{user.RoleStudent}, true)
	_ = testutil.CreateUser(t, usrRepo, "Jane Doe", "jane", "jane@mail.com", testPwd, []string{user.RoleStudent}, false)

	authFailed := marchallObj(t, httpErr{Error: "authentication failed"})
	tests := []httpTest{
		{
			name:     "empty credentials",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username": "this field is required", "password": "this field is required"}`),
		},
		{
			name:     "unknown user",
			body:     []byte(`{"username": "nobody", "password": "` + testPwd + `"}`),
			wantCode: http.StatusBadRequest,
			wantData: authFailed,
		},
		{
			name:     "wrong password",
			body:     []byte(`{"username": "jdoe", "password": "wrong"}`),
			wantCode: http.StatusBadRequest,
			wantData: authFailed,
		},
		{
			name:     "deactivated account",
			body:     []byte(`{"username": "jane", "password": "` + testPwd + `"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	for _, uname := range []string{"jdoe", "JDOE", "jdoe@mail.com"} {
		t.Run("login with "+uname, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", []byte(`{"username": "`+uname+`", "password": "`+testPwd+`"}`))
			app.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), `"token":`)
		})
	}
}

func TestUserAPI_me(t *testing.T) {
	db.Reset()
	usr := testutil.CreateUser(t, usrRepo, "John Doe", "jdoe", "jdoe@mail.com", testPwd, []string{user.RoleStudent}, true)

	tests := []httpTest{
		{name: "unauthed", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "authed", token: getToken(t, conf, usr), wantCode: http.StatusOK, wantData: marchallObj(t, usr)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestUserAPI_tokenRefresh(t *testing.T) {
	db.Reset()
	usr := testutil.CreateUser(t, usrRepo, "John Doe", "jdoe", "jdoe@mail.com", testPwd, []string{user.RoleStudent}, true)
	inactive := testutil.CreateUser(t, usrRepo, "Jane Doe", "jane", "jane@mail.com", testPwd, []string{user.RoleStudent}, false)

	req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", getToken(t, conf, usr))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token":`)

	req, rec = newAuthRequest(http.MethodPost, "/v1/users/token-refresh", getToken(t, conf, inactive))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusForbidden,
		wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
	}, rec)

	// expired refresh
	claims := echoapi.GetUserClaims(conf, usr, 1)
	token, err := echoapi.GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}
	req, rec = newAuthRequest(http.MethodPost, "/v1/users/token-refresh", token)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusForbidden,
		wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
	}, rec)
}

func TestUserAPI_register(t *testing.T) {
	db.Reset()
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@mail.com", testPwd, []string{user.RoleAdmin}, true)
	student := testutil.CreateUser(t, usrRepo, "John Doe", "jdoe", "jdoe@mail.com", testPwd, []string{user.RoleStudent}, true)
	adminToken := getToken(t, conf, admin)

	tests := []httpTest{
		{
			name:     "unauthed",
			body:     []byte(`{}`),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "student",
			body:     []byte(`{}`),
			token:    getToken(t, conf, student),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "username taken",
			body:     []byte(`{"name": "Other", "username": "JDOE", "password": "` + testPwd + `", "password_confirm": "` + testPwd + `"}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username": "a user with this username already exists"}`),
		},
		{
			name:     "email taken",
			body:     []byte(`{"name": "Other", "email": "jdoe@mail.com", "password": "` + testPwd + `", "password_confirm": "` + testPwd + `"}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email": "a user with this email already exists"}`),
		},
		{
			name:     "role above own",
			body:     []byte(`{"name": "Boss", "username": "boss", "password": "` + testPwd + `", "password_confirm": "` + testPwd + `", "roles": ["admin:owner"]}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"roles": "not enough rights to set these roles"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("created", func(t *testing.T) {
		body := []byte(`{"name": " Mary Jane ", "username": "MJane", "email": "mj@mail.com", "password": "` + testPwd + `", "password_confirm": "` + testPwd + `", "roles": ["student:"]}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)

		usr, err := usrRepo.GetUser(req.Context(), user.GetFilter{UsernameOrEmail: "mjane"})
		if assert.NoError(t, err) {
			assert.Equal(t, "Mary Jane", usr.Name)
			assert.Equal(t, "mj@mail.com", usr.Email)
			assert.Equal(t, []string{user.RoleStudent}, usr.Roles)
			assert.NoError(t, usr.CheckPassword(testPwd))
		}
	})
}

func TestUserAPI_query(t *testing.T) {
	db.Reset()
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@mail.com", testPwd, []string{user.RoleAdmin}, true)
	john := testutil.CreateUser(t, usrRepo, "John Doe", "jdoe", "jdoe@mail.com", testPwd, []string{user.RoleStudent}, true)
	jane := testutil.CreateUser(t, usrRepo, "Jane Doe", "jane", "jane@mail.com", testPwd, []string{user.RoleStudent}, false)
	adminToken := getToken(t, conf, admin)

	tests := []httpTest{
		{name: "unauthed", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "student", token: getToken(t, conf, john), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "all", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, admin, john, jane)},
		{name: "search", path: "?search=DOE", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, john, jane)},
		{name: "role", path: "?role=admin", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, admin)},
		{name: "inactive", path: "?is_active=false", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, jane)},
		{name: "no match", path: "?search=nobody", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users"+tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("ordering", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallList(t, john, jane, admin)}
		req, rec := newAuthRequest(http.MethodGet, "/v1/users?ordering=-name", adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndOrderedData(t, tt, rec)
	})
}

func TestUserAPI_queryRoles(t *testing.T) {
	db.Reset()
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@mail.com", testPwd, []string{user.RoleAdmin}, true)

	tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)}
	req, rec := newAuthRequest(http.MethodGet, "/v1/users/roles", getToken(t, conf, admin))
	app.ServeHTTP(rec, req)
	checkCodeAndOrderedData(t, tt, rec)
}

func TestUserAPI_retrieve(t *testing.T) {
	db.Reset()
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@mail.com", testPwd, []string{user.RoleAdmin}, true)
	john := testutil.CreateUser(t, usrRepo, "John Doe", "jdoe", "jdoe@mail.com", testPwd, []string{user.RoleStudent}, true)
	jane := testutil.CreateUser(t, usrRepo, "Jane Doe", "jane", "jane@mail.com", testPwd, []string{user.RoleStudent}, true)
	notFound := marchallObj(t, httpErr{Error: "not found"})

	tests := []httpTest{
		{name: "unauthed", path: john.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "self", path: john.ID, token: getToken(t, conf, john), wantCode: http.StatusOK, wantData: marchallObj(t, john)},
		{name: "other student", path: jane.ID, token: getToken(t, conf, john), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "admin", path: jane.ID, token: getToken(t, conf, admin), wantCode: http.StatusOK, wantData: marchallObj(t, jane)},
		{name: "unknown", path: "unknown", token: getToken(t, conf, admin), wantCode: http.StatusNotFound, wantData: notFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestUserAPI_update(t *testing.T) {
	db.Reset()
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@mail.com", testPwd, []string{user.RoleAdmin}, true)
	john := testutil.CreateUser(t, usrRepo, "John Doe", "jdoe", "jdoe@mail.com", testPwd, []string{user.RoleStudent}, true)
	johnToken := getToken(t, conf, john)

	tests := []httpTest{
		{
			name:     "student sets roles",
			path:     john.ID,
			body:     []byte(`{"roles": ["admin:"]}`),
			token:    johnToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "student sets username",
			path:     john.ID,
			body:     []byte(`{"username": "johnny"}`),
			token:    johnToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "admin sets a taken username",
			path:     john.ID,
			body:     []byte(`{"username": "admin"}`),
			token:    getToken(t, conf, admin),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username": "a user with this username already exists"}`),
		},
		{
			name:     "admin sets invalid roles",
			path:     john.ID,
			body:     []byte(`{"roles": ["teacher:"]}`),
			token:    getToken(t, conf, admin),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"roles": "invalid roles"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("student renames themselves", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+john.ID, johnToken, []byte(`{"name": " Johnny Doe "}`))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		usr, err := usrRepo.GetUser(req.Context(), user.GetFilter{ID: john.ID})
		if assert.NoError(t, err) {
			assert.Equal(t, "Johnny Doe", usr.Name)
			assert.Equal(t, "jdoe", usr.Username)
		}
	})

	t.Run("admin deactivates", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+john.ID, getToken(t, conf, admin), []byte(`{"is_active": false}`))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		usr, err := usrRepo.GetUser(req.Context(), user.GetFilter{ID: john.ID})
		if assert.NoError(t, err) && assert.NotNil(t, usr.IsActive) {
			assert.False(t, *usr.IsActive)
		}
	})
}

func TestUserAPI_destroy(t *testing.T) {
	db.Reset()
	owner := testutil.CreateUser(t, usrRepo, "Owner", "owner", "owner@mail.com", testPwd, []string{user.RoleAdminOwner}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@mail.com", testPwd, []string{user.RoleAdmin}, true)
	john := testutil.CreateUser(t, usrRepo, "John Doe", "jdoe", "jdoe@mail.com", testPwd, []string{user.RoleStudent}, true)
	adminToken := getToken(t, conf, admin)

	tests := []httpTest{
		{name: "student", path: john.ID, token: getToken(t, conf, john), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "self", path: admin.ID, token: adminToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "higher role", path: owner.ID, token: adminToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("deleted", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+john.ID, adminToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		_, err := usrRepo.GetUser(req.Context(), user.GetFilter{ID: john.ID})
		assert.Equal(t, user.ErrNotFound, err)
	})
}

func TestUserAPI_destroyMultiple(t *testing.T) {
	db.Reset()
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@mail.com", testPwd, []string{user.RoleAdmin}, true)
	john := testutil.CreateUser(t, usrRepo, "John Doe", "jdoe", "jdoe@mail.com", testPwd, []string{user.RoleStudent}, true)
	jane := testutil.CreateUser(t, usrRepo, "Jane Doe", "jane", "jane@mail.com", testPwd, []string{user.RoleStudent}, true)
	adminToken := getToken(t, conf, admin)

	req, rec := newAuthRequest(http.MethodDelete, "/v1/users?id="+john.ID+"&id="+admin.ID, adminToken)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/users?id="+john.ID+"&id="+jane.ID, adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	users, err := usrRepo.QueryUsers(req.Context(), nil, nil)
	if assert.NoError(t, err) {
		assert.Equal(t, []user.User{admin}, users)
	}
}

var resetLinkRegex = regexp.MustCompile(`/password-reset/([A-Za-z0-9_-]+)/([A-Za-z0-9_-]+)`)

func TestUserAPI_passwordReset(t *testing.T) {
	db.Reset()
	emailsvc.ResetSentMessages()
	usr := testutil.CreateUser(t, usrRepo, "John Doe", "jdoe", "jdoe@mail.com", testPwd, []string{user.RoleStudent}, true)
	_ = testutil.CreateUser(t, usrRepo, "Jane Doe", "jane", "jane@mail.com", testPwd, []string{user.RoleStudent}, false)

	sent := []byte(`{"message": "if the email matches an active account, a password reset link was sent to it"}`)
	requests := []httpTest{
		{name: "no email", body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"email": "this field is required"}`)},
		{name: "invalid email", body: []byte(`{"email": "jdoe"}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"email": "email must be a valid email address"}`)},
		{name: "unknown email", body: []byte(`{"email": "nobody@mail.com"}`), wantCode: http.StatusOK, wantData: sent},
		{name: "deactivated account", body: []byte(`{"email": "jane@mail.com"}`), wantCode: http.StatusOK, wantData: sent},
		{name: "sent", body: []byte(`{"email": " JDOE@mail.com "}`), wantCode: http.StatusOK, wantData: sent},
	}
	for _, tt := range requests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	msgs := emailsvc.GetSentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, usr.Email, msgs[0].To[0].Address)
	link := resetLinkRegex.FindStringSubmatch(msgs[0].TextContent)
	require.Len(t, link, 3)
	uid, token := link[1], link[2]
	assert.Equal(t, user.EncodeUID(usr), uid)

	newPwd := "N3w#Secret"
	invalidLink := []byte(`{"token": "invalid or expired password reset link"}`)
	confirms := []httpTest{
		{
			name:     "empty",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"uid": "this field is required", "token": "this field is required", "password": "this field is required", "password_confirm": "this field is required"}`),
		},
		{
			name:     "invalid uid",
			body:     []byte(`{"uid": "lol", "token": "` + token + `", "password": "` + newPwd + `", "password_confirm": "` + newPwd + `"}`),
			wantCode: http.StatusBadRequest,
			wantData: invalidLink,
		},
		{
			name:     "invalid token",
			body:     []byte(`{"uid": "` + uid + `", "token": "HE4TS-sig", "password": "` + newPwd + `", "password_confirm": "` + newPwd + `"}`),
			wantCode: http.StatusBadRequest,
			wantData: invalidLink,
		},
		{
			name:     "weak password",
			body:     []byte(`{"uid": "` + uid + `", "token": "` + token + `", "password": "12345678", "password_confirm": "12345678"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"password": "password cannot be entirely numeric"}`),
		},
		{
			name:     "reset",
			body:     []byte(`{"uid": "` + uid + `", "token": "` + token + `", "password": "` + newPwd + `", "password_confirm": "` + newPwd + `"}`),
			wantCode: http.StatusNoContent,
		},
		{
			name:     "link used",
			body:     []byte(`{"uid": "` + uid + `", "token": "` + token + `", "password": "An0ther!One", "password_confirm": "An0ther!One"}`),
			wantCode: http.StatusBadRequest,
			wantData: invalidLink,
		},
	}
	for _, tt := range confirms {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/password-reset/confirm", tt.body)
			app.ServeHTTP(rec, req)
			if tt.wantData == nil {
				assert.Equal(t, tt.wantCode, rec.Code)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	got, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword(newPwd))
}
