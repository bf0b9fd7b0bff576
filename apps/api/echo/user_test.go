package echoapi

import (
	"encoding/json"
	"net/http"
	"regexp"
	"testing"

	"github.com/trezcool/nidhamu/core/user"
	"github.com/trezcool/nidhamu/services/email"
)

func Test_userApi_login(t *testing.T) {
	env := setup(t)

	usr := env.createUser(t, "awe", "awe@test.cd", false)
	deactivated := env.createUser(t, "gone", "gone@test.cd", false)
	off := false
	if _, err := env.usrSvc.Update(ctx, deactivated.ID, user.UpdateUser{IsActive: &off}); err != nil {
		t.Fatalf("Update() failed, %v", err)
	}

	tests := []httpTest{
		{
			name:     "empty body",
			body:     []byte("{}"),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown user",
			body:     marchallObj(t, LoginRequest{Username: "nope", Password: "LePassword1"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "wrong password",
			body:     marchallObj(t, LoginRequest{Username: usr.Username, Password: "nope"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "deactivated account",
			body:     marchallObj(t, LoginRequest{Username: deactivated.Username, Password: "LePassword1"}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name:     "login with username",
			body:     marchallObj(t, LoginRequest{Username: usr.Username, Password: "LePassword1"}),
			wantCode: http.StatusOK,
		},
		{
			name:     "login with email",
			body:     marchallObj(t, LoginRequest{Username: usr.Email, Password: "LePassword1"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			env.app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != http.StatusOK {
					t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
				}
				var resp LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
					t.Errorf("no token in login response: %s", rec.Body.String())
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	// login bumps LastLogin
	refreshed, err := env.usrSvc.GetByID(ctx, usr.ID)
	if err != nil {
		t.Fatalf("GetByID() failed, %v", err)
	}
	if refreshed.LastLogin.IsZero() {
		t.Error("LastLogin not set after login")
	}
}

func Test_userApi_register(t *testing.T) {
	env := setup(t)

	admin := env.createUser(t, "admin", "admin@test.cd", true)
	monitor := env.createUser(t, "mon", "mon@test.cd", false)
	adminToken := getToken(t, admin)
	monitorToken := getToken(t, monitor)

	newUser := user.NewUser{
		Username: "recruit", FirstName: "New", LastName: "Recruit",
		Email: "recruit@test.cd", Role: user.RoleMonitor, Password: "LePassword1",
	}

	tests := []httpTest{
		{
			name:     "auth required",
			body:     marchallObj(t, newUser),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "admin required",
			token:    monitorToken,
			body:     marchallObj(t, newUser),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "invalid role rejected",
			token:    adminToken,
			body:     []byte(`{"username":"x","first_name":"X","last_name":"Y","email":"x@test.cd","role":"overlord","password":"pwd"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "created",
			token:    adminToken,
			body:     marchallObj(t, newUser),
			wantCode: http.StatusCreated,
		},
		{
			name:     "duplicate username",
			token:    adminToken,
			body:     marchallObj(t, newUser),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "a user with this username already exists"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_detail(t *testing.T) {
	env := setup(t)

	admin := env.createUser(t, "admin", "admin@test.cd", true)
	usr := env.createUser(t, "awe", "awe@test.cd", false)
	other := env.createUser(t, "other", "other@test.cd", false)
	adminToken := getToken(t, admin)
	usrToken := getToken(t, usr)

	tests := []httpTest{
		{
			name:     "retrieve self",
			method:   http.MethodGet,
			path:     "/v1/users/" + usr.ID,
			token:    usrToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, usr),
		},
		{
			name:     "retrieve other is hidden",
			method:   http.MethodGet,
			path:     "/v1/users/" + other.ID,
			token:    usrToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name:     "admin retrieves anyone",
			method:   http.MethodGet,
			path:     "/v1/users/" + other.ID,
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, other),
		},
		{
			name:     "self update allowed fields",
			method:   http.MethodPut,
			path:     "/v1/users/" + usr.ID,
			token:    usrToken,
			body:     []byte(`{"first_name":"Changed"}`),
			wantCode: http.StatusOK,
		},
		{
			name:     "self role change forbidden",
			method:   http.MethodPut,
			path:     "/v1/users/" + usr.ID,
			token:    usrToken,
			body:     []byte(`{"role":"admin"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "non-admin delete forbidden",
			method:   http.MethodDelete,
			path:     "/v1/users/" + usr.ID,
			token:    usrToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "admin cannot delete self",
			method:   http.MethodDelete,
			path:     "/v1/users/" + admin.ID,
			token:    adminToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "admin deletes other",
			method:   http.MethodDelete,
			path:     "/v1/users/" + other.ID,
			token:    adminToken,
			wantCode: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			if tt.wantCode == http.StatusNoContent {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_assignments(t *testing.T) {
	env := setup(t)

	admin := env.createUser(t, "admin", "admin@test.cd", true)
	monA := env.createUser(t, "mona", "mona@test.cd", false)
	monB := env.createUser(t, "monb", "monb@test.cd", false)
	adminToken := getToken(t, admin)
	monitorToken := getToken(t, monA)

	body := marchallObj(t, user.AssignmentList{Assignments: []user.AssignmentPair{
		{ClassID: "c1", UserID: monA.ID},
		{ClassID: "c2", UserID: monB.ID},
	}})

	tests := []httpTest{
		{
			name:     "admin required",
			token:    monitorToken,
			body:     body,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "empty list rejected",
			token:    adminToken,
			body:     []byte(`{"assignments":[]}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "replaced",
			token:    adminToken,
			body:     body,
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, "/v1/users/assignments", tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	refreshed, err := env.usrSvc.GetByID(ctx, monA.ID)
	if err != nil {
		t.Fatalf("GetByID() failed, %v", err)
	}
	if len(refreshed.FollowingClasses) != 1 || refreshed.FollowingClasses[0] != "c1" {
		t.Errorf("monitor A follows %v, want [c1]", refreshed.FollowingClasses)
	}
}

func Test_userApi_queryRoles(t *testing.T) {
	env := setup(t)

	admin := env.createUser(t, "admin", "admin@test.cd", true)

	req, rec := newAuthRequest(http.MethodGet, "/v1/users/roles", getToken(t, admin))
	env.app.ServeHTTP(rec, req)
	tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, user.AllRoles)}
	checkCodeAndData(t, tt, rec)
}

var resetURLRegex = regexp.MustCompile(`/password-reset\?uid=([^&\s]+)&token=([^&\s]+)`)

func Test_userApi_passwordReset(t *testing.T) {
	env := setup(t)

	usr := env.createUser(t, "awe", "awe@test.cd", false)

	emailsvc.SentMessages = emailsvc.SentMessages[:0]
	req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", marchallObj(t, PasswordResetRequest{Email: usr.Email}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("password-reset code = %v; body = %s", rec.Code, rec.Body.String())
	}
	// unknown emails get the same response
	req, rec = newRequest(http.MethodPost, "/v1/users/password-reset", marchallObj(t, PasswordResetRequest{Email: "ghost@test.cd"}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("password-reset (unknown) code = %v; body = %s", rec.Code, rec.Body.String())
	}

	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("sent %d emails, want 1", len(emailsvc.SentMessages))
	}
	match := resetURLRegex.FindStringSubmatch(emailsvc.SentMessages[0].BodyStr)
	if match == nil {
		t.Fatalf("no reset link in email body:\n%s", emailsvc.SentMessages[0].BodyStr)
	}
	uid, token := match[1], match[2]

	confirm := marchallObj(t, PasswordResetConfirm{UID: uid, Token: token, Password: "NewPassword1"})
	req, rec = newRequest(http.MethodPost, "/v1/users/password-reset-confirm", confirm)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("password-reset-confirm code = %v; body = %s", rec.Code, rec.Body.String())
	}

	refreshed, err := env.usrSvc.GetByID(ctx, usr.ID)
	if err != nil {
		t.Fatalf("GetByID() failed, %v", err)
	}
	if refreshed.CheckPassword("NewPassword1") != nil {
		t.Error("new password does not match stored hash")
	}
}

func Test_userApi_tokenRefresh(t *testing.T) {
	env := setup(t)

	usr := env.createUser(t, "awe", "awe@test.cd", false)
	token := getToken(t, usr)

	req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", token)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("token-refresh code = %v; body = %s", rec.Code, rec.Body.String())
	}
	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Errorf("no token in refresh response: %s", rec.Body.String())
	}

	req, rec = newRequest(http.MethodPost, "/v1/users/token-refresh")
	env.app.ServeHTTP(rec, req)
	tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
	checkCodeAndData(t, tt, rec)
}
