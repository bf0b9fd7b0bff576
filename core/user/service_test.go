package user_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/trezcool/nidhamu/core"
	"github.com/trezcool/nidhamu/core/user"
	"github.com/trezcool/nidhamu/services/email"
	"github.com/trezcool/nidhamu/storage/database/inmem"
)

var ctx = context.Background()

func setup(t *testing.T) (*user.Service, user.Repository) {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed, %v", err)
	}
	conf := core.NewConfig()
	conf.TestMode = true
	repo := inmemdb.NewUserRepository(db)
	svc := user.NewServiceMock(repo, emailsvc.NewConsoleServiceMock(conf), conf)
	return svc, repo
}

func createUser(t *testing.T, svc *user.Service, uname, email string, isAdmin bool) user.User {
	t.Helper()

	role := user.RoleMonitor
	if isAdmin {
		role = user.RoleAdmin
	}
	usr, err := svc.Create(ctx, user.NewUser{
		Username:  uname,
		FirstName: "User",
		LastName:  uname,
		Email:     email,
		Role:      role,
		Password:  "LePassword1",
	})
	if err != nil {
		t.Fatalf("createUser(%s) failed, %v", uname, err)
	}
	return usr
}

func Test_Service_Create(t *testing.T) {
	svc, _ := setup(t)

	usr := createUser(t, svc, "awe", "awe@test.cd", false)
	if !usr.IsActive {
		t.Error("new user should be active")
	}
	if usr.CheckPassword("LePassword1") != nil {
		t.Error("stored password hash does not match")
	}

	if _, err := svc.Create(ctx, user.NewUser{
		Username: "awe", FirstName: "X", LastName: "Y", Email: "other@test.cd",
		Role: user.RoleMonitor, Password: "pwd",
	}); err != user.ErrUsernameExists {
		t.Errorf("duplicate username error = %v, want %v", err, user.ErrUsernameExists)
	}
	if _, err := svc.Create(ctx, user.NewUser{
		Username: "other", FirstName: "X", LastName: "Y", Email: "awe@test.cd",
		Role: user.RoleMonitor, Password: "pwd",
	}); err != user.ErrEmailExists {
		t.Errorf("duplicate email error = %v, want %v", err, user.ErrEmailExists)
	}
}

func Test_Service_Update(t *testing.T) {
	svc, _ := setup(t)

	usr := createUser(t, svc, "awe", "awe@test.cd", false)
	createUser(t, svc, "king", "king@test.cd", false)

	if _, err := svc.Update(ctx, usr.ID, user.UpdateUser{Username: "king"}); err != user.ErrUsernameExists {
		t.Errorf("Update() error = %v, want %v", err, user.ErrUsernameExists)
	}
	if _, err := svc.Update(ctx, usr.ID, user.UpdateUser{Email: "king@test.cd"}); err != user.ErrEmailExists {
		t.Errorf("Update() error = %v, want %v", err, user.ErrEmailExists)
	}
	// keeping one's own username is not a conflict
	if _, err := svc.Update(ctx, usr.ID, user.UpdateUser{Username: "awe", FirstName: "Awe"}); err != nil {
		t.Errorf("Update() failed, %v", err)
	}

	inactive := false
	updated, err := svc.Update(ctx, usr.ID, user.UpdateUser{Role: user.RoleAdmin, IsActive: &inactive})
	if err != nil {
		t.Fatalf("Update() failed, %v", err)
	}
	if !updated.IsAdmin() {
		t.Errorf("role = %q, want %q", updated.Role, user.RoleAdmin)
	}
	if updated.IsActive {
		t.Error("user should be deactivated")
	}

	if _, err = svc.Update(ctx, "nope", user.UpdateUser{FirstName: "X"}); err != user.ErrNotFound {
		t.Errorf("Update() error = %v, want %v", err, user.ErrNotFound)
	}
}

func Test_Service_Delete(t *testing.T) {
	svc, _ := setup(t)

	usr := createUser(t, svc, "awe", "awe@test.cd", false)
	if err := svc.Delete(ctx, usr.ID); err != nil {
		t.Fatalf("Delete() failed, %v", err)
	}
	if _, err := svc.GetByID(ctx, usr.ID); err != user.ErrNotFound {
		t.Errorf("GetByID() error = %v, want %v", err, user.ErrNotFound)
	}
	if err := svc.Delete(ctx, usr.ID); err != user.ErrNotFound {
		t.Errorf("Delete() error = %v, want %v", err, user.ErrNotFound)
	}
}

func Test_Service_ReplaceAssignments(t *testing.T) {
	svc, _ := setup(t)

	monA := createUser(t, svc, "mona", "mona@test.cd", false)
	monB := createUser(t, svc, "monb", "monb@test.cd", false)

	following := func(id string) []string {
		t.Helper()
		usr, err := svc.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID() failed, %v", err)
		}
		return usr.FollowingClasses
	}

	// initial assignment: A follows c1 and c2, B follows c3
	err := svc.ReplaceAssignments(ctx, user.AssignmentList{Assignments: []user.AssignmentPair{
		{ClassID: "c1", UserID: monA.ID},
		{ClassID: "c2", UserID: monA.ID},
		{ClassID: "c3", UserID: monB.ID},
	}})
	if err != nil {
		t.Fatalf("ReplaceAssignments() failed, %v", err)
	}
	if got := following(monA.ID); len(got) != 2 {
		t.Errorf("monitor A follows %v, want [c1 c2]", got)
	}
	if got := following(monB.ID); len(got) != 1 || got[0] != "c3" {
		t.Errorf("monitor B follows %v, want [c3]", got)
	}

	// c1 moves to B; A keeps only c2 even though A is absent from the submission
	err = svc.ReplaceAssignments(ctx, user.AssignmentList{Assignments: []user.AssignmentPair{
		{ClassID: "c1", UserID: monB.ID},
	}})
	if err != nil {
		t.Fatalf("ReplaceAssignments() failed, %v", err)
	}
	if got := following(monA.ID); len(got) != 1 || got[0] != "c2" {
		t.Errorf("monitor A follows %v, want [c2]", got)
	}
	gotB := following(monB.ID)
	if len(gotB) != 2 {
		t.Errorf("monitor B follows %v, want [c3 c1]", gotB)
	}

	// empty user id detaches the class from everyone
	err = svc.ReplaceAssignments(ctx, user.AssignmentList{Assignments: []user.AssignmentPair{
		{ClassID: "c3", UserID: ""},
	}})
	if err != nil {
		t.Fatalf("ReplaceAssignments() failed, %v", err)
	}
	if got := following(monB.ID); len(got) != 1 || got[0] != "c1" {
		t.Errorf("monitor B follows %v, want [c1]", got)
	}

	// attaching to an unknown user fails before anything changes
	err = svc.ReplaceAssignments(ctx, user.AssignmentList{Assignments: []user.AssignmentPair{
		{ClassID: "c1", UserID: "nope"},
	}})
	if err != user.ErrNotFound {
		t.Errorf("ReplaceAssignments() error = %v, want %v", err, user.ErrNotFound)
	}
	if got := following(monB.ID); len(got) != 1 || got[0] != "c1" {
		t.Errorf("monitor B follows %v, want [c1] untouched", got)
	}
}

var resetURLRegex = regexp.MustCompile(`/password-reset\?uid=([^&\s]+)&token=([^&\s]+)`)

func Test_Service_PasswordReset(t *testing.T) {
	svc, _ := setup(t)

	usr := createUser(t, svc, "awe", "awe@test.cd", false)

	if err := svc.RequestPasswordReset(ctx, "unknown@test.cd"); err != user.ErrNotFound {
		t.Errorf("RequestPasswordReset() error = %v, want %v", err, user.ErrNotFound)
	}

	emailsvc.SentMessages = emailsvc.SentMessages[:0]
	if err := svc.RequestPasswordReset(ctx, usr.Email); err != nil {
		t.Fatalf("RequestPasswordReset() failed, %v", err)
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("sent %d emails, want 1", len(emailsvc.SentMessages))
	}
	match := resetURLRegex.FindStringSubmatch(emailsvc.SentMessages[0].BodyStr)
	if match == nil {
		t.Fatalf("no reset link in email body:\n%s", emailsvc.SentMessages[0].BodyStr)
	}
	uid, token := match[1], match[2]

	if _, err := svc.ConfirmPasswordReset(ctx, uid, "bad-token", "NewPassword1"); err == nil {
		t.Error("ConfirmPasswordReset() should reject a bad token")
	}
	updated, err := svc.ConfirmPasswordReset(ctx, uid, token, "NewPassword1")
	if err != nil {
		t.Fatalf("ConfirmPasswordReset() failed, %v", err)
	}
	if updated.CheckPassword("NewPassword1") != nil {
		t.Error("new password does not match stored hash")
	}
	if updated.CheckPassword("LePassword1") == nil {
		t.Error("old password still matches")
	}

	// the token is single-use: the password hash it was minted against changed
	if _, err = svc.ConfirmPasswordReset(ctx, uid, token, "AnotherPwd1"); err == nil {
		t.Error("ConfirmPasswordReset() should reject a consumed token")
	}
}
