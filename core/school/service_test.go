package school_test

import (
	"context"
	"testing"

	"github.com/trezcool/nidhamu/core/school"
	"github.com/trezcool/nidhamu/storage/database/inmem"
)

var ctx = context.Background()

func setup(t *testing.T) *school.Service {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed, %v", err)
	}
	return school.NewService(inmemdb.NewSchoolRepository(db))
}

func createClass(t *testing.T, svc *school.Service, name, code string) school.Class {
	t.Helper()
	cls, err := svc.CreateClass(ctx, school.NewClass{Name: name, Code: code})
	if err != nil {
		t.Fatalf("CreateClass(%s) failed, %v", code, err)
	}
	return cls
}

func createTeacher(t *testing.T, svc *school.Service, code, email string) school.Teacher {
	t.Helper()
	tch, err := svc.CreateTeacher(ctx, school.NewTeacher{Code: code, FirstName: "T", LastName: code, Email: email})
	if err != nil {
		t.Fatalf("CreateTeacher(%s) failed, %v", code, err)
	}
	return tch
}

func createStudent(t *testing.T, svc *school.Service, code, clsID string) school.Student {
	t.Helper()
	st, err := svc.CreateStudent(ctx, school.NewStudent{Code: code, FirstName: "S", LastName: code, ClassID: clsID})
	if err != nil {
		t.Fatalf("CreateStudent(%s) failed, %v", code, err)
	}
	return st
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func Test_Service_CreateClass(t *testing.T) {
	svc := setup(t)

	cls := createClass(t, svc, "Sixth Grade A", "6A")
	if cls.Points != school.DefaultPoints {
		t.Errorf("new class points = %d, want %d", cls.Points, school.DefaultPoints)
	}
	if len(cls.Students) != 0 {
		t.Errorf("new class roster should be empty, got %v", cls.Students)
	}

	if _, err := svc.CreateClass(ctx, school.NewClass{Name: "Other", Code: "6A"}); err != school.ErrClassCodeExists {
		t.Errorf("duplicate code error = %v, want %v", err, school.ErrClassCodeExists)
	}
}

func Test_Service_CreateTeacher_uniqueness(t *testing.T) {
	svc := setup(t)

	createTeacher(t, svc, "T01", "t01@test.cd")

	if _, err := svc.CreateTeacher(ctx, school.NewTeacher{
		Code: "T01", FirstName: "X", LastName: "Y", Email: "other@test.cd",
	}); err != school.ErrTeacherCodeExists {
		t.Errorf("duplicate code error = %v, want %v", err, school.ErrTeacherCodeExists)
	}
	if _, err := svc.CreateTeacher(ctx, school.NewTeacher{
		Code: "T02", FirstName: "X", LastName: "Y", Email: "t01@test.cd",
	}); err != school.ErrTeacherEmailExists {
		t.Errorf("duplicate email error = %v, want %v", err, school.ErrTeacherEmailExists)
	}
}

func Test_Service_AssignTeacher(t *testing.T) {
	svc := setup(t)

	clsA := createClass(t, svc, "Sixth Grade A", "6A")
	clsB := createClass(t, svc, "Sixth Grade B", "6B")
	tch1 := createTeacher(t, svc, "T01", "t01@test.cd")
	tch2 := createTeacher(t, svc, "T02", "t02@test.cd")

	assertPair := func(clsID, tchID string) {
		t.Helper()
		cls, err := svc.GetClassByID(ctx, clsID)
		if err != nil {
			t.Fatalf("GetClassByID() failed, %v", err)
		}
		if cls.TeacherID != tchID {
			t.Errorf("class %s teacher = %q, want %q", cls.Code, cls.TeacherID, tchID)
		}
		if tchID != "" {
			tch, err := svc.GetTeacherByID(ctx, tchID)
			if err != nil {
				t.Fatalf("GetTeacherByID() failed, %v", err)
			}
			if tch.ClassID != clsID {
				t.Errorf("teacher %s class = %q, want %q", tch.Code, tch.ClassID, clsID)
			}
		}
	}

	// plain assignment links both sides
	if err := svc.AssignTeacher(ctx, clsA.ID, tch1.ID); err != nil {
		t.Fatalf("AssignTeacher() failed, %v", err)
	}
	assertPair(clsA.ID, tch1.ID)

	// same assignment again is a no-op
	if err := svc.AssignTeacher(ctx, clsA.ID, tch1.ID); err != nil {
		t.Fatalf("AssignTeacher() no-op failed, %v", err)
	}
	assertPair(clsA.ID, tch1.ID)

	// moving tch1 to clsB leaves clsA teacherless
	if err := svc.AssignTeacher(ctx, clsB.ID, tch1.ID); err != nil {
		t.Fatalf("AssignTeacher() failed, %v", err)
	}
	assertPair(clsB.ID, tch1.ID)
	assertPair(clsA.ID, "")

	// assigning tch2 to clsB displaces tch1 entirely
	if err := svc.AssignTeacher(ctx, clsB.ID, tch2.ID); err != nil {
		t.Fatalf("AssignTeacher() failed, %v", err)
	}
	assertPair(clsB.ID, tch2.ID)
	displaced, err := svc.GetTeacherByID(ctx, tch1.ID)
	if err != nil {
		t.Fatalf("GetTeacherByID() failed, %v", err)
	}
	if displaced.ClassID != "" {
		t.Errorf("displaced teacher class = %q, want empty", displaced.ClassID)
	}

	// empty teacher id clears the class side only
	if err := svc.AssignTeacher(ctx, clsB.ID, ""); err != nil {
		t.Fatalf("AssignTeacher() failed, %v", err)
	}
	assertPair(clsB.ID, "")
	cleared, err := svc.GetTeacherByID(ctx, tch2.ID)
	if err != nil {
		t.Fatalf("GetTeacherByID() failed, %v", err)
	}
	if cleared.ClassID != "" {
		t.Errorf("cleared teacher class = %q, want empty", cleared.ClassID)
	}

	// unknown parties are rejected
	if err := svc.AssignTeacher(ctx, "nope", tch1.ID); err != school.ErrClassNotFound {
		t.Errorf("AssignTeacher() error = %v, want %v", err, school.ErrClassNotFound)
	}
	if err := svc.AssignTeacher(ctx, clsA.ID, "nope"); err != school.ErrTeacherNotFound {
		t.Errorf("AssignTeacher() error = %v, want %v", err, school.ErrTeacherNotFound)
	}
}

func Test_Service_TransferStudent(t *testing.T) {
	svc := setup(t)

	clsA := createClass(t, svc, "Sixth Grade A", "6A")
	clsB := createClass(t, svc, "Sixth Grade B", "6B")
	st := createStudent(t, svc, "S001", clsA.ID)

	refreshedA, _ := svc.GetClassByID(ctx, clsA.ID)
	if !contains(refreshedA.Students, st.ID) {
		t.Fatalf("student missing from class roster after create")
	}

	if err := svc.TransferStudent(ctx, st.ID, clsB.ID); err != nil {
		t.Fatalf("TransferStudent() failed, %v", err)
	}

	refreshedA, _ = svc.GetClassByID(ctx, clsA.ID)
	refreshedB, _ := svc.GetClassByID(ctx, clsB.ID)
	refreshedSt, _ := svc.GetStudentByID(ctx, st.ID)
	if contains(refreshedA.Students, st.ID) {
		t.Error("student still on old class roster")
	}
	if !contains(refreshedB.Students, st.ID) {
		t.Error("student missing from new class roster")
	}
	if refreshedSt.ClassID != clsB.ID {
		t.Errorf("student class = %q, want %q", refreshedSt.ClassID, clsB.ID)
	}

	// same-class transfer is a no-op
	if err := svc.TransferStudent(ctx, st.ID, clsB.ID); err != nil {
		t.Fatalf("TransferStudent() no-op failed, %v", err)
	}
	refreshedB, _ = svc.GetClassByID(ctx, clsB.ID)
	if n := len(refreshedB.Students); n != 1 {
		t.Errorf("roster size = %d, want 1", n)
	}

	if err := svc.TransferStudent(ctx, st.ID, "nope"); err != school.ErrClassNotFound {
		t.Errorf("TransferStudent() error = %v, want %v", err, school.ErrClassNotFound)
	}
}

func Test_Service_DeleteClass_orphansMembers(t *testing.T) {
	svc := setup(t)

	cls := createClass(t, svc, "Sixth Grade A", "6A")
	tch := createTeacher(t, svc, "T01", "t01@test.cd")
	st1 := createStudent(t, svc, "S001", cls.ID)
	st2 := createStudent(t, svc, "S002", cls.ID)
	if err := svc.AssignTeacher(ctx, cls.ID, tch.ID); err != nil {
		t.Fatalf("AssignTeacher() failed, %v", err)
	}

	if err := svc.DeleteClass(ctx, cls.ID); err != nil {
		t.Fatalf("DeleteClass() failed, %v", err)
	}

	if _, err := svc.GetClassByID(ctx, cls.ID); err != school.ErrClassNotFound {
		t.Errorf("GetClassByID() error = %v, want %v", err, school.ErrClassNotFound)
	}
	// members survive, orphaned
	for _, id := range []string{st1.ID, st2.ID} {
		st, err := svc.GetStudentByID(ctx, id)
		if err != nil {
			t.Fatalf("GetStudentByID() failed, %v", err)
		}
		if st.ClassID != "" {
			t.Errorf("student %s class = %q, want empty", st.Code, st.ClassID)
		}
	}
	refreshedTch, err := svc.GetTeacherByID(ctx, tch.ID)
	if err != nil {
		t.Fatalf("GetTeacherByID() failed, %v", err)
	}
	if refreshedTch.ClassID != "" {
		t.Errorf("teacher class = %q, want empty", refreshedTch.ClassID)
	}
}

func Test_Service_DeleteTeacher_detachesClass(t *testing.T) {
	svc := setup(t)

	cls := createClass(t, svc, "Sixth Grade A", "6A")
	tch := createTeacher(t, svc, "T01", "t01@test.cd")
	if err := svc.AssignTeacher(ctx, cls.ID, tch.ID); err != nil {
		t.Fatalf("AssignTeacher() failed, %v", err)
	}

	if err := svc.DeleteTeacher(ctx, tch.ID); err != nil {
		t.Fatalf("DeleteTeacher() failed, %v", err)
	}
	if _, err := svc.GetTeacherByID(ctx, tch.ID); err != school.ErrTeacherNotFound {
		t.Errorf("GetTeacherByID() error = %v, want %v", err, school.ErrTeacherNotFound)
	}
	refreshed, _ := svc.GetClassByID(ctx, cls.ID)
	if refreshed.TeacherID != "" {
		t.Errorf("class teacher = %q, want empty", refreshed.TeacherID)
	}
}

func Test_Service_DeleteStudent_leavesRoster(t *testing.T) {
	svc := setup(t)

	cls := createClass(t, svc, "Sixth Grade A", "6A")
	st := createStudent(t, svc, "S001", cls.ID)

	if err := svc.DeleteStudent(ctx, st.ID); err != nil {
		t.Fatalf("DeleteStudent() failed, %v", err)
	}
	if _, err := svc.GetStudentByID(ctx, st.ID); err != school.ErrStudentNotFound {
		t.Errorf("GetStudentByID() error = %v, want %v", err, school.ErrStudentNotFound)
	}
	refreshed, _ := svc.GetClassByID(ctx, cls.ID)
	if contains(refreshed.Students, st.ID) {
		t.Error("deleted student still on class roster")
	}
}

func Test_Service_UpdateClass(t *testing.T) {
	svc := setup(t)

	clsA := createClass(t, svc, "Sixth Grade A", "6A")
	createClass(t, svc, "Sixth Grade B", "6B")
	tch := createTeacher(t, svc, "T01", "t01@test.cd")

	// code collision with another class
	if _, err := svc.UpdateClass(ctx, clsA.ID, school.UpdateClass{Code: "6B"}); err != school.ErrClassCodeExists {
		t.Errorf("UpdateClass() error = %v, want %v", err, school.ErrClassCodeExists)
	}
	// keeping its own code is fine
	if _, err := svc.UpdateClass(ctx, clsA.ID, school.UpdateClass{Name: "Sixth A", Code: "6A"}); err != nil {
		t.Errorf("UpdateClass() failed, %v", err)
	}

	// teacher assignment through update
	tchID := tch.ID
	updated, err := svc.UpdateClass(ctx, clsA.ID, school.UpdateClass{TeacherID: &tchID})
	if err != nil {
		t.Fatalf("UpdateClass() failed, %v", err)
	}
	if updated.TeacherID != tch.ID {
		t.Errorf("class teacher = %q, want %q", updated.TeacherID, tch.ID)
	}

	// clearing through update
	empty := ""
	updated, err = svc.UpdateClass(ctx, clsA.ID, school.UpdateClass{TeacherID: &empty})
	if err != nil {
		t.Fatalf("UpdateClass() failed, %v", err)
	}
	if updated.TeacherID != "" {
		t.Errorf("class teacher = %q, want empty", updated.TeacherID)
	}
}

func Test_Service_CreateClasses_bulk(t *testing.T) {
	svc := setup(t)

	classes, err := svc.CreateClasses(ctx, []school.NewClass{
		{Name: "Sixth Grade A", Code: "6A"},
		{Name: "Sixth Grade B", Code: "6B"},
	})
	if err != nil {
		t.Fatalf("CreateClasses() failed, %v", err)
	}
	if len(classes) != 2 {
		t.Fatalf("created %d classes, want 2", len(classes))
	}

	if _, err = svc.CreateClasses(ctx, []school.NewClass{
		{Name: "Sixth Grade C", Code: "6C"},
		{Name: "Dup", Code: "6A"},
	}); err != school.ErrClassCodeExists {
		t.Errorf("CreateClasses() error = %v, want %v", err, school.ErrClassCodeExists)
	}
}
