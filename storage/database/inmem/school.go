package inmemdb

import (
	"context"

	"github.com/trezcool/nidhamu/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func copyClass(cls *school.Class) school.Class {
	c := *cls
	c.Students = copyStrs(cls.Students)
	return c
}

func copyStudent(st *school.Student) school.Student {
	s := *st
	s.RecordForms = copyStrs(st.RecordForms)
	return s
}

// Classes

func (repo *schoolRepository) CheckClassUniqueness(_ context.Context, code string, excluded ...school.Class) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, cls := range repo.db.classes {
		if cls.Code == code && !classExcluded(*cls, excluded) {
			return school.ErrClassCodeExists
		}
	}
	return nil
}

func classExcluded(cls school.Class, excluded []school.Class) bool {
	for _, x := range excluded {
		if x.ID == cls.ID {
			return true
		}
	}
	return false
}

func (repo *schoolRepository) CreateClass(_ context.Context, cls school.Class) (school.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.classes[cls.ID] = &cls
	return copyClass(&cls), nil
}

func (repo *schoolRepository) CreateClasses(_ context.Context, classes []school.Class) ([]school.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	created := make([]school.Class, 0, len(classes))
	for _, cls := range classes {
		cls := cls
		repo.db.classes[cls.ID] = &cls
		created = append(created, copyClass(&cls))
	}
	return created, nil
}

func (repo *schoolRepository) QueryAllClasses(_ context.Context) ([]school.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classes := make([]school.Class, 0, len(repo.db.classes))
	for _, cls := range repo.db.classes {
		classes = append(classes, copyClass(cls))
	}
	return classes, nil
}

func (repo *schoolRepository) GetClassByID(_ context.Context, id string) (school.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cls, ok := repo.db.classes[id]; ok {
		return copyClass(cls), nil
	}
	return school.Class{}, school.ErrClassNotFound
}

func (repo *schoolRepository) GetClassByCode(_ context.Context, code string) (school.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, cls := range repo.db.classes {
		if cls.Code == code {
			return copyClass(cls), nil
		}
	}
	return school.Class{}, school.ErrClassNotFound
}

func (repo *schoolRepository) UpdateClass(_ context.Context, cls school.Class) (school.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.classes[cls.ID]
	if !ok {
		return school.Class{}, school.ErrClassNotFound
	}
	orig.Name = cls.Name
	orig.Code = cls.Code
	orig.UpdatedAt = cls.UpdatedAt
	return copyClass(orig), nil
}

// Teachers

func (repo *schoolRepository) CheckTeacherUniqueness(_ context.Context, code, email string, excluded ...school.Teacher) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, tch := range repo.db.teachers {
		if teacherExcluded(*tch, excluded) {
			continue
		}
		if tch.Code == code {
			return school.ErrTeacherCodeExists
		}
		if tch.Email == email {
			return school.ErrTeacherEmailExists
		}
	}
	return nil
}

func teacherExcluded(tch school.Teacher, excluded []school.Teacher) bool {
	for _, x := range excluded {
		if x.ID == tch.ID {
			return true
		}
	}
	return false
}

func (repo *schoolRepository) CreateTeacher(_ context.Context, tch school.Teacher) (school.Teacher, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.teachers[tch.ID] = &tch
	return tch, nil
}

func (repo *schoolRepository) QueryAllTeachers(_ context.Context) ([]school.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	teachers := make([]school.Teacher, 0, len(repo.db.teachers))
	for _, tch := range repo.db.teachers {
		teachers = append(teachers, *tch)
	}
	return teachers, nil
}

func (repo *schoolRepository) GetTeacherByID(_ context.Context, id string) (school.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if tch, ok := repo.db.teachers[id]; ok {
		return *tch, nil
	}
	return school.Teacher{}, school.ErrTeacherNotFound
}

func (repo *schoolRepository) UpdateTeacher(_ context.Context, tch school.Teacher) (school.Teacher, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.teachers[tch.ID]
	if !ok {
		return school.Teacher{}, school.ErrTeacherNotFound
	}
	orig.Code = tch.Code
	orig.FirstName = tch.FirstName
	orig.LastName = tch.LastName
	orig.Email = tch.Email
	orig.UpdatedAt = tch.UpdatedAt
	return *orig, nil
}

// Students

func (repo *schoolRepository) CheckStudentUniqueness(_ context.Context, code string, excluded ...school.Student) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, st := range repo.db.students {
		if st.Code == code && !studentExcluded(*st, excluded) {
			return school.ErrStudentCodeExists
		}
	}
	return nil
}

func studentExcluded(st school.Student, excluded []school.Student) bool {
	for _, x := range excluded {
		if x.ID == st.ID {
			return true
		}
	}
	return false
}

func (repo *schoolRepository) CreateStudent(_ context.Context, st school.Student) (school.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.students[st.ID] = &st
	if st.ClassID != "" {
		if cls, ok := repo.db.classes[st.ClassID]; ok {
			cls.Students = appendUniqueStr(cls.Students, st.ID)
		}
	}
	return copyStudent(&st), nil
}

func (repo *schoolRepository) CreateStudents(_ context.Context, students []school.Student) ([]school.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	created := make([]school.Student, 0, len(students))
	for _, st := range students {
		st := st
		repo.db.students[st.ID] = &st
		if st.ClassID != "" {
			if cls, ok := repo.db.classes[st.ClassID]; ok {
				cls.Students = appendUniqueStr(cls.Students, st.ID)
			}
		}
		created = append(created, copyStudent(&st))
	}
	return created, nil
}

func (repo *schoolRepository) QueryAllStudents(_ context.Context) ([]school.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]school.Student, 0, len(repo.db.students))
	for _, st := range repo.db.students {
		students = append(students, copyStudent(st))
	}
	return students, nil
}

func (repo *schoolRepository) GetStudentByID(_ context.Context, id string) (school.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if st, ok := repo.db.students[id]; ok {
		return copyStudent(st), nil
	}
	return school.Student{}, school.ErrStudentNotFound
}

func (repo *schoolRepository) UpdateStudent(_ context.Context, st school.Student) (school.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.students[st.ID]
	if !ok {
		return school.Student{}, school.ErrStudentNotFound
	}
	orig.Code = st.Code
	orig.FirstName = st.FirstName
	orig.LastName = st.LastName
	orig.UpdatedAt = st.UpdatedAt
	return copyStudent(orig), nil
}

// Integrity plans

func (repo *schoolRepository) ApplyTeacherAssignment(_ context.Context, plan school.TeacherAssignment) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cls, ok := repo.db.classes[plan.ClassID]
	if !ok {
		return school.ErrClassNotFound
	}
	if plan.DetachTeacherID != "" {
		if tch, ok := repo.db.teachers[plan.DetachTeacherID]; ok {
			tch.ClassID = ""
		}
	}
	if plan.DetachClassID != "" {
		if old, ok := repo.db.classes[plan.DetachClassID]; ok {
			old.TeacherID = ""
		}
	}
	cls.TeacherID = plan.TeacherID
	if plan.TeacherID != "" {
		tch, ok := repo.db.teachers[plan.TeacherID]
		if !ok {
			return school.ErrTeacherNotFound
		}
		tch.ClassID = plan.ClassID
	}
	return nil
}

func (repo *schoolRepository) ApplyStudentTransfer(_ context.Context, plan school.StudentTransfer) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	st, ok := repo.db.students[plan.StudentID]
	if !ok {
		return school.ErrStudentNotFound
	}
	newCls, ok := repo.db.classes[plan.NewClassID]
	if !ok {
		return school.ErrClassNotFound
	}
	if plan.OldClassID != "" {
		if oldCls, ok := repo.db.classes[plan.OldClassID]; ok {
			oldCls.Students = withoutStr(oldCls.Students, st.ID)
		}
	}
	newCls.Students = appendUniqueStr(newCls.Students, st.ID)
	st.ClassID = plan.NewClassID
	return nil
}

func (repo *schoolRepository) ApplyClassRemoval(_ context.Context, plan school.ClassRemoval) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.classes[plan.ClassID]; !ok {
		return school.ErrClassNotFound
	}
	if plan.TeacherID != "" {
		if tch, ok := repo.db.teachers[plan.TeacherID]; ok {
			tch.ClassID = ""
		}
	}
	for _, stID := range plan.StudentIDs {
		if st, ok := repo.db.students[stID]; ok {
			st.ClassID = ""
		}
	}
	delete(repo.db.classes, plan.ClassID)
	return nil
}

func (repo *schoolRepository) ApplyTeacherRemoval(_ context.Context, plan school.TeacherRemoval) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.teachers[plan.TeacherID]; !ok {
		return school.ErrTeacherNotFound
	}
	if plan.ClassID != "" {
		if cls, ok := repo.db.classes[plan.ClassID]; ok {
			cls.TeacherID = ""
		}
	}
	delete(repo.db.teachers, plan.TeacherID)
	return nil
}

func (repo *schoolRepository) ApplyStudentRemoval(_ context.Context, plan school.StudentRemoval) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.students[plan.StudentID]; !ok {
		return school.ErrStudentNotFound
	}
	if plan.ClassID != "" {
		if cls, ok := repo.db.classes[plan.ClassID]; ok {
			cls.Students = withoutStr(cls.Students, plan.StudentID)
		}
	}
	delete(repo.db.students, plan.StudentID)
	return nil
}
