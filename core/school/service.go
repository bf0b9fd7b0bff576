package school

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/nidhamu/core"
)

var (
	// errors
	ErrClassNotFound      = core.NewNotFoundError("class not found")
	ErrTeacherNotFound    = core.NewNotFoundError("teacher not found")
	ErrStudentNotFound    = core.NewNotFoundError("student not found")
	ErrClassCodeExists    = core.NewConflictError("a class with this code already exists")
	ErrTeacherCodeExists  = core.NewConflictError("a teacher with this code already exists")
	ErrTeacherEmailExists = core.NewConflictError("a teacher with this email already exists")
	ErrStudentCodeExists  = core.NewConflictError("a student with this code already exists")
)

type (
	// TeacherAssignment is the detach-then-attach plan for setting a class's
	// homeroom teacher. The repository applies the whole plan atomically.
	TeacherAssignment struct {
		ClassID         string
		TeacherID       string // empty clears the class's teacher only
		DetachTeacherID string // the class's previous teacher, if displaced
		DetachClassID   string // the teacher's previous class, if displaced
	}

	// StudentTransfer moves a student between class rosters.
	StudentTransfer struct {
		StudentID  string
		OldClassID string // empty when the student was orphaned
		NewClassID string
	}

	// ClassRemoval deletes a class after clearing every back-reference to it.
	// Teacher and students are orphaned, never deleted.
	ClassRemoval struct {
		ClassID    string
		TeacherID  string
		StudentIDs []string
	}

	TeacherRemoval struct {
		TeacherID string
		ClassID   string
	}

	StudentRemoval struct {
		StudentID string
		ClassID   string
	}

	Repository interface {
		// classes
		CheckClassUniqueness(ctx context.Context, code string, excluded ...Class) error
		CreateClass(ctx context.Context, cls Class) (Class, error)
		CreateClasses(ctx context.Context, classes []Class) ([]Class, error)
		QueryAllClasses(ctx context.Context) ([]Class, error)
		GetClassByID(ctx context.Context, id string) (Class, error)
		GetClassByCode(ctx context.Context, code string) (Class, error)
		UpdateClass(ctx context.Context, cls Class) (Class, error)

		// teachers
		CheckTeacherUniqueness(ctx context.Context, code, email string, excluded ...Teacher) error
		CreateTeacher(ctx context.Context, tch Teacher) (Teacher, error)
		QueryAllTeachers(ctx context.Context) ([]Teacher, error)
		GetTeacherByID(ctx context.Context, id string) (Teacher, error)
		UpdateTeacher(ctx context.Context, tch Teacher) (Teacher, error)

		// students
		CheckStudentUniqueness(ctx context.Context, code string, excluded ...Student) error
		// CreateStudent also appends the student to their class's roster.
		CreateStudent(ctx context.Context, st Student) (Student, error)
		CreateStudents(ctx context.Context, students []Student) ([]Student, error)
		QueryAllStudents(ctx context.Context) ([]Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		UpdateStudent(ctx context.Context, st Student) (Student, error)

		// reference integrity plans; each one is applied as a single atomic batch
		ApplyTeacherAssignment(ctx context.Context, plan TeacherAssignment) error
		ApplyStudentTransfer(ctx context.Context, plan StudentTransfer) error
		ApplyClassRemoval(ctx context.Context, plan ClassRemoval) error
		ApplyTeacherRemoval(ctx context.Context, plan TeacherRemoval) error
		ApplyStudentRemoval(ctx context.Context, plan StudentRemoval) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Classes

func (svc *Service) CreateClass(ctx context.Context, nc NewClass) (Class, error) {
	if err := svc.repo.CheckClassUniqueness(ctx, nc.Code); err != nil {
		return Class{}, err
	}
	now := time.Now().UTC()
	cls := Class{
		ID:        uuid.New().String(),
		Name:      nc.Name,
		Code:      nc.Code,
		Points:    DefaultPoints,
		Students:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	cls, err := svc.repo.CreateClass(ctx, cls)
	if err != nil {
		return Class{}, err
	}
	if nc.TeacherID != "" {
		if err = svc.AssignTeacher(ctx, cls.ID, nc.TeacherID); err != nil {
			return Class{}, err
		}
		return svc.repo.GetClassByID(ctx, cls.ID)
	}
	return cls, nil
}

func (svc *Service) CreateClasses(ctx context.Context, ncs []NewClass) ([]Class, error) {
	now := time.Now().UTC()
	classes := make([]Class, 0, len(ncs))
	for _, nc := range ncs {
		if err := svc.repo.CheckClassUniqueness(ctx, nc.Code); err != nil {
			return nil, err
		}
		classes = append(classes, Class{
			ID:        uuid.New().String(),
			Name:      nc.Name,
			Code:      nc.Code,
			Points:    DefaultPoints,
			Students:  []string{},
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return svc.repo.CreateClasses(ctx, classes)
}

func (svc *Service) QueryAllClasses(ctx context.Context) ([]Class, error) {
	return svc.repo.QueryAllClasses(ctx)
}

func (svc *Service) GetClassByID(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClassByID(ctx, id)
}

func (svc *Service) UpdateClass(ctx context.Context, id string, uc UpdateClass) (Class, error) {
	cls, err := svc.repo.GetClassByID(ctx, id)
	if err != nil {
		return Class{}, err
	}
	if uc.Code != "" && uc.Code != cls.Code {
		if err = svc.repo.CheckClassUniqueness(ctx, uc.Code, cls); err != nil {
			return Class{}, err
		}
		cls.Code = uc.Code
	}
	if uc.Name != "" {
		cls.Name = uc.Name
	}
	cls.UpdatedAt = time.Now().UTC()
	if cls, err = svc.repo.UpdateClass(ctx, cls); err != nil {
		return Class{}, err
	}
	if uc.TeacherID != nil {
		if err = svc.AssignTeacher(ctx, cls.ID, *uc.TeacherID); err != nil {
			return Class{}, err
		}
		return svc.repo.GetClassByID(ctx, cls.ID)
	}
	return cls, nil
}

// AssignTeacher makes tchID the homeroom teacher of clsID, detaching the
// class's previous teacher and the teacher's previous class first so neither
// side is left pointing at a partner that no longer reciprocates.
// An empty tchID only clears the class's teacher.
func (svc *Service) AssignTeacher(ctx context.Context, clsID, tchID string) error {
	cls, err := svc.repo.GetClassByID(ctx, clsID)
	if err != nil {
		return err
	}
	if cls.TeacherID == tchID {
		return nil // no-op, avoid self-detachment
	}

	plan := TeacherAssignment{
		ClassID:         clsID,
		TeacherID:       tchID,
		DetachTeacherID: cls.TeacherID,
	}
	if tchID != "" {
		tch, err := svc.repo.GetTeacherByID(ctx, tchID)
		if err != nil {
			return err
		}
		if tch.ClassID != "" && tch.ClassID != clsID {
			plan.DetachClassID = tch.ClassID
		}
	}
	return svc.repo.ApplyTeacherAssignment(ctx, plan)
}

func (svc *Service) DeleteClass(ctx context.Context, id string) error {
	cls, err := svc.repo.GetClassByID(ctx, id)
	if err != nil {
		return err
	}
	return svc.repo.ApplyClassRemoval(ctx, ClassRemoval{
		ClassID:    cls.ID,
		TeacherID:  cls.TeacherID,
		StudentIDs: cls.Students,
	})
}

// Teachers

func (svc *Service) CreateTeacher(ctx context.Context, nt NewTeacher) (Teacher, error) {
	if err := svc.repo.CheckTeacherUniqueness(ctx, nt.Code, nt.Email); err != nil {
		return Teacher{}, err
	}
	now := time.Now().UTC()
	tch := Teacher{
		ID:        uuid.New().String(),
		Code:      nt.Code,
		FirstName: nt.FirstName,
		LastName:  nt.LastName,
		Email:     nt.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tch, err := svc.repo.CreateTeacher(ctx, tch)
	if err != nil {
		return Teacher{}, err
	}
	if nt.ClassID != "" {
		if err = svc.AssignTeacher(ctx, nt.ClassID, tch.ID); err != nil {
			return Teacher{}, err
		}
		return svc.repo.GetTeacherByID(ctx, tch.ID)
	}
	return tch, nil
}

func (svc *Service) QueryAllTeachers(ctx context.Context) ([]Teacher, error) {
	return svc.repo.QueryAllTeachers(ctx)
}

func (svc *Service) GetTeacherByID(ctx context.Context, id string) (Teacher, error) {
	return svc.repo.GetTeacherByID(ctx, id)
}

func (svc *Service) UpdateTeacher(ctx context.Context, id string, ut UpdateTeacher) (Teacher, error) {
	tch, err := svc.repo.GetTeacherByID(ctx, id)
	if err != nil {
		return Teacher{}, err
	}
	if (ut.Code != "" && ut.Code != tch.Code) || (ut.Email != "" && ut.Email != tch.Email) {
		code, email := ut.Code, ut.Email
		if code == "" {
			code = tch.Code
		}
		if email == "" {
			email = tch.Email
		}
		if err = svc.repo.CheckTeacherUniqueness(ctx, code, email, tch); err != nil {
			return Teacher{}, err
		}
	}
	if ut.Code != "" {
		tch.Code = ut.Code
	}
	if ut.FirstName != "" {
		tch.FirstName = ut.FirstName
	}
	if ut.LastName != "" {
		tch.LastName = ut.LastName
	}
	if ut.Email != "" {
		tch.Email = ut.Email
	}
	tch.UpdatedAt = time.Now().UTC()
	if tch, err = svc.repo.UpdateTeacher(ctx, tch); err != nil {
		return Teacher{}, err
	}
	if ut.ClassID != nil {
		if *ut.ClassID == "" {
			// unassign from current homeroom class, if any
			if tch.ClassID != "" {
				if err = svc.AssignTeacher(ctx, tch.ClassID, ""); err != nil {
					return Teacher{}, err
				}
			}
		} else if err = svc.AssignTeacher(ctx, *ut.ClassID, tch.ID); err != nil {
			return Teacher{}, err
		}
		return svc.repo.GetTeacherByID(ctx, tch.ID)
	}
	return tch, nil
}

func (svc *Service) DeleteTeacher(ctx context.Context, id string) error {
	tch, err := svc.repo.GetTeacherByID(ctx, id)
	if err != nil {
		return err
	}
	return svc.repo.ApplyTeacherRemoval(ctx, TeacherRemoval{TeacherID: tch.ID, ClassID: tch.ClassID})
}

// Students

func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	if err := svc.repo.CheckStudentUniqueness(ctx, ns.Code); err != nil {
		return Student{}, err
	}
	if _, err := svc.repo.GetClassByID(ctx, ns.ClassID); err != nil {
		return Student{}, err
	}
	now := time.Now().UTC()
	st := Student{
		ID:          uuid.New().String(),
		Code:        ns.Code,
		FirstName:   ns.FirstName,
		LastName:    ns.LastName,
		ClassID:     ns.ClassID,
		RecordForms: []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateStudent(ctx, st)
}

func (svc *Service) CreateStudents(ctx context.Context, nss []NewStudent) ([]Student, error) {
	now := time.Now().UTC()
	students := make([]Student, 0, len(nss))
	for _, ns := range nss {
		if err := svc.repo.CheckStudentUniqueness(ctx, ns.Code); err != nil {
			return nil, err
		}
		if _, err := svc.repo.GetClassByID(ctx, ns.ClassID); err != nil {
			return nil, err
		}
		students = append(students, Student{
			ID:          uuid.New().String(),
			Code:        ns.Code,
			FirstName:   ns.FirstName,
			LastName:    ns.LastName,
			ClassID:     ns.ClassID,
			RecordForms: []string{},
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return svc.repo.CreateStudents(ctx, students)
}

func (svc *Service) QueryAllStudents(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryAllStudents(ctx)
}

func (svc *Service) GetStudentByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) UpdateStudent(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	st, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if us.Code != "" && us.Code != st.Code {
		if err = svc.repo.CheckStudentUniqueness(ctx, us.Code, st); err != nil {
			return Student{}, err
		}
		st.Code = us.Code
	}
	if us.FirstName != "" {
		st.FirstName = us.FirstName
	}
	if us.LastName != "" {
		st.LastName = us.LastName
	}
	st.UpdatedAt = time.Now().UTC()
	if st, err = svc.repo.UpdateStudent(ctx, st); err != nil {
		return Student{}, err
	}
	if us.ClassID != "" {
		if err = svc.TransferStudent(ctx, st.ID, us.ClassID); err != nil {
			return Student{}, err
		}
		return svc.repo.GetStudentByID(ctx, st.ID)
	}
	return st, nil
}

// TransferStudent moves a student to newClsID's roster, pulling them from
// their previous class's roster first. Same-class transfers are no-ops.
func (svc *Service) TransferStudent(ctx context.Context, stID, newClsID string) error {
	st, err := svc.repo.GetStudentByID(ctx, stID)
	if err != nil {
		return err
	}
	if st.ClassID == newClsID {
		return nil
	}
	if _, err = svc.repo.GetClassByID(ctx, newClsID); err != nil {
		return err
	}
	return svc.repo.ApplyStudentTransfer(ctx, StudentTransfer{
		StudentID:  st.ID,
		OldClassID: st.ClassID,
		NewClassID: newClsID,
	})
}

func (svc *Service) DeleteStudent(ctx context.Context, id string) error {
	st, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return err
	}
	return svc.repo.ApplyStudentRemoval(ctx, StudentRemoval{StudentID: st.ID, ClassID: st.ClassID})
}
