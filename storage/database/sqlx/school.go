package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/nidhamu/core/school"
)

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

// Row structs

type classRow struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	Code      string         `db:"code"`
	Points    int            `db:"points"`
	TeacherID null.String    `db:"teacher_id"`
	Students  pq.StringArray `db:"students"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func packClass(cls school.Class) classRow {
	return classRow{
		ID:        cls.ID,
		Name:      cls.Name,
		Code:      cls.Code,
		Points:    cls.Points,
		TeacherID: null.NewString(cls.TeacherID, cls.TeacherID != ""),
		Students:  cls.Students,
		CreatedAt: cls.CreatedAt.UTC(),
		UpdatedAt: cls.UpdatedAt.UTC(),
	}
}

func (row classRow) unpack() school.Class {
	return school.Class{
		ID:        row.ID,
		Name:      row.Name,
		Code:      row.Code,
		Points:    row.Points,
		TeacherID: row.TeacherID.String,
		Students:  row.Students,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

type teacherRow struct {
	ID        string      `db:"id"`
	Code      string      `db:"code"`
	FirstName string      `db:"first_name"`
	LastName  string      `db:"last_name"`
	Email     string      `db:"email"`
	ClassID   null.String `db:"class_id"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func packTeacher(tch school.Teacher) teacherRow {
	return teacherRow{
		ID:        tch.ID,
		Code:      tch.Code,
		FirstName: tch.FirstName,
		LastName:  tch.LastName,
		Email:     tch.Email,
		ClassID:   null.NewString(tch.ClassID, tch.ClassID != ""),
		CreatedAt: tch.CreatedAt.UTC(),
		UpdatedAt: tch.UpdatedAt.UTC(),
	}
}

func (row teacherRow) unpack() school.Teacher {
	return school.Teacher{
		ID:        row.ID,
		Code:      row.Code,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		Email:     row.Email,
		ClassID:   row.ClassID.String,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

type studentRow struct {
	ID          string         `db:"id"`
	Code        string         `db:"code"`
	FirstName   string         `db:"first_name"`
	LastName    string         `db:"last_name"`
	ClassID     null.String    `db:"class_id"`
	RecordForms pq.StringArray `db:"record_forms"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func packStudent(st school.Student) studentRow {
	return studentRow{
		ID:          st.ID,
		Code:        st.Code,
		FirstName:   st.FirstName,
		LastName:    st.LastName,
		ClassID:     null.NewString(st.ClassID, st.ClassID != ""),
		RecordForms: st.RecordForms,
		CreatedAt:   st.CreatedAt.UTC(),
		UpdatedAt:   st.UpdatedAt.UTC(),
	}
}

func (row studentRow) unpack() school.Student {
	return school.Student{
		ID:          row.ID,
		Code:        row.Code,
		FirstName:   row.FirstName,
		LastName:    row.LastName,
		ClassID:     row.ClassID.String,
		RecordForms: row.RecordForms,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to notFound
func (repo schoolRepository) trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// Classes

func (repo schoolRepository) CheckClassUniqueness(ctx context.Context, code string, excluded ...school.Class) error {
	ids := make([]string, 0, len(excluded))
	for _, cls := range excluded {
		ids = append(ids, cls.ID)
	}
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM "class" WHERE code = $1 AND id <> ALL($2))`,
		code, pq.Array(ids))
	if err != nil {
		return errors.Wrap(err, "checking class uniqueness")
	}
	if exists {
		return school.ErrClassCodeExists
	}
	return nil
}

const insertClassQuery = `
	INSERT INTO "class" (id, name, code, points, teacher_id, students, created_at, updated_at)
	VALUES (:id, :name, :code, :points, :teacher_id, :students, :created_at, :updated_at)`

func (repo schoolRepository) CreateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	if _, err := repo.db.NamedExecContext(ctx, insertClassQuery, packClass(cls)); err != nil {
		return school.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo schoolRepository) CreateClasses(ctx context.Context, classes []school.Class) ([]school.Class, error) {
	err := runTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		for _, cls := range classes {
			if _, err := tx.NamedExecContext(ctx, insertClassQuery, packClass(cls)); err != nil {
				return errors.Wrap(err, "inserting class")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return classes, nil
}

func (repo schoolRepository) QueryAllClasses(ctx context.Context) ([]school.Class, error) {
	var rows []classRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM "class" ORDER BY code`); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	classes := make([]school.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, row.unpack())
	}
	return classes, nil
}

func (repo schoolRepository) GetClassByID(ctx context.Context, id string) (school.Class, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Class{}, school.ErrClassNotFound
	}
	var row classRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "class" WHERE id = $1`, id); err != nil {
		return school.Class{}, repo.trapNoRowsErr(err, school.ErrClassNotFound, "finding class by ID")
	}
	return row.unpack(), nil
}

func (repo schoolRepository) GetClassByCode(ctx context.Context, code string) (school.Class, error) {
	var row classRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "class" WHERE code = $1`, code); err != nil {
		return school.Class{}, repo.trapNoRowsErr(err, school.ErrClassNotFound, "finding class by code")
	}
	return row.unpack(), nil
}

func (repo schoolRepository) UpdateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE "class"
		SET name = :name, code = :code, points = :points, teacher_id = :teacher_id,
		    students = :students, updated_at = :updated_at
		WHERE id = :id`, packClass(cls))
	if err != nil {
		return school.Class{}, errors.Wrap(err, "updating class")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return school.Class{}, school.ErrClassNotFound
	}
	return cls, nil
}

// Teachers

func (repo schoolRepository) CheckTeacherUniqueness(ctx context.Context, code, email string, excluded ...school.Teacher) error {
	ids := make([]string, 0, len(excluded))
	for _, tch := range excluded {
		ids = append(ids, tch.ID)
	}
	var matchedCode, matchedEmail bool
	err := repo.db.QueryRowContext(ctx, `
		SELECT COALESCE(bool_or(code = $1), FALSE), COALESCE(bool_or(email = $2), FALSE)
		FROM "teacher" WHERE (code = $1 OR email = $2) AND id <> ALL($3)`,
		code, email, pq.Array(ids)).Scan(&matchedCode, &matchedEmail)
	if err != nil {
		return errors.Wrap(err, "checking teacher uniqueness")
	}
	if matchedCode {
		return school.ErrTeacherCodeExists
	}
	if matchedEmail {
		return school.ErrTeacherEmailExists
	}
	return nil
}

func (repo schoolRepository) CreateTeacher(ctx context.Context, tch school.Teacher) (school.Teacher, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO "teacher" (id, code, first_name, last_name, email, class_id, created_at, updated_at)
		VALUES (:id, :code, :first_name, :last_name, :email, :class_id, :created_at, :updated_at)`,
		packTeacher(tch))
	if err != nil {
		return school.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return tch, nil
}

func (repo schoolRepository) QueryAllTeachers(ctx context.Context) ([]school.Teacher, error) {
	var rows []teacherRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM "teacher" ORDER BY code`); err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}
	teachers := make([]school.Teacher, 0, len(rows))
	for _, row := range rows {
		teachers = append(teachers, row.unpack())
	}
	return teachers, nil
}

func (repo schoolRepository) GetTeacherByID(ctx context.Context, id string) (school.Teacher, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Teacher{}, school.ErrTeacherNotFound
	}
	var row teacherRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "teacher" WHERE id = $1`, id); err != nil {
		return school.Teacher{}, repo.trapNoRowsErr(err, school.ErrTeacherNotFound, "finding teacher by ID")
	}
	return row.unpack(), nil
}

func (repo schoolRepository) UpdateTeacher(ctx context.Context, tch school.Teacher) (school.Teacher, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE "teacher"
		SET code = :code, first_name = :first_name, last_name = :last_name,
		    email = :email, class_id = :class_id, updated_at = :updated_at
		WHERE id = :id`, packTeacher(tch))
	if err != nil {
		return school.Teacher{}, errors.Wrap(err, "updating teacher")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return school.Teacher{}, school.ErrTeacherNotFound
	}
	return tch, nil
}

// Students

func (repo schoolRepository) CheckStudentUniqueness(ctx context.Context, code string, excluded ...school.Student) error {
	ids := make([]string, 0, len(excluded))
	for _, st := range excluded {
		ids = append(ids, st.ID)
	}
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM "student" WHERE code = $1 AND id <> ALL($2))`,
		code, pq.Array(ids))
	if err != nil {
		return errors.Wrap(err, "checking student uniqueness")
	}
	if exists {
		return school.ErrStudentCodeExists
	}
	return nil
}

const insertStudentQuery = `
	INSERT INTO "student" (id, code, first_name, last_name, class_id, record_forms, created_at, updated_at)
	VALUES (:id, :code, :first_name, :last_name, :class_id, :record_forms, :created_at, :updated_at)`

func (repo schoolRepository) createStudent(ctx context.Context, tx *sqlx.Tx, st school.Student) error {
	if _, err := tx.NamedExecContext(ctx, insertStudentQuery, packStudent(st)); err != nil {
		return errors.Wrap(err, "inserting student")
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE "class" SET students = array_append(students, $1) WHERE id = $2`,
		st.ID, st.ClassID)
	return errors.Wrap(err, "appending student to class roster")
}

func (repo schoolRepository) CreateStudent(ctx context.Context, st school.Student) (school.Student, error) {
	err := runTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		return repo.createStudent(ctx, tx, st)
	})
	if err != nil {
		return school.Student{}, err
	}
	return st, nil
}

func (repo schoolRepository) CreateStudents(ctx context.Context, students []school.Student) ([]school.Student, error) {
	err := runTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		for _, st := range students {
			if err := repo.createStudent(ctx, tx, st); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return students, nil
}

func (repo schoolRepository) QueryAllStudents(ctx context.Context) ([]school.Student, error) {
	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM "student" ORDER BY code`); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]school.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.unpack())
	}
	return students, nil
}

func (repo schoolRepository) GetStudentByID(ctx context.Context, id string) (school.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Student{}, school.ErrStudentNotFound
	}
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "student" WHERE id = $1`, id); err != nil {
		return school.Student{}, repo.trapNoRowsErr(err, school.ErrStudentNotFound, "finding student by ID")
	}
	return row.unpack(), nil
}

func (repo schoolRepository) UpdateStudent(ctx context.Context, st school.Student) (school.Student, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE "student"
		SET code = :code, first_name = :first_name, last_name = :last_name,
		    class_id = :class_id, record_forms = :record_forms, updated_at = :updated_at
		WHERE id = :id`, packStudent(st))
	if err != nil {
		return school.Student{}, errors.Wrap(err, "updating student")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return school.Student{}, school.ErrStudentNotFound
	}
	return st, nil
}

// Plans

func (repo schoolRepository) ApplyTeacherAssignment(ctx context.Context, plan school.TeacherAssignment) error {
	return runTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if plan.DetachTeacherID != "" {
			if _, err := tx.ExecContext(ctx,
				`UPDATE "teacher" SET class_id = NULL WHERE id = $1`, plan.DetachTeacherID); err != nil {
				return errors.Wrap(err, "detaching previous teacher")
			}
		}
		if plan.DetachClassID != "" {
			if _, err := tx.ExecContext(ctx,
				`UPDATE "class" SET teacher_id = NULL WHERE id = $1`, plan.DetachClassID); err != nil {
				return errors.Wrap(err, "detaching previous class")
			}
		}
		tchID := null.NewString(plan.TeacherID, plan.TeacherID != "")
		if _, err := tx.ExecContext(ctx,
			`UPDATE "class" SET teacher_id = $1 WHERE id = $2`, tchID, plan.ClassID); err != nil {
			return errors.Wrap(err, "setting class teacher")
		}
		if plan.TeacherID != "" {
			if _, err := tx.ExecContext(ctx,
				`UPDATE "teacher" SET class_id = $1 WHERE id = $2`, plan.ClassID, plan.TeacherID); err != nil {
				return errors.Wrap(err, "setting teacher class")
			}
		}
		return nil
	})
}

func (repo schoolRepository) ApplyStudentTransfer(ctx context.Context, plan school.StudentTransfer) error {
	return runTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if plan.OldClassID != "" {
			if _, err := tx.ExecContext(ctx,
				`UPDATE "class" SET students = array_remove(students, $1::uuid) WHERE id = $2`,
				plan.StudentID, plan.OldClassID); err != nil {
				return errors.Wrap(err, "pulling student from old roster")
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE "class" SET students = array_append(students, $1) WHERE id = $2`,
			plan.StudentID, plan.NewClassID); err != nil {
			return errors.Wrap(err, "appending student to new roster")
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE "student" SET class_id = $1 WHERE id = $2`,
			plan.NewClassID, plan.StudentID); err != nil {
			return errors.Wrap(err, "setting student class")
		}
		return nil
	})
}

func (repo schoolRepository) ApplyClassRemoval(ctx context.Context, plan school.ClassRemoval) error {
	return runTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if plan.TeacherID != "" {
			if _, err := tx.ExecContext(ctx,
				`UPDATE "teacher" SET class_id = NULL WHERE id = $1`, plan.TeacherID); err != nil {
				return errors.Wrap(err, "orphaning teacher")
			}
		}
		if len(plan.StudentIDs) > 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE "student" SET class_id = NULL WHERE id = ANY($1)`,
				pq.Array(plan.StudentIDs)); err != nil {
				return errors.Wrap(err, "orphaning students")
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM "class" WHERE id = $1`, plan.ClassID); err != nil {
			return errors.Wrap(err, "deleting class")
		}
		return nil
	})
}

func (repo schoolRepository) ApplyTeacherRemoval(ctx context.Context, plan school.TeacherRemoval) error {
	return runTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if plan.ClassID != "" {
			if _, err := tx.ExecContext(ctx,
				`UPDATE "class" SET teacher_id = NULL WHERE id = $1`, plan.ClassID); err != nil {
				return errors.Wrap(err, "clearing class teacher")
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM "teacher" WHERE id = $1`, plan.TeacherID); err != nil {
			return errors.Wrap(err, "deleting teacher")
		}
		return nil
	})
}

func (repo schoolRepository) ApplyStudentRemoval(ctx context.Context, plan school.StudentRemoval) error {
	return runTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if plan.ClassID != "" {
			if _, err := tx.ExecContext(ctx,
				`UPDATE "class" SET students = array_remove(students, $1::uuid) WHERE id = $2`,
				plan.StudentID, plan.ClassID); err != nil {
				return errors.Wrap(err, "pulling student from roster")
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM "student" WHERE id = $1`, plan.StudentID); err != nil {
			return errors.Wrap(err, "deleting student")
		}
		return nil
	})
}
