package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/nidhamu/core/school"
)

func Test_schoolApi_classes(t *testing.T) {
	env := setup(t)

	admin := env.createUser(t, "admin", "admin@test.cd", true)
	monitor := env.createUser(t, "mon", "mon@test.cd", false)
	adminToken := getToken(t, admin)
	monitorToken := getToken(t, monitor)

	newClass := marchallObj(t, school.NewClass{Name: "Sixth Grade A", Code: "6A"})

	tests := []httpTest{
		{
			name:     "auth required",
			method:   http.MethodPost,
			path:     "/v1/classes",
			body:     newClass,
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "create is admin only",
			method:   http.MethodPost,
			path:     "/v1/classes",
			token:    monitorToken,
			body:     newClass,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "missing name rejected",
			method:   http.MethodPost,
			path:     "/v1/classes",
			token:    adminToken,
			body:     []byte(`{"code":"6Z"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "created",
			method:   http.MethodPost,
			path:     "/v1/classes",
			token:    adminToken,
			body:     newClass,
			wantCode: http.StatusCreated,
		},
		{
			name:     "duplicate code",
			method:   http.MethodPost,
			path:     "/v1/classes",
			token:    adminToken,
			body:     newClass,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "a class with this code already exists"}),
		},
		{
			name:     "bulk created",
			method:   http.MethodPost,
			path:     "/v1/classes/bulk",
			token:    adminToken,
			body:     []byte(`{"classes":[{"name":"Sixth Grade B","code":"6B"},{"name":"Sixth Grade C","code":"6C"}]}`),
			wantCode: http.StatusCreated,
		},
		{
			name:     "bulk empty rejected",
			method:   http.MethodPost,
			path:     "/v1/classes/bulk",
			token:    adminToken,
			body:     []byte(`{"classes":[]}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown id",
			method:   http.MethodGet,
			path:     "/v1/classes/nope",
			token:    monitorToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "class not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// listing is open to any authed user
	req, rec := newAuthRequest(http.MethodGet, "/v1/classes", monitorToken)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/classes code = %v; body = %s", rec.Code, rec.Body.String())
	}
	var classes []school.Class
	if err := json.Unmarshal(rec.Body.Bytes(), &classes); err != nil {
		t.Fatalf("unmarshalling classes: %v", err)
	}
	if len(classes) != 3 {
		t.Errorf("listed %d classes, want 3", len(classes))
	}
	for _, cls := range classes {
		if cls.Points != school.DefaultPoints {
			t.Errorf("class %s points = %d, want %d", cls.Code, cls.Points, school.DefaultPoints)
		}
	}
}

func Test_schoolApi_teachersAndStudents(t *testing.T) {
	env := setup(t)

	admin := env.createUser(t, "admin", "admin@test.cd", true)
	adminToken := getToken(t, admin)

	cls, err := env.schoolSvc.CreateClass(ctx, school.NewClass{Name: "Sixth Grade A", Code: "6A"})
	if err != nil {
		t.Fatalf("CreateClass() failed, %v", err)
	}

	// teacher created with a homeroom assignment
	body := marchallObj(t, school.NewTeacher{
		Code: "T01", FirstName: "Jane", LastName: "Doe", Email: "jane@test.cd", ClassID: cls.ID,
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/teachers", adminToken, body)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /v1/teachers code = %v; body = %s", rec.Code, rec.Body.String())
	}
	var tch school.Teacher
	if err = json.Unmarshal(rec.Body.Bytes(), &tch); err != nil {
		t.Fatalf("unmarshalling teacher: %v", err)
	}
	if tch.ClassID != cls.ID {
		t.Errorf("teacher class = %q, want %q", tch.ClassID, cls.ID)
	}

	// both sides agree
	refreshed, _ := env.schoolSvc.GetClassByID(ctx, cls.ID)
	if refreshed.TeacherID != tch.ID {
		t.Errorf("class teacher = %q, want %q", refreshed.TeacherID, tch.ID)
	}

	// students in bulk land on the roster
	bulk := []byte(`{"students":[` +
		`{"code":"S001","first_name":"A","last_name":"One","class_id":"` + cls.ID + `"},` +
		`{"code":"S002","first_name":"B","last_name":"Two","class_id":"` + cls.ID + `"}]}`)
	req, rec = newAuthRequest(http.MethodPost, "/v1/students/bulk", adminToken, bulk)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /v1/students/bulk code = %v; body = %s", rec.Code, rec.Body.String())
	}
	refreshed, _ = env.schoolSvc.GetClassByID(ctx, cls.ID)
	if len(refreshed.Students) != 2 {
		t.Errorf("roster size = %d, want 2", len(refreshed.Students))
	}

	// deleting the class orphans everyone
	req, rec = newAuthRequest(http.MethodDelete, "/v1/classes/"+cls.ID, adminToken)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE /v1/classes/:id code = %v; body = %s", rec.Code, rec.Body.String())
	}
	orphan, err := env.schoolSvc.GetTeacherByID(ctx, tch.ID)
	if err != nil {
		t.Fatalf("GetTeacherByID() failed, %v", err)
	}
	if orphan.ClassID != "" {
		t.Errorf("teacher class = %q, want empty", orphan.ClassID)
	}
}
