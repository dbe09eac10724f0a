package tests

import (
	"net/http"
	"testing"

	"github.com/elimuhq/elimu/core/course"
	"github.com/elimuhq/elimu/core/user"
)

func Test_courseApi_create(t *testing.T) {
	student := createUser(t, "Stu", "stu.crscreate@test.cd", "s3cr3tpwd", user.RoleStudent, true)
	instructor := createUser(t, "Prof", "prof.crscreate@test.cd", "s3cr3tpwd", user.RoleInstructor, true)

	body := marshalObj(t, map[string]string{
		"title": "Go 101", "description": "intro", "category": "programming",
	})

	tests := []httpTest{
		{
			name: "auth required", method: http.MethodPost, path: "/v1/courses", body: body,
			wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken),
		},
		{
			name: "student cannot create", method: http.MethodPost, path: "/v1/courses", body: body,
			token:    getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "missing title rejected", method: http.MethodPost, path: "/v1/courses",
			body:     marshalObj(t, map[string]string{"description": "intro", "category": "programming"}),
			token:    getToken(t, instructor),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "instructor creates", method: http.MethodPost, path: "/v1/courses", body: body,
			token:    getToken(t, instructor),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, tt.run)
	}
}

func Test_courseApi_ownership(t *testing.T) {
	owner := createUser(t, "Prof", "prof.crsown@test.cd", "s3cr3tpwd", user.RoleInstructor, true)
	other := createUser(t, "Rival", "rival.crsown@test.cd", "s3cr3tpwd", user.RoleInstructor, true)
	admin := createUser(t, "Boss", "boss.crsown@test.cd", "s3cr3tpwd", user.RoleAdmin, true)
	crs := createCourse(t, owner.ID)

	update := marshalObj(t, map[string]string{"title": "Go 102"})

	tests := []httpTest{
		{
			name: "non-owner cannot update", method: http.MethodPut, path: "/v1/courses/" + crs.ID, body: update,
			token:    getToken(t, other),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "owner updates", method: http.MethodPut, path: "/v1/courses/" + crs.ID, body: update,
			token:    getToken(t, owner),
			wantCode: http.StatusOK,
		},
		{
			name: "admin updates any course", method: http.MethodPut, path: "/v1/courses/" + crs.ID,
			body:     marshalObj(t, map[string]string{"title": "Go 103"}),
			token:    getToken(t, admin),
			wantCode: http.StatusOK,
		},
		{
			name: "non-owner cannot delete", method: http.MethodDelete, path: "/v1/courses/" + crs.ID,
			token:    getToken(t, other),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "unknown course 404s", method: http.MethodPut, path: "/v1/courses/nope", body: update,
			token:    getToken(t, owner),
			wantCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, tt.run)
	}
}

func Test_courseApi_retrieve(t *testing.T) {
	instructor := createUser(t, "Prof", "prof.crsget@test.cd", "s3cr3tpwd", user.RoleInstructor, true)
	student := createUser(t, "Stu", "stu.crsget@test.cd", "s3cr3tpwd", user.RoleStudent, true)
	crs := createCourse(t, instructor.ID)
	lsn := createLesson(t, crs.ID, course.NewLesson{Title: "Hello", Type: course.LessonText, Content: "hi", Order: 1})

	req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/enroll", getToken(t, student))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("enroll code = %v; body: %s", rec.Code, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/courses/"+crs.ID, getToken(t, student))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body: %s", rec.Code, rec.Body.String())
	}

	var detail course.Detail
	decodeBody(t, rec, &detail)
	if len(detail.Lessons) != 1 || detail.Lessons[0].ID != lsn.ID {
		t.Errorf("lessons = %+v; want the one created lesson", detail.Lessons)
	}
	if len(detail.StudentIDs) != 1 || detail.StudentIDs[0] != student.ID {
		t.Errorf("students = %v; want [%s]", detail.StudentIDs, student.ID)
	}
}

func Test_courseApi_deleteCascades(t *testing.T) {
	instructor := createUser(t, "Prof", "prof.crsdel@test.cd", "s3cr3tpwd", user.RoleInstructor, true)
	student := createUser(t, "Stu", "stu.crsdel@test.cd", "s3cr3tpwd", user.RoleStudent, true)
	crs := createCourse(t, instructor.ID)
	lsn := createLesson(t, crs.ID, course.NewLesson{Title: "Hello", Type: course.LessonText, Content: "hi", Order: 1})

	req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/enroll", getToken(t, student))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("enroll code = %v; body: %s", rec.Code, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodDelete, "/v1/courses/"+crs.ID, getToken(t, instructor))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete code = %v; body: %s", rec.Code, rec.Body.String())
	}

	tests := []httpTest{
		{
			name: "course gone", method: http.MethodGet, path: "/v1/courses/" + crs.ID,
			token: getToken(t, student), wantCode: http.StatusNotFound,
		},
		{
			name: "lesson gone", method: http.MethodDelete, path: "/v1/lessons/" + lsn.ID,
			token: getToken(t, instructor), wantCode: http.StatusNotFound,
		},
		{
			name: "enrollment gone", method: http.MethodGet, path: "/v1/progress/" + crs.ID,
			token: getToken(t, student), wantCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, tt.run)
	}
}

func Test_courseApi_lessons(t *testing.T) {
	instructor := createUser(t, "Prof", "prof.crslsn@test.cd", "s3cr3tpwd", user.RoleInstructor, true)
	crs := createCourse(t, instructor.ID)
	video := createLesson(t, crs.ID, course.NewLesson{
		Title: "Watch", Type: course.LessonVideo, MediaURL: "https://www.youtube.com/embed/dQw4w9WgXcQ", Order: 1,
	})

	token := getToken(t, instructor)
	tests := []httpTest{
		{
			name: "video without media url rejected", method: http.MethodPost, path: "/v1/courses/" + crs.ID + "/lessons",
			body:     marshalObj(t, map[string]interface{}{"title": "Watch", "type": "video", "order": 2}),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"media_url": "a media URL is required for video lessons"}),
		},
		{
			name: "unknown lesson type rejected", method: http.MethodPost, path: "/v1/courses/" + crs.ID + "/lessons",
			body:     marshalObj(t, map[string]interface{}{"title": "Pod", "type": "podcast", "order": 2}),
			token:    token,
			wantCode: http.StatusBadRequest,
		},
		{
			name: "questions on a video lesson rejected", method: http.MethodPut, path: "/v1/lessons/" + video.ID,
			body: marshalObj(t, map[string]interface{}{
				"questions": []map[string]interface{}{
					{"text": "Q", "options": []string{"a", "b"}, "correct_option_index": 0, "points": 1},
				},
			}),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"questions": "questions are only allowed on quiz lessons"}),
		},
		{
			name: "owner updates lesson", method: http.MethodPut, path: "/v1/lessons/" + video.ID,
			body:     marshalObj(t, map[string]string{"title": "Watch this"}),
			token:    token,
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, tt.run)
	}
}
