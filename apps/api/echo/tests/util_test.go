package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	echoapi "github.com/elimuhq/elimu/apps/api/echo"
	"github.com/elimuhq/elimu/core/course"
	"github.com/elimuhq/elimu/core/user"
)

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func (tt httpTest) run(t *testing.T) {
	t.Helper()
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	access, _, err := echoapi.IssueTokenPair(conf, usr)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return access
}

func getRefreshToken(t *testing.T, usr user.User) string {
	t.Helper()
	_, refresh, err := echoapi.IssueTokenPair(conf, usr)
	if err != nil {
		t.Fatalf("getRefreshToken(): %v", err)
	}
	return refresh
}

func createUser(t *testing.T, name, email, pwd, role string, isActive bool) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("createUser(): %v", err)
	}
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser(): %v", err)
	}
	return usr
}

func createCourse(t *testing.T, instructorID string) course.Course {
	t.Helper()
	crs, err := crsSvc.Create(context.Background(), instructorID, course.NewCourse{
		Title: "Go 101", Description: "intro", Category: "programming",
	})
	if err != nil {
		t.Fatalf("createCourse(): %v", err)
	}
	return crs
}

func createLesson(t *testing.T, courseID string, nl course.NewLesson) course.Lesson {
	t.Helper()
	lsn, err := crsSvc.AddLesson(context.Background(), courseID, nl)
	if err != nil {
		t.Fatalf("createLesson(): %v", err)
	}
	return lsn
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decodeBody(): %v; body: %s", err, rec.Body.String())
	}
}
