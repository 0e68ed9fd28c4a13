package tests

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/classwork/apps/api/echo"
	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/core/assignment"
	"github.com/trezcool/classwork/core/submission"
	"github.com/trezcool/classwork/core/user"
	"github.com/trezcool/classwork/tests"
)

// An essay goes from creation to grading; the student cannot touch the grade afterwards.
func Test_gradingScenario(t *testing.T) {
	env, srv := setup(t)
	env.CreateUser(t, "admin", core.RoleAdmin)

	login := func(t *testing.T, uname, pwd string) string {
		req, rec := newRequest(http.MethodPost, "/v1/users/login", marchallObj(t, LoginRequest{Username: uname, Password: pwd}))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp LoginResponse
		unmarshal(t, rec, &resp)
		return resp.Token
	}
	adminToken := login(t, "admin", testutil.Password)
	require.NotEmpty(t, adminToken)

	// admin creates teacher t1
	body := marchallObj(t, user.NewUser{Username: "t1", Email: "t1@school.cd", Password: "chalk-board-11", Role: core.RoleTeacher})
	req, rec := newAuthRequest(http.MethodPost, "/v1/users", adminToken, body)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	teacherToken := login(t, "t1", "chalk-board-11")

	// t1 creates "Essay 1"
	req, rec = newAuthRequest(http.MethodPost, "/v1/assignments", teacherToken,
		[]byte(`{"title":"Essay 1","subject":"English","due_date":"2025-01-01"}`))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var essay assignment.Assignment
	unmarshal(t, rec, &essay)
	assert.True(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Equal(essay.DueDate))

	// student registers and submits essay.pdf (2 MiB)
	body = marchallObj(t, user.NewUser{Username: "s1", Email: "s1@school.cd", Password: "green-apple-3", Role: core.RoleStudent})
	req, rec = newRequest(http.MethodPost, "/v1/users/register", body)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	studentToken := login(t, "s1", "green-apple-3")

	req, rec = newMultipartRequest(t, http.MethodPost, fmt.Sprintf("/v1/assignments/%d/submissions", essay.ID), studentToken, nil,
		upload{field: "file", name: "essay.pdf", size: 2 << 20})
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sub submission.Submission
	unmarshal(t, rec, &sub)

	// t1 grades it
	req, rec = newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/submissions/%d/grade", sub.ID), teacherToken,
		[]byte(`{"grade":85,"feedback":"Good work"}`))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	checkGrade := func(t *testing.T) submission.Submission {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/submissions/%d", sub.ID), studentToken)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got submission.Submission
		unmarshal(t, rec, &got)
		assert.Equal(t, 85, got.Grade.Int)
		assert.Equal(t, "Good work", got.Feedback.String)
		return got
	}
	checkGrade(t)

	t.Run("student cannot grade", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/submissions/%d/grade", sub.ID), studentToken,
			[]byte(`{"grade":100,"feedback":"Perfect"}`))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		checkGrade(t)
	})

	t.Run("updating the submission leaves the grade alone", func(t *testing.T) {
		req, rec := newMultipartRequest(t, http.MethodPut, fmt.Sprintf("/v1/submissions/%d", sub.ID), studentToken,
			map[string]string{"grade": "100", "feedback": "Perfect"},
			upload{field: "file", name: "essay-v2.docx", size: 1 << 10})
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		got := checkGrade(t)
		assert.NotEqual(t, sub.File, got.File)
		assert.True(t, got.SubmittedAt.After(sub.SubmittedAt) || got.SubmittedAt.Equal(sub.SubmittedAt))
	})
}
