package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"uniconnect.app/campus/internal/entity"
)

func strRef(s string) *string { return &s }

var (
	student300 = entity.Viewer{ID: "stu-300", UserType: "student", AcademicLevel: "300"}
	student200 = entity.Viewer{ID: "stu-200", UserType: "student", AcademicLevel: "200"}
	lecturer   = entity.Viewer{ID: "lec-1", UserType: "lecturer"}
)

func TestIsVisibleTo_UntargetedIsBroadcast(t *testing.T) {
	n := &entity.Notification{Recipients: []string{}}

	for _, v := range []entity.Viewer{student300, student200, lecturer, {ID: "guest"}} {
		assert.True(t, IsVisibleTo(n, v), "viewer %s", v.ID)
	}
}

func TestIsVisibleTo_RecipientsWinOverRole(t *testing.T) {
	n := &entity.Notification{
		Recipients:     []string{lecturer.ID},
		TargetUserType: strRef("student"),
	}

	assert.True(t, IsVisibleTo(n, lecturer))
}

func TestIsVisibleTo_RecipientListExcludesOthers(t *testing.T) {
	n := &entity.Notification{Recipients: []string{student300.ID}}

	assert.True(t, IsVisibleTo(n, student300))
	assert.False(t, IsVisibleTo(n, student200))
	assert.False(t, IsVisibleTo(n, lecturer))
}

func TestIsVisibleTo_ForAllUsers(t *testing.T) {
	n := &entity.Notification{
		ForAllUsers:         true,
		TargetUserType:      strRef("student"),
		TargetAcademicLevel: strRef("400"),
	}

	assert.True(t, IsVisibleTo(n, lecturer))
	assert.True(t, IsVisibleTo(n, student200))
}

func TestIsVisibleTo_TargetedAcademicLevel(t *testing.T) {
	n := &entity.Notification{
		CreatedBy:           lecturer.ID,
		TargetUserType:      strRef("student"),
		TargetAcademicLevel: strRef("300"),
	}

	assert.True(t, IsVisibleTo(n, student300))
	assert.False(t, IsVisibleTo(n, student200))
	assert.False(t, IsVisibleTo(n, lecturer))
}

func TestIsVisibleTo_UserTypeOnly(t *testing.T) {
	n := &entity.Notification{TargetUserType: strRef("lecturer")}

	assert.True(t, IsVisibleTo(n, lecturer))
	assert.False(t, IsVisibleTo(n, student300))
}

func TestIsVisibleTo_AcademicLevelWithoutUserTypeHidesNonStudents(t *testing.T) {
	n := &entity.Notification{TargetAcademicLevel: strRef("300")}

	assert.True(t, IsVisibleTo(n, student300))
	assert.False(t, IsVisibleTo(n, student200))
	assert.False(t, IsVisibleTo(n, lecturer))
}

func TestIsVisibleTo_Deterministic(t *testing.T) {
	notifications := []*entity.Notification{
		{},
		{Recipients: []string{"x"}},
		{ForAllUsers: true},
		{TargetUserType: strRef("student")},
		{TargetAcademicLevel: strRef("300")},
		{TargetUserType: strRef("student"), TargetAcademicLevel: strRef("200")},
	}
	viewers := []entity.Viewer{student300, student200, lecturer, {ID: "x"}}

	for _, n := range notifications {
		for _, v := range viewers {
			first := IsVisibleTo(n, v)
			for i := 0; i < 5; i++ {
				assert.Equal(t, first, IsVisibleTo(n, v))
			}
		}
	}
}

func TestIsVisibleTo_CustomStudentRole(t *testing.T) {
	n := &entity.Notification{TargetAcademicLevel: strRef("300")}
	undergrad := entity.Viewer{ID: "u1", UserType: "undergraduate", AcademicLevel: "300"}

	assert.False(t, isVisibleTo(n, undergrad, DefaultStudentRole))
	assert.True(t, isVisibleTo(n, undergrad, "undergraduate"))
}
