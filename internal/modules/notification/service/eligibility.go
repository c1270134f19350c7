package service

import (
	"uniconnect.app/campus/internal/entity"
)

// DefaultStudentRole is the user type for which academic level targeting
// applies.
const DefaultStudentRole = "student"

// IsVisibleTo reports whether the targeting fields of n select viewer. It
// ignores read, deleted and expiry state.
func IsVisibleTo(n *entity.Notification, viewer entity.Viewer) bool {
	return isVisibleTo(n, viewer, DefaultStudentRole)
}

func isVisibleTo(n *entity.Notification, viewer entity.Viewer, studentRole string) bool {
	if n.IsRecipient(viewer.ID) {
		return true
	}
	if n.ForAllUsers {
		return true
	}

	if n.TargetUserType != nil && *n.TargetUserType != viewer.UserType {
		return false
	}
	if n.TargetAcademicLevel != nil && viewer.UserType == studentRole {
		return *n.TargetAcademicLevel == viewer.AcademicLevel
	}
	if n.TargetUserType != nil {
		return true
	}

	// An academic level aimed at a non-student, or a recipient list that
	// does not name the viewer, falls through to here and is hidden.
	return len(n.Recipients) == 0 && n.TargetUserType == nil && n.TargetAcademicLevel == nil
}
