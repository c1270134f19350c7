package entity

// Viewer is the profile of the signed-in user as resolved by the auth layer.
// AcademicLevel is empty when the user has none.
type Viewer struct {
	ID            string `json:"id"`
	UserType      string `json:"user_type"`
	AcademicLevel string `json:"academic_level,omitempty"`
}
