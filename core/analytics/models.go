package analytics

import "time"

type (
	// AdminStats is the platform-wide dashboard payload.
	AdminStats struct {
		TotalUsers       int            `json:"total_users"`
		TotalCourses     int            `json:"total_courses"`
		TotalEnrollments int            `json:"total_enrollments"`
		UsersByRole      map[string]int `json:"users_by_role"`
	}

	// CourseStat reports one course's enrollment and completion figures.
	CourseStat struct {
		Title          string `json:"title"`
		Enrollments    int    `json:"enrollments"`
		CompletedCount int    `json:"completed_count"`
		CompletionRate int    `json:"completion_rate"`
	}

	InstructorStats struct {
		TotalCourses  int          `json:"total_courses"`
		TotalStudents int          `json:"total_students"`
		CourseStats   []CourseStat `json:"course_stats"`
	}

	// CourseProgress is one enrolled course in a student's summary.
	CourseProgress struct {
		CourseTitle      string    `json:"course_title"`
		Category         string    `json:"category"`
		CompletedLessons int       `json:"completed_lessons"`
		IsCompleted      bool      `json:"is_completed"`
		UpdatedAt        time.Time `json:"updated_at"` // UTC
	}

	StudentStats struct {
		TotalEnrolled     int              `json:"total_enrolled"`
		CompletedCourses  int              `json:"completed_courses"`
		InProgressCourses int              `json:"in_progress_courses"`
		DetailedProgress  []CourseProgress `json:"detailed_progress"`
	}
)
