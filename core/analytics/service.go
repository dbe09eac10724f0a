package analytics

import (
	"context"

	"github.com/pkg/errors"

	"github.com/elimuhq/elimu/core/course"
	"github.com/elimuhq/elimu/core/enroll"
	"github.com/elimuhq/elimu/core/user"
)

type (
	// Directory is the slice of the user store the dashboards need.
	Directory interface {
		QueryAllUsers(ctx context.Context) ([]user.User, error)
	}

	Catalog interface {
		QueryAllCourses(ctx context.Context) ([]course.Course, error)
		QueryCoursesByInstructor(ctx context.Context, instructorID string) ([]course.Course, error)
	}

	Ledger interface {
		CountEnrollments(ctx context.Context) (int, error)
		QueryEnrollmentsByCourse(ctx context.Context, courseID string) ([]enroll.Enrollment, error)
	}

	// ProgressSource derives a student's per-course standing; satisfied by the
	// enroll service so the figures go through the same dangling-lesson
	// filtering the progress endpoints use.
	ProgressSource interface {
		ListStudentCourses(ctx context.Context, studentID string) ([]enroll.StudentCourse, error)
	}

	Service struct {
		directory Directory
		catalog   Catalog
		ledger    Ledger
		progress  ProgressSource
	}
)

func NewService(directory Directory, catalog Catalog, ledger Ledger, progress ProgressSource) *Service {
	return &Service{directory: directory, catalog: catalog, ledger: ledger, progress: progress}
}

// AdminStats aggregates platform-wide counts and the user role breakdown.
func (svc *Service) AdminStats(ctx context.Context) (AdminStats, error) {
	users, err := svc.directory.QueryAllUsers(ctx)
	if err != nil {
		return AdminStats{}, errors.Wrap(err, "querying users")
	}
	courses, err := svc.catalog.QueryAllCourses(ctx)
	if err != nil {
		return AdminStats{}, errors.Wrap(err, "querying courses")
	}
	enrollments, err := svc.ledger.CountEnrollments(ctx)
	if err != nil {
		return AdminStats{}, errors.Wrap(err, "counting enrollments")
	}

	byRole := make(map[string]int, len(user.AllRoles))
	for _, usr := range users {
		byRole[usr.Role]++
	}
	return AdminStats{
		TotalUsers:       len(users),
		TotalCourses:     len(courses),
		TotalEnrollments: enrollments,
		UsersByRole:      byRole,
	}, nil
}

// InstructorStats reports enrollment and completion figures for each course
// the instructor owns.
func (svc *Service) InstructorStats(ctx context.Context, instructorID string) (InstructorStats, error) {
	courses, err := svc.catalog.QueryCoursesByInstructor(ctx, instructorID)
	if err != nil {
		return InstructorStats{}, errors.Wrap(err, "querying instructor courses")
	}

	stats := InstructorStats{
		TotalCourses: len(courses),
		CourseStats:  make([]CourseStat, 0, len(courses)),
	}
	for _, crs := range courses {
		enrs, err := svc.ledger.QueryEnrollmentsByCourse(ctx, crs.ID)
		if err != nil {
			return InstructorStats{}, errors.Wrap(err, "querying course enrollments")
		}
		var completed int
		for _, enr := range enrs {
			if enr.IsCompleted {
				completed++
			}
		}
		stats.TotalStudents += len(enrs)
		stats.CourseStats = append(stats.CourseStats, CourseStat{
			Title:          crs.Title,
			Enrollments:    len(enrs),
			CompletedCount: completed,
			CompletionRate: enroll.CompletionPercent(completed, len(enrs)),
		})
	}
	return stats, nil
}

// StudentStats summarizes the student's standing across their enrollments.
func (svc *Service) StudentStats(ctx context.Context, studentID string) (StudentStats, error) {
	scs, err := svc.progress.ListStudentCourses(ctx, studentID)
	if err != nil {
		return StudentStats{}, errors.Wrap(err, "listing student courses")
	}

	stats := StudentStats{
		TotalEnrolled:    len(scs),
		DetailedProgress: make([]CourseProgress, 0, len(scs)),
	}
	for _, sc := range scs {
		if sc.IsCompleted {
			stats.CompletedCourses++
		} else {
			stats.InProgressCourses++
		}
		stats.DetailedProgress = append(stats.DetailedProgress, CourseProgress{
			CourseTitle:      sc.Course.Title,
			Category:         sc.Course.Category,
			CompletedLessons: sc.CompletedCount,
			IsCompleted:      sc.IsCompleted,
			UpdatedAt:        sc.UpdatedAt,
		})
	}
	return stats, nil
}
