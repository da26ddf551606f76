package enrollment_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/account"
	"github.com/darasahq/darasa/core/enrollment"
	"github.com/darasahq/darasa/core/group"
	"github.com/darasahq/darasa/core/student"
	emailsvc "github.com/darasahq/darasa/services/email"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
)

type testEnv struct {
	svc         *enrollment.Service
	studentRepo student.Repository
	groupRepo   group.Repository
	enrollRepo  enrollment.Repository
}

func setup(t *testing.T) testEnv {
	t.Helper()

	db := inmemdb.Open()
	conf := &core.Config{AppName: "Darasa", DefaultGroupCapacity: 30}

	studentRepo := inmemdb.NewStudentRepository(db)
	groupRepo := inmemdb.NewGroupRepository(db)
	enrollRepo := inmemdb.NewEnrollmentRepository(db)

	emailsvc.ClearSentMessages()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	svc := enrollment.NewService(enrollRepo, groupRepo, studentRepo, mailSvc)
	return testEnv{svc: svc, studentRepo: studentRepo, groupRepo: groupRepo, enrollRepo: enrollRepo}
}

func createStudent(t *testing.T, env testEnv, name, email string) student.Student {
	t.Helper()
	std, err := env.studentRepo.CreateStudent(context.Background(), student.Student{
		Name: name, Email: email, Major: "Mathematics",
	})
	if err != nil {
		t.Fatalf("CreateStudent(): %v", err)
	}
	return std
}

func createGroup(t *testing.T, env testEnv, status string, maxCapacity int) group.CourseGroup {
	t.Helper()
	grp, err := env.groupRepo.CreateGroup(context.Background(), group.CourseGroup{
		SubjectID:   1,
		Status:      status,
		Type:        group.TypeRegular,
		MaxCapacity: maxCapacity,
	})
	if err != nil {
		t.Fatalf("CreateGroup(): %v", err)
	}
	return grp
}

func createSession(t *testing.T, env testEnv, groupID int64, day group.DayOfWeek, start, end string) group.GroupSession {
	t.Helper()
	s, err := group.ParseTimeOfDay(start)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q): %v", start, err)
	}
	e, err := group.ParseTimeOfDay(end)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q): %v", end, err)
	}
	sess, err := env.groupRepo.CreateSession(context.Background(), group.GroupSession{
		CourseGroupID: groupID, Day: day, Start: s, End: e,
	})
	if err != nil {
		t.Fatalf("CreateSession(): %v", err)
	}
	return sess
}

func principalFor(std student.Student) account.Principal {
	return account.Principal{ID: std.ID, Role: account.RoleStudent, Name: std.Name, Email: std.Email}
}

var adminPrincipal = account.Principal{ID: 1, Role: account.RoleAdmin, Name: "Admin", Email: "admin@darasa.cd"}

func TestService_Enroll(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	std := createStudent(t, env, "Ada", "ada@darasa.cd")
	other := createStudent(t, env, "Grace", "grace@darasa.cd")
	active := createGroup(t, env, group.StatusActive, 30)
	planned := createGroup(t, env, group.StatusPlanned, 30)

	t.Run("student enrolls self", func(t *testing.T) {
		enr, err := env.svc.Enroll(ctx, principalFor(std), enrollment.NewEnrollment{
			StudentID: std.ID, CourseGroupID: active.ID,
		})
		if err != nil {
			t.Fatalf("Enroll(): %v", err)
		}
		if enr.PaymentStatus != enrollment.PaymentPending {
			t.Errorf("PaymentStatus = %q, want %q", enr.PaymentStatus, enrollment.PaymentPending)
		}
		if len(emailsvc.SentMessages) != 1 {
			t.Errorf("sent %d confirmation emails, want 1", len(emailsvc.SentMessages))
		}
	})

	t.Run("student cannot enroll another student", func(t *testing.T) {
		_, err := env.svc.Enroll(ctx, principalFor(std), enrollment.NewEnrollment{
			StudentID: other.ID, CourseGroupID: active.ID,
		})
		if err != account.ErrPermissionDenied {
			t.Errorf("Enroll() error = %v, want %v", err, account.ErrPermissionDenied)
		}
	})

	t.Run("admin enrolls anyone", func(t *testing.T) {
		if _, err := env.svc.Enroll(ctx, adminPrincipal, enrollment.NewEnrollment{
			StudentID: other.ID, CourseGroupID: active.ID,
		}); err != nil {
			t.Errorf("Enroll(): %v", err)
		}
	})

	t.Run("duplicate enrollment", func(t *testing.T) {
		_, err := env.svc.Enroll(ctx, principalFor(std), enrollment.NewEnrollment{
			StudentID: std.ID, CourseGroupID: active.ID,
		})
		if err != enrollment.ErrDuplicate {
			t.Errorf("Enroll() error = %v, want %v", err, enrollment.ErrDuplicate)
		}
	})

	t.Run("group not active", func(t *testing.T) {
		_, err := env.svc.Enroll(ctx, principalFor(std), enrollment.NewEnrollment{
			StudentID: std.ID, CourseGroupID: planned.ID,
		})
		if err != enrollment.ErrGroupNotActive {
			t.Errorf("Enroll() error = %v, want %v", err, enrollment.ErrGroupNotActive)
		}
	})

	t.Run("unknown student", func(t *testing.T) {
		_, err := env.svc.Enroll(ctx, adminPrincipal, enrollment.NewEnrollment{
			StudentID: 999, CourseGroupID: active.ID,
		})
		if err != student.ErrNotFound {
			t.Errorf("Enroll() error = %v, want %v", err, student.ErrNotFound)
		}
	})

	t.Run("unknown group", func(t *testing.T) {
		_, err := env.svc.Enroll(ctx, principalFor(std), enrollment.NewEnrollment{
			StudentID: std.ID, CourseGroupID: 999,
		})
		if err != group.ErrNotFound {
			t.Errorf("Enroll() error = %v, want %v", err, group.ErrNotFound)
		}
	})
}

func TestService_Enroll_capacity(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	grp := createGroup(t, env, group.StatusActive, 2)

	for i, name := range []string{"Ada", "Grace"} {
		std := createStudent(t, env, name, fmt.Sprintf("%d@darasa.cd", i))
		if _, err := env.svc.Enroll(ctx, principalFor(std), enrollment.NewEnrollment{
			StudentID: std.ID, CourseGroupID: grp.ID,
		}); err != nil {
			t.Fatalf("Enroll(#%d): %v", i, err)
		}
	}

	third := createStudent(t, env, "Edsger", "edsger@darasa.cd")
	_, err := env.svc.Enroll(ctx, principalFor(third), enrollment.NewEnrollment{
		StudentID: third.ID, CourseGroupID: grp.ID,
	})
	if err != enrollment.ErrGroupFull {
		t.Errorf("Enroll() error = %v, want %v", err, enrollment.ErrGroupFull)
	}
}

func TestService_Enroll_concurrent(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	const capacity = 5
	const attempts = 20
	grp := createGroup(t, env, group.StatusActive, capacity)

	students := make([]student.Student, attempts)
	for i := range students {
		students[i] = createStudent(t, env, fmt.Sprintf("Student %d", i), fmt.Sprintf("s%d@darasa.cd", i))
	}

	var wg sync.WaitGroup
	for _, std := range students {
		wg.Add(1)
		go func(std student.Student) {
			defer wg.Done()
			_, _ = env.svc.Enroll(ctx, principalFor(std), enrollment.NewEnrollment{
				StudentID: std.ID, CourseGroupID: grp.ID,
			})
		}(std)
	}
	wg.Wait()

	count, err := env.enrollRepo.CountEnrollmentsByGroup(ctx, grp.ID)
	if err != nil {
		t.Fatalf("CountEnrollmentsByGroup(): %v", err)
	}
	if count != capacity {
		t.Errorf("enrollments = %d, want exactly %d", count, capacity)
	}
}

func TestService_Enroll_concurrentDuplicates(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	const attempts = 20
	grp := createGroup(t, env, group.StatusActive, 30)
	std := createStudent(t, env, "Ada", "ada@darasa.cd")

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = env.svc.Enroll(ctx, principalFor(std), enrollment.NewEnrollment{
				StudentID: std.ID, CourseGroupID: grp.ID,
			})
		}()
	}
	wg.Wait()

	enrollments, err := env.svc.ListByStudent(ctx, std.ID)
	if err != nil {
		t.Fatalf("ListByStudent(): %v", err)
	}
	if len(enrollments) != 1 {
		t.Errorf("enrollments = %d, want exactly 1 for the (student, group) pair", len(enrollments))
	}
}

func TestService_Enroll_scheduleConflict(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	std := createStudent(t, env, "Ada", "ada@darasa.cd")

	paidGroup := createGroup(t, env, group.StatusActive, 30)
	createSession(t, env, paidGroup.ID, group.Monday, "10:00", "11:00")

	enr, err := env.svc.Enroll(ctx, principalFor(std), enrollment.NewEnrollment{
		StudentID: std.ID, CourseGroupID: paidGroup.ID,
	})
	if err != nil {
		t.Fatalf("Enroll(): %v", err)
	}
	if _, err = env.svc.UpdatePaymentStatus(ctx, enr.ID, enrollment.UpdatePayment{PaymentStatus: enrollment.PaymentPaid}); err != nil {
		t.Fatalf("UpdatePaymentStatus(): %v", err)
	}

	t.Run("overlap with paid session", func(t *testing.T) {
		clashing := createGroup(t, env, group.StatusActive, 30)
		createSession(t, env, clashing.ID, group.Monday, "10:30", "11:30")

		_, err := env.svc.Enroll(ctx, principalFor(std), enrollment.NewEnrollment{
			StudentID: std.ID, CourseGroupID: clashing.ID,
		})
		if err != enrollment.ErrScheduleConflict {
			t.Errorf("Enroll() error = %v, want %v", err, enrollment.ErrScheduleConflict)
		}
	})

	t.Run("touching boundary does not conflict", func(t *testing.T) {
		adjacent := createGroup(t, env, group.StatusActive, 30)
		createSession(t, env, adjacent.ID, group.Monday, "11:00", "12:00")

		if _, err := env.svc.Enroll(ctx, principalFor(std), enrollment.NewEnrollment{
			StudentID: std.ID, CourseGroupID: adjacent.ID,
		}); err != nil {
			t.Errorf("Enroll(): %v", err)
		}
	})

	t.Run("pending enrollments do not block", func(t *testing.T) {
		// the adjacent group enrollment above is PENDING; its sessions are
		// not held against new enrollments
		overlapAdjacent := createGroup(t, env, group.StatusActive, 30)
		createSession(t, env, overlapAdjacent.ID, group.Monday, "11:30", "12:30")

		if _, err := env.svc.Enroll(ctx, principalFor(std), enrollment.NewEnrollment{
			StudentID: std.ID, CourseGroupID: overlapAdjacent.ID,
		}); err != nil {
			t.Errorf("Enroll(): %v", err)
		}
	})
}

func TestService_UpdatePaymentStatus(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	std := createStudent(t, env, "Ada", "ada@darasa.cd")
	grp := createGroup(t, env, group.StatusActive, 30)
	enr, err := env.svc.Enroll(ctx, principalFor(std), enrollment.NewEnrollment{
		StudentID: std.ID, CourseGroupID: grp.ID,
	})
	if err != nil {
		t.Fatalf("Enroll(): %v", err)
	}

	// no transition machine: any status may follow any other
	for _, status := range []string{
		enrollment.PaymentPaid, enrollment.PaymentFailed, enrollment.PaymentPending, enrollment.PaymentPaid,
	} {
		updated, err := env.svc.UpdatePaymentStatus(ctx, enr.ID, enrollment.UpdatePayment{PaymentStatus: status})
		if err != nil {
			t.Fatalf("UpdatePaymentStatus(%s): %v", status, err)
		}
		if updated.PaymentStatus != status {
			t.Errorf("PaymentStatus = %q, want %q", updated.PaymentStatus, status)
		}
	}

	if _, err = env.svc.UpdatePaymentStatus(ctx, 999, enrollment.UpdatePayment{PaymentStatus: enrollment.PaymentPaid}); err != enrollment.ErrNotFound {
		t.Errorf("UpdatePaymentStatus() error = %v, want %v", err, enrollment.ErrNotFound)
	}
}

func TestService_ListByStudent(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	std := createStudent(t, env, "Ada", "ada@darasa.cd")
	g1 := createGroup(t, env, group.StatusActive, 30)
	g2 := createGroup(t, env, group.StatusActive, 30)

	for _, grp := range []group.CourseGroup{g1, g2} {
		if _, err := env.svc.Enroll(ctx, principalFor(std), enrollment.NewEnrollment{
			StudentID: std.ID, CourseGroupID: grp.ID,
		}); err != nil {
			t.Fatalf("Enroll(): %v", err)
		}
	}

	enrollments, err := env.svc.ListByStudent(ctx, std.ID)
	if err != nil {
		t.Fatalf("ListByStudent(): %v", err)
	}
	if len(enrollments) != 2 {
		t.Errorf("ListByStudent() = %d enrollments, want 2", len(enrollments))
	}

	if _, err = env.svc.ListByStudent(ctx, 999); err != student.ErrNotFound {
		t.Errorf("ListByStudent() error = %v, want %v", err, student.ErrNotFound)
	}

	byGroup, err := env.svc.ListByGroup(ctx, g1.ID)
	if err != nil {
		t.Fatalf("ListByGroup(): %v", err)
	}
	if len(byGroup) != 1 {
		t.Errorf("ListByGroup() = %d enrollments, want 1", len(byGroup))
	}
}
