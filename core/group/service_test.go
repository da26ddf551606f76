package group_test

import (
	"context"
	"testing"
	"time"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/enrollment"
	"github.com/darasahq/darasa/core/group"
	"github.com/darasahq/darasa/core/subject"
	"github.com/darasahq/darasa/core/teacher"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
)

type testEnv struct {
	svc        *group.Service
	groupRepo  group.Repository
	enrollRepo enrollment.Repository
	sub        subject.Subject
	tch        teacher.Teacher
}

func setup(t *testing.T) testEnv {
	t.Helper()
	ctx := context.Background()

	db := inmemdb.Open()
	subjectRepo := inmemdb.NewSubjectRepository(db)
	teacherRepo := inmemdb.NewTeacherRepository(db)
	groupRepo := inmemdb.NewGroupRepository(db)
	enrollRepo := inmemdb.NewEnrollmentRepository(db)

	sub, err := subjectRepo.CreateSubject(ctx, subject.Subject{Name: "Calculus I", Major: "Mathematics", CourseYear: 1})
	if err != nil {
		t.Fatalf("CreateSubject(): %v", err)
	}
	tch, err := teacherRepo.CreateTeacher(ctx, teacher.Teacher{Name: "Alan Turing", Email: "alan@darasa.cd"})
	if err != nil {
		t.Fatalf("CreateTeacher(): %v", err)
	}

	conf := &core.Config{DefaultGroupCapacity: 30}
	svc := group.NewService(groupRepo, subjectRepo, teacherRepo, enrollRepo, conf)
	return testEnv{svc: svc, groupRepo: groupRepo, enrollRepo: enrollRepo, sub: sub, tch: tch}
}

func mustTime(t *testing.T, s string) group.TimeOfDay {
	t.Helper()
	tod, err := group.ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q): %v", s, err)
	}
	return tod
}

func createGroup(t *testing.T, env testEnv, teacherID *int64, status string) group.CourseGroup {
	t.Helper()
	grp, err := env.svc.Create(context.Background(), group.NewGroup{
		SubjectID: env.sub.ID,
		TeacherID: teacherID,
		Status:    status,
		Type:      group.TypeRegular,
		Price:     100,
	})
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	return grp
}

func TestService_Create(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	t.Run("defaults applied", func(t *testing.T) {
		grp := createGroup(t, env, nil, "")
		if grp.Status != group.StatusPlanned {
			t.Errorf("Status = %q, want %q", grp.Status, group.StatusPlanned)
		}
		if grp.MaxCapacity != 30 {
			t.Errorf("MaxCapacity = %d, want 30", grp.MaxCapacity)
		}
		if grp.TeacherID.Valid {
			t.Error("TeacherID must be null when unassigned")
		}
	})

	t.Run("unknown subject", func(t *testing.T) {
		_, err := env.svc.Create(ctx, group.NewGroup{SubjectID: 999, Type: group.TypeRegular})
		if err != subject.ErrNotFound {
			t.Errorf("Create() error = %v, want %v", err, subject.ErrNotFound)
		}
	})

	t.Run("unknown teacher", func(t *testing.T) {
		badID := int64(999)
		_, err := env.svc.Create(ctx, group.NewGroup{SubjectID: env.sub.ID, TeacherID: &badID, Type: group.TypeRegular})
		if err != teacher.ErrNotFound {
			t.Errorf("Create() error = %v, want %v", err, teacher.ErrNotFound)
		}
	})
}

func TestService_Update(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	grp := createGroup(t, env, nil, group.StatusActive)

	// two enrollments in the group
	for i, studentID := range []int64{101, 102} {
		_, err := env.enrollRepo.CreateEnrollment(ctx, enrollment.Enrollment{
			StudentID:     studentID,
			CourseGroupID: grp.ID,
			EnrolledAt:    time.Now().UTC(),
			PaymentStatus: enrollment.PaymentPending,
		}, grp.MaxCapacity)
		if err != nil {
			t.Fatalf("CreateEnrollment(#%d): %v", i, err)
		}
	}

	t.Run("capacity below enrollment count", func(t *testing.T) {
		one := 1
		_, err := env.svc.Update(ctx, grp.ID, group.UpdateGroup{MaxCapacity: &one})
		if _, ok := err.(*core.ValidationError); !ok {
			t.Errorf("Update() error = %v, want *core.ValidationError", err)
		}
	})

	t.Run("capacity at enrollment count", func(t *testing.T) {
		two := 2
		updated, err := env.svc.Update(ctx, grp.ID, group.UpdateGroup{MaxCapacity: &two})
		if err != nil {
			t.Fatalf("Update(): %v", err)
		}
		if updated.MaxCapacity != 2 {
			t.Errorf("MaxCapacity = %d, want 2", updated.MaxCapacity)
		}
	})

	t.Run("assign teacher and close", func(t *testing.T) {
		updated, err := env.svc.Update(ctx, grp.ID, group.UpdateGroup{TeacherID: &env.tch.ID, Status: group.StatusClosed})
		if err != nil {
			t.Fatalf("Update(): %v", err)
		}
		if !updated.TeacherID.Valid || updated.TeacherID.Int64 != env.tch.ID {
			t.Errorf("TeacherID = %v, want %d", updated.TeacherID, env.tch.ID)
		}
		if updated.Status != group.StatusClosed {
			t.Errorf("Status = %q, want %q", updated.Status, group.StatusClosed)
		}
	})

	t.Run("unknown group", func(t *testing.T) {
		if _, err := env.svc.Update(ctx, 999, group.UpdateGroup{}); err != group.ErrNotFound {
			t.Errorf("Update() error = %v, want %v", err, group.ErrNotFound)
		}
	})
}

func TestService_CreateSession(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	g1 := createGroup(t, env, &env.tch.ID, group.StatusActive)
	g2 := createGroup(t, env, &env.tch.ID, group.StatusActive)

	mon10to11 := group.NewSession{Day: group.Monday, Start: mustTime(t, "10:00"), End: mustTime(t, "11:00"), Classroom: "A1"}
	if _, err := env.svc.CreateSession(ctx, g1.ID, mon10to11); err != nil {
		t.Fatalf("CreateSession(): %v", err)
	}

	t.Run("duplicate slot", func(t *testing.T) {
		// teacherless group, no classroom: only the slot uniqueness applies
		g3 := createGroup(t, env, nil, group.StatusActive)
		sess := group.NewSession{Day: group.Monday, Start: mustTime(t, "10:00"), End: mustTime(t, "11:00")}
		if _, err := env.svc.CreateSession(ctx, g3.ID, sess); err != nil {
			t.Fatalf("CreateSession(): %v", err)
		}
		if _, err := env.svc.CreateSession(ctx, g3.ID, sess); err != group.ErrSessionExists {
			t.Errorf("CreateSession() error = %v, want %v", err, group.ErrSessionExists)
		}
	})

	t.Run("classroom conflict", func(t *testing.T) {
		g3 := createGroup(t, env, nil, group.StatusActive)
		sess := group.NewSession{Day: group.Monday, Start: mustTime(t, "10:30"), End: mustTime(t, "11:30"), Classroom: "A1"}
		if _, err := env.svc.CreateSession(ctx, g3.ID, sess); err != group.ErrClassroomConflict {
			t.Errorf("CreateSession() error = %v, want %v", err, group.ErrClassroomConflict)
		}
	})

	t.Run("teacher conflict", func(t *testing.T) {
		sess := group.NewSession{Day: group.Monday, Start: mustTime(t, "10:30"), End: mustTime(t, "11:30"), Classroom: "C1"}
		if _, err := env.svc.CreateSession(ctx, g2.ID, sess); err != group.ErrTeacherConflict {
			t.Errorf("CreateSession() error = %v, want %v", err, group.ErrTeacherConflict)
		}
	})

	t.Run("touching boundary is free", func(t *testing.T) {
		sess := group.NewSession{Day: group.Monday, Start: mustTime(t, "11:00"), End: mustTime(t, "12:00"), Classroom: "A1"}
		if _, err := env.svc.CreateSession(ctx, g2.ID, sess); err != nil {
			t.Errorf("CreateSession(): %v", err)
		}
	})

	t.Run("another day is free", func(t *testing.T) {
		sess := group.NewSession{Day: group.Tuesday, Start: mustTime(t, "10:00"), End: mustTime(t, "11:00"), Classroom: "A1"}
		if _, err := env.svc.CreateSession(ctx, g2.ID, sess); err != nil {
			t.Errorf("CreateSession(): %v", err)
		}
	})

	t.Run("unknown group", func(t *testing.T) {
		sess := group.NewSession{Day: group.Friday, Start: mustTime(t, "10:00"), End: mustTime(t, "11:00")}
		if _, err := env.svc.CreateSession(ctx, 999, sess); err != group.ErrNotFound {
			t.Errorf("CreateSession() error = %v, want %v", err, group.ErrNotFound)
		}
	})
}

func TestService_UpdateSession(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	grp := createGroup(t, env, &env.tch.ID, group.StatusActive)
	sess, err := env.svc.CreateSession(ctx, grp.ID, group.NewSession{
		Day: group.Monday, Start: mustTime(t, "10:00"), End: mustTime(t, "11:00"), Classroom: "A1",
	})
	if err != nil {
		t.Fatalf("CreateSession(): %v", err)
	}

	t.Run("session does not conflict with itself", func(t *testing.T) {
		updated, err := env.svc.UpdateSession(ctx, sess.ID, group.NewSession{
			Day: group.Monday, Start: mustTime(t, "10:00"), End: mustTime(t, "12:00"), Classroom: "A1",
		})
		if err != nil {
			t.Fatalf("UpdateSession(): %v", err)
		}
		if updated.End != mustTime(t, "12:00") {
			t.Errorf("End = %v, want 12:00", updated.End)
		}
	})

	t.Run("dropping the classroom", func(t *testing.T) {
		updated, err := env.svc.UpdateSession(ctx, sess.ID, group.NewSession{
			Day: group.Monday, Start: mustTime(t, "10:00"), End: mustTime(t, "11:00"),
		})
		if err != nil {
			t.Fatalf("UpdateSession(): %v", err)
		}
		if updated.Classroom.Valid {
			t.Error("Classroom must be null when omitted")
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := env.svc.UpdateSession(ctx, 999, group.NewSession{
			Day: group.Monday, Start: mustTime(t, "10:00"), End: mustTime(t, "11:00"),
		})
		if err != group.ErrSessionNotFound {
			t.Errorf("UpdateSession() error = %v, want %v", err, group.ErrSessionNotFound)
		}
	})
}

func TestService_DeleteSession(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	grp := createGroup(t, env, nil, group.StatusActive)
	sess, err := env.svc.CreateSession(ctx, grp.ID, group.NewSession{
		Day: group.Wednesday, Start: mustTime(t, "14:00"), End: mustTime(t, "16:00"),
	})
	if err != nil {
		t.Fatalf("CreateSession(): %v", err)
	}

	if err = env.svc.DeleteSession(ctx, sess.ID); err != nil {
		t.Fatalf("DeleteSession(): %v", err)
	}
	if err = env.svc.DeleteSession(ctx, sess.ID); err != group.ErrSessionNotFound {
		t.Errorf("DeleteSession() error = %v, want %v", err, group.ErrSessionNotFound)
	}

	sessions, err := env.svc.SessionsForGroup(ctx, grp.ID)
	if err != nil {
		t.Fatalf("SessionsForGroup(): %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("SessionsForGroup() = %d sessions, want 0", len(sessions))
	}
}

func TestService_Query(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	active := createGroup(t, env, &env.tch.ID, group.StatusActive)
	createGroup(t, env, nil, group.StatusPlanned)

	groups, err := env.svc.Query(ctx, &group.QueryFilter{Status: group.StatusActive}, nil)
	if err != nil {
		t.Fatalf("Query(): %v", err)
	}
	if len(groups) != 1 || groups[0].ID != active.ID {
		t.Errorf("Query(status=ACTIVE) = %v, want [%d]", groups, active.ID)
	}

	groups, err = env.svc.Query(ctx, &group.QueryFilter{TeacherID: env.tch.ID}, nil)
	if err != nil {
		t.Fatalf("Query(): %v", err)
	}
	if len(groups) != 1 || groups[0].ID != active.ID {
		t.Errorf("Query(teacher) = %v, want [%d]", groups, active.ID)
	}
}
