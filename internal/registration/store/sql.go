package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"registrar/internal/registration/models"
	dErrors "registrar/pkg/domain-errors"
	"registrar/pkg/platform/sentinel"
	txcontext "registrar/pkg/platform/tx"
)

//go:embed schema/*.sql
var schemaFS embed.FS

const defaultTxTimeout = 5 * time.Second

// SQLStore persists students, courses and the enrollments join table in
// Postgres or SQLite. Inside RunInTx every call shares the transaction and
// single-row reads lock the row they return.
type SQLStore struct {
	db        *sql.DB
	dialect   Dialect
	txTimeout time.Duration
}

type SQLOption func(*SQLStore)

// WithTxTimeout bounds transactions whose context carries no deadline.
func WithTxTimeout(d time.Duration) SQLOption {
	return func(s *SQLStore) {
		if d > 0 {
			s.txTimeout = d
		}
	}
}

func NewSQLStore(db *sql.DB, dialect Dialect, opts ...SQLOption) *SQLStore {
	s := &SQLStore{db: db, dialect: dialect, txTimeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) q(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Migrate creates the schema when it is missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	raw, err := schemaFS.ReadFile("schema/" + string(s.dialect) + ".sql")
	if err != nil {
		return fmt.Errorf("read %s schema: %w", s.dialect, err)
	}
	for _, stmt := range strings.Split(string(raw), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// RunInTx runs fn inside a database transaction carried by the context.
// Nested calls join the outer transaction.
func (s *SQLStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txcontext.InTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("begin transaction: %w", err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

func (s *SQLStore) CreateStudent(ctx context.Context, student *models.Student) error {
	query := s.dialect.rebind(`INSERT INTO students (name, surname) VALUES (?, ?) RETURNING id`)
	var id int64
	if err := s.q(ctx).QueryRowContext(ctx, query, student.Name, student.Surname).Scan(&id); err != nil {
		return classify(fmt.Errorf("insert student: %w", err))
	}
	student.ID = models.StudentID(id)
	student.CourseIDs = nil
	return nil
}

func (s *SQLStore) UpdateStudent(ctx context.Context, student *models.Student) error {
	query := s.dialect.rebind(`UPDATE students SET name = ?, surname = ? WHERE id = ?`)
	res, err := s.q(ctx).ExecContext(ctx, query, student.Name, student.Surname, int64(student.ID))
	if err != nil {
		return classify(fmt.Errorf("update student: %w", err))
	}
	return expectRow(res, "student", int64(student.ID))
}

func (s *SQLStore) FindStudent(ctx context.Context, id models.StudentID) (*models.Student, error) {
	query := s.dialect.rebind(`SELECT id, name, surname FROM students WHERE id = ?` + s.dialect.lockClause(txcontext.InTx(ctx)))
	student := &models.Student{}
	err := s.q(ctx).QueryRowContext(ctx, query, int64(id)).Scan(&student.ID, &student.Name, &student.Surname)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("student %d: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, classify(fmt.Errorf("find student: %w", err))
	}

	courses, err := s.courseIDsByStudent(ctx, []int64{int64(id)})
	if err != nil {
		return nil, err
	}
	student.CourseIDs = courses[student.ID]
	return student, nil
}

// DeleteStudent removes the student's enrollments, then the student.
func (s *SQLStore) DeleteStudent(ctx context.Context, id models.StudentID) error {
	return s.RunInTx(ctx, func(ctx context.Context) error {
		q := s.q(ctx)
		if _, err := q.ExecContext(ctx, s.dialect.rebind(`DELETE FROM enrollments WHERE student_id = ?`), int64(id)); err != nil {
			return classify(fmt.Errorf("detach student: %w", err))
		}
		res, err := q.ExecContext(ctx, s.dialect.rebind(`DELETE FROM students WHERE id = ?`), int64(id))
		if err != nil {
			return classify(fmt.Errorf("delete student: %w", err))
		}
		return expectRow(res, "student", int64(id))
	})
}

func (s *SQLStore) ListStudents(ctx context.Context, filter models.StudentFilter) ([]*models.Student, int, error) {
	var conds []string
	var args []any
	if !filter.CourseID.IsZero() {
		conds = append(conds, "EXISTS (SELECT 1 FROM enrollments e WHERE e.student_id = s.id AND e.course_id = ?)")
		args = append(args, int64(filter.CourseID))
	}
	if filter.WithoutCourses {
		conds = append(conds, "NOT EXISTS (SELECT 1 FROM enrollments e WHERE e.student_id = s.id)")
	}
	where := whereClause(conds)

	var total int
	countQuery := s.dialect.rebind(`SELECT COUNT(*) FROM students s` + where)
	if err := s.q(ctx).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, classify(fmt.Errorf("count students: %w", err))
	}

	listQuery := s.dialect.rebind(`SELECT s.id, s.name, s.surname FROM students s` + where + ` ORDER BY s.id LIMIT ? OFFSET ?`)
	rows, err := s.q(ctx).QueryContext(ctx, listQuery, append(args, filter.Page.Size, filter.Page.Offset())...)
	if err != nil {
		return nil, 0, classify(fmt.Errorf("list students: %w", err))
	}
	defer rows.Close()

	var students []*models.Student
	var ids []int64
	for rows.Next() {
		student := &models.Student{}
		if err := rows.Scan(&student.ID, &student.Name, &student.Surname); err != nil {
			return nil, 0, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, student)
		ids = append(ids, int64(student.ID))
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify(fmt.Errorf("iterate students: %w", err))
	}

	courses, err := s.courseIDsByStudent(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, student := range students {
		student.CourseIDs = courses[student.ID]
	}
	return students, total, nil
}

func (s *SQLStore) CreateCourse(ctx context.Context, course *models.Course) error {
	query := s.dialect.rebind(`INSERT INTO courses (name, description, start_date, end_date) VALUES (?, ?, ?, ?) RETURNING id`)
	var id int64
	err := s.q(ctx).QueryRowContext(ctx, query,
		course.Name,
		course.Description,
		models.FormatDate(course.StartDate),
		models.FormatDate(course.EndDate),
	).Scan(&id)
	if err != nil {
		return classify(fmt.Errorf("insert course: %w", err))
	}
	course.ID = models.CourseID(id)
	course.StudentIDs = nil
	return nil
}

func (s *SQLStore) UpdateCourse(ctx context.Context, course *models.Course) error {
	query := s.dialect.rebind(`UPDATE courses SET name = ?, description = ?, start_date = ?, end_date = ? WHERE id = ?`)
	res, err := s.q(ctx).ExecContext(ctx, query,
		course.Name,
		course.Description,
		models.FormatDate(course.StartDate),
		models.FormatDate(course.EndDate),
		int64(course.ID),
	)
	if err != nil {
		return classify(fmt.Errorf("update course: %w", err))
	}
	return expectRow(res, "course", int64(course.ID))
}

func (s *SQLStore) FindCourse(ctx context.Context, id models.CourseID) (*models.Course, error) {
	query := s.dialect.rebind(`SELECT id, name, description, start_date, end_date FROM courses WHERE id = ?` + s.dialect.lockClause(txcontext.InTx(ctx)))
	course := &models.Course{}
	err := s.q(ctx).QueryRowContext(ctx, query, int64(id)).Scan(
		&course.ID,
		&course.Name,
		&course.Description,
		dateColumn{&course.StartDate},
		dateColumn{&course.EndDate},
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("course %d: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, classify(fmt.Errorf("find course: %w", err))
	}

	students, err := s.studentIDsByCourse(ctx, []int64{int64(id)})
	if err != nil {
		return nil, err
	}
	course.StudentIDs = students[course.ID]
	return course, nil
}

// DeleteCourse removes the course's enrollments, then the course.
func (s *SQLStore) DeleteCourse(ctx context.Context, id models.CourseID) error {
	return s.RunInTx(ctx, func(ctx context.Context) error {
		q := s.q(ctx)
		if _, err := q.ExecContext(ctx, s.dialect.rebind(`DELETE FROM enrollments WHERE course_id = ?`), int64(id)); err != nil {
			return classify(fmt.Errorf("detach course: %w", err))
		}
		res, err := q.ExecContext(ctx, s.dialect.rebind(`DELETE FROM courses WHERE id = ?`), int64(id))
		if err != nil {
			return classify(fmt.Errorf("delete course: %w", err))
		}
		return expectRow(res, "course", int64(id))
	})
}

func (s *SQLStore) ListCourses(ctx context.Context, filter models.CourseFilter) ([]*models.Course, int, error) {
	var conds []string
	var args []any
	if !filter.StudentID.IsZero() {
		conds = append(conds, "EXISTS (SELECT 1 FROM enrollments e WHERE e.course_id = c.id AND e.student_id = ?)")
		args = append(args, int64(filter.StudentID))
	}
	if filter.WithoutStudents {
		conds = append(conds, "NOT EXISTS (SELECT 1 FROM enrollments e WHERE e.course_id = c.id)")
	}
	where := whereClause(conds)

	var total int
	countQuery := s.dialect.rebind(`SELECT COUNT(*) FROM courses c` + where)
	if err := s.q(ctx).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, classify(fmt.Errorf("count courses: %w", err))
	}

	listQuery := s.dialect.rebind(`SELECT c.id, c.name, c.description, c.start_date, c.end_date FROM courses c` + where + ` ORDER BY c.id LIMIT ? OFFSET ?`)
	rows, err := s.q(ctx).QueryContext(ctx, listQuery, append(args, filter.Page.Size, filter.Page.Offset())...)
	if err != nil {
		return nil, 0, classify(fmt.Errorf("list courses: %w", err))
	}
	defer rows.Close()

	var courses []*models.Course
	var ids []int64
	for rows.Next() {
		course := &models.Course{}
		if err := rows.Scan(&course.ID, &course.Name, &course.Description, dateColumn{&course.StartDate}, dateColumn{&course.EndDate}); err != nil {
			return nil, 0, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, course)
		ids = append(ids, int64(course.ID))
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify(fmt.Errorf("iterate courses: %w", err))
	}

	students, err := s.studentIDsByCourse(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, course := range courses {
		course.StudentIDs = students[course.ID]
	}
	return courses, total, nil
}

// SaveEnrollment inserts the join row. Both sides of the association read
// from it, so one insert updates both. An existing row is left untouched.
func (s *SQLStore) SaveEnrollment(ctx context.Context, e models.Enrollment) error {
	query := s.dialect.rebind(`INSERT INTO enrollments (student_id, course_id, enrolled_at_ms) VALUES (?, ?, ?)
		ON CONFLICT (student_id, course_id) DO NOTHING`)
	_, err := s.q(ctx).ExecContext(ctx, query, int64(e.StudentID), int64(e.CourseID), e.EnrolledAt.UTC().UnixMilli())
	if err != nil {
		return classify(fmt.Errorf("insert enrollment: %w", err))
	}
	return nil
}

func (s *SQLStore) DeleteEnrollment(ctx context.Context, studentID models.StudentID, courseID models.CourseID) error {
	query := s.dialect.rebind(`DELETE FROM enrollments WHERE student_id = ? AND course_id = ?`)
	res, err := s.q(ctx).ExecContext(ctx, query, int64(studentID), int64(courseID))
	if err != nil {
		return classify(fmt.Errorf("delete enrollment: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete enrollment rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("enrollment %d/%d: %w", studentID, courseID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *SQLStore) courseIDsByStudent(ctx context.Context, studentIDs []int64) (map[models.StudentID][]models.CourseID, error) {
	out := make(map[models.StudentID][]models.CourseID, len(studentIDs))
	if len(studentIDs) == 0 {
		return out, nil
	}
	clause, args := s.dialect.inInt64("student_id", studentIDs)
	query := s.dialect.rebind(`SELECT student_id, course_id FROM enrollments WHERE ` + clause + ` ORDER BY enrolled_at_ms, course_id`)
	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("load student enrollments: %w", err))
	}
	defer rows.Close()
	for rows.Next() {
		var sid, cid int64
		if err := rows.Scan(&sid, &cid); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		out[models.StudentID(sid)] = append(out[models.StudentID(sid)], models.CourseID(cid))
	}
	return out, rows.Err()
}

func (s *SQLStore) studentIDsByCourse(ctx context.Context, courseIDs []int64) (map[models.CourseID][]models.StudentID, error) {
	out := make(map[models.CourseID][]models.StudentID, len(courseIDs))
	if len(courseIDs) == 0 {
		return out, nil
	}
	clause, args := s.dialect.inInt64("course_id", courseIDs)
	query := s.dialect.rebind(`SELECT course_id, student_id FROM enrollments WHERE ` + clause + ` ORDER BY enrolled_at_ms, student_id`)
	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("load course enrollments: %w", err))
	}
	defer rows.Close()
	for rows.Next() {
		var cid, sid int64
		if err := rows.Scan(&cid, &sid); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		out[models.CourseID(cid)] = append(out[models.CourseID(cid)], models.StudentID(sid))
	}
	return out, rows.Err()
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func expectRow(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", entity, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", entity, id, sentinel.ErrNotFound)
	}
	return nil
}

// dateColumn scans DATE (Postgres) and TEXT (SQLite) columns into a calendar date.
type dateColumn struct {
	t *time.Time
}

func (d dateColumn) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d.t = models.DateOf(v)
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("unsupported date column type %T", src)
	}
}

func (d dateColumn) parse(raw string) error {
	if len(raw) > len(models.DateLayout) {
		raw = raw[:len(models.DateLayout)]
	}
	t, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", raw, err)
	}
	*d.t = t
	return nil
}
