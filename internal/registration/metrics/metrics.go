package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration module.
// Enrollment outcomes are labelled with the rule that decided them.
type Metrics struct {
	EnrollmentOutcomes *prometheus.CounterVec
	EnrollDuration     prometheus.Histogram
	Unenrollments      prometheus.Counter
	StudentsCreated    prometheus.Counter
	CoursesCreated     prometheus.Counter
	CascadeDetached    *prometheus.CounterVec
	TxRetries          prometheus.Counter
}

// New registers the registration metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EnrollmentOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_enrollment_outcomes_total",
			Help: "Enrollment attempts by outcome (success or the rejecting rule)",
		}, []string{"outcome"}),
		EnrollDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "registrar_enroll_duration_seconds",
			Help:    "Duration of Enroll operations including the transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		Unenrollments: f.NewCounter(prometheus.CounterOpts{
			Name: "registrar_unenrollments_total",
			Help: "Total number of successful unenrollments",
		}),
		StudentsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "registrar_students_created_total",
			Help: "Total number of students created",
		}),
		CoursesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "registrar_courses_created_total",
			Help: "Total number of courses created",
		}),
		CascadeDetached: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_cascade_deletes_total",
			Help: "Entity deletions that cascaded through enrollments, by entity kind",
		}, []string{"entity"}),
		TxRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "registrar_tx_conflict_retries_total",
			Help: "Transactions retried after a write conflict",
		}),
	}
}

func (m *Metrics) RecordEnrollment(outcome string, start time.Time) {
	m.EnrollmentOutcomes.WithLabelValues(outcome).Inc()
	m.EnrollDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementUnenrollments()   { m.Unenrollments.Inc() }
func (m *Metrics) IncrementStudentsCreated() { m.StudentsCreated.Inc() }
func (m *Metrics) IncrementCoursesCreated()  { m.CoursesCreated.Inc() }
func (m *Metrics) IncrementTxRetries()       { m.TxRetries.Inc() }

func (m *Metrics) IncrementCascadeDelete(entity string) {
	m.CascadeDetached.WithLabelValues(entity).Inc()
}
