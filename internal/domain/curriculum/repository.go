package curriculum

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Контракт чтения снимков учебного плана.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository отдаёт движку полностью загруженные снимки.
// Все методы только читают данные.
type Repository interface {
	// GetEnrollment возвращает зачисление с планом и оценками.
	// Возвращает shared.ErrEnrollmentNotFound, если зачисление не найдено.
	GetEnrollment(ctx context.Context, enrollmentID string) (*Enrollment, error)

	// GetStudent возвращает студента с направлением, навыками и курсами навыков.
	// Возвращает shared.ErrStudentNotFound, если студент не найден.
	GetStudent(ctx context.Context, studentID string) (*Student, error)

	// GetActiveEnrollment возвращает зачисление текущего учебного года,
	// а если текущий год не отмечен - самое позднее.
	// Возвращает shared.ErrNoEnrollment, если зачислений нет.
	GetActiveEnrollment(ctx context.Context, studentID string) (*Enrollment, error)
}

// HealthChecker реализуется хранилищами, которые умеют проверять соединение.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
