package grading

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// REPORT CACHE INTERFACE
// Реализация находится в infrastructure/persistence/redis.
// ══════════════════════════════════════════════════════════════════════════════

// ReportCache хранит уже посчитанные бюллетени и диагностики.
// Кеш вспомогательный: ошибка кеша никогда не должна ломать запрос.
type ReportCache interface {
	// GetBulletin возвращает бюллетень зачисления; ok == false при промахе.
	GetBulletin(ctx context.Context, enrollmentID string) (b Bulletin, ok bool, err error)

	// SetBulletin сохраняет бюллетень.
	SetBulletin(ctx context.Context, b Bulletin) error

	// GetDiagnostic возвращает диагностику студента; ok == false при промахе.
	GetDiagnostic(ctx context.Context, studentID string) (d Diagnostic, ok bool, err error)

	// SetDiagnostic сохраняет диагностику.
	SetDiagnostic(ctx context.Context, d Diagnostic) error

	// Invalidate сбрасывает бюллетень одного зачисления.
	Invalidate(ctx context.Context, enrollmentID string) error

	// InvalidateStudent сбрасывает диагностику и все бюллетени студента.
	InvalidateStudent(ctx context.Context, studentID string) error
}
