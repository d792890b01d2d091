package grading

import (
	"github.com/campus-hub/grade-engine/internal/domain/curriculum"
	"github.com/campus-hub/grade-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESULT RECORDS
// ══════════════════════════════════════════════════════════════════════════════

// CourseResult - строка бюллетеня для одного курса (ECUE).
type CourseResult struct {
	CourseID    string  `json:"course_id"`
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Coefficient float64 `json:"coefficient"`
	Average     float64 `json:"average"`
}

// UnitResult - строка бюллетеня для UE.
type UnitResult struct {
	UnitID    string         `json:"unit_id"`
	Code      string         `json:"code"`
	Name      string         `json:"name"`
	Credits   float64        `json:"credits"`
	Average   float64        `json:"average"`
	Validated bool           `json:"validated"`
	Courses   []CourseResult `json:"courses"`
}

// Bulletin - итоговая ведомость зачисления.
type Bulletin struct {
	EnrollmentID     string       `json:"enrollment_id"`
	StudentID        string       `json:"student_id"`
	StudentName      string       `json:"student_name"`
	AcademicYear     string       `json:"academic_year"`
	StructureCode    string       `json:"structure_code,omitempty"`
	StructureName    string       `json:"structure_name,omitempty"`
	Units            []UnitResult `json:"units"`
	OverallAverage   float64      `json:"overall_average"`
	CreditsAttempted float64      `json:"credits_attempted"`
	CreditsValidated float64      `json:"credits_validated"`
}

// ══════════════════════════════════════════════════════════════════════════════
// AGGREGATION
// ══════════════════════════════════════════════════════════════════════════════

// CourseAverage - взвешенная средняя курса с полной точностью.
// Тип контроля без оценок даёт 0 и тянет среднюю вниз на свою долю.
func CourseAverage(c curriculum.Course, grades map[string]float64) float64 {
	means := KindMeans(c, grades)
	var avg float64
	for _, kind := range curriculum.AllEvalKinds() {
		avg += means[kind].Mean * c.Weights.Of(kind)
	}
	return avg
}

// UnitAverage - средняя UE, взвешенная коэффициентами курсов.
// Без курсов или при нулевой сумме коэффициентов возвращает 0.
func UnitAverage(u curriculum.ProgramUnit, grades map[string]float64) float64 {
	avg, _ := unitAverage(u, grades)
	return avg
}

func unitAverage(u curriculum.ProgramUnit, grades map[string]float64) (float64, []float64) {
	courseAvgs := make([]float64, len(u.Courses))
	var weighted, coefSum float64
	for i, c := range u.Courses {
		courseAvgs[i] = CourseAverage(c, grades)
		weighted += courseAvgs[i] * c.Coefficient
		coefSum += c.Coefficient
	}
	if coefSum == 0 {
		return 0, courseAvgs
	}
	return weighted / coefSum, courseAvgs
}

// ComputeBulletin строит бюллетень зачисления.
// Зачисление без учебного плана даёт пустой бюллетень с нулевыми средними.
func ComputeBulletin(e *curriculum.Enrollment) Bulletin {
	b := Bulletin{
		EnrollmentID: e.ID,
		StudentID:    e.StudentID,
		StudentName:  e.StudentName,
		AcademicYear: e.AcademicYear,
		Units:        []UnitResult{},
	}
	if e.Structure == nil {
		return b
	}
	b.StructureCode = e.Structure.Code
	b.StructureName = e.Structure.Name

	grades := e.GradeIndex()

	var weighted, creditSum, validated float64
	for _, u := range e.Structure.Units {
		avg, courseAvgs := unitAverage(u, grades)
		passed := avg >= shared.PassMark
		if passed {
			validated += u.Credits
		}
		weighted += avg * u.Credits
		creditSum += u.Credits

		ur := UnitResult{
			UnitID:    u.ID,
			Code:      u.Code,
			Name:      u.Name,
			Credits:   u.Credits,
			Average:   shared.Round2(avg),
			Validated: passed,
			Courses:   make([]CourseResult, len(u.Courses)),
		}
		for i, c := range u.Courses {
			ur.Courses[i] = CourseResult{
				CourseID:    c.ID,
				Code:        c.Code,
				Name:        c.Name,
				Coefficient: c.Coefficient,
				Average:     shared.Round2(courseAvgs[i]),
			}
		}
		b.Units = append(b.Units, ur)
	}

	if creditSum > 0 {
		b.OverallAverage = shared.Round2(weighted / creditSum)
	}
	b.CreditsAttempted = creditSum
	b.CreditsValidated = validated
	return b
}
