// Package grading - движок расчёта оценок.
//
// Пакет чистый: принимает загруженные снимки curriculum, ничего не изменяет,
// не логирует и не ходит в хранилище. Результаты - неизменяемые записи
// Bulletin, Diagnostic и SimulationPlan. Округление до двух знаков выполняется
// только при заполнении этих записей.
package grading

import "github.com/campus-hub/grade-engine/internal/domain/curriculum"

// Mean - среднее арифметическое. Для пустого набора возвращает 0.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// KindMean - среднее по одному типу контроля.
type KindMean struct {
	Mean  float64
	Count int
}

// Graded сообщает, есть ли хотя бы одна оценка.
func (k KindMean) Graded() bool {
	return k.Count > 0
}

// KindMeans группирует оценки курса по типу контроля.
// Типы без оценок присутствуют в результате с Count == 0 и Mean == 0.
func KindMeans(c curriculum.Course, grades map[string]float64) map[curriculum.EvalKind]KindMean {
	buckets := make(map[curriculum.EvalKind][]float64, 4)
	for _, ev := range c.Evaluations {
		if v, ok := grades[ev.ID]; ok {
			buckets[ev.Kind] = append(buckets[ev.Kind], v)
		}
	}

	out := make(map[curriculum.EvalKind]KindMean, 4)
	for _, kind := range curriculum.AllEvalKinds() {
		vals := buckets[kind]
		out[kind] = KindMean{Mean: Mean(vals), Count: len(vals)}
	}
	return out
}

// courseGrades возвращает все оценки курса без учёта типа.
func courseGrades(c curriculum.Course, grades map[string]float64) []float64 {
	var vals []float64
	for _, ev := range c.Evaluations {
		if v, ok := grades[ev.ID]; ok {
			vals = append(vals, v)
		}
	}
	return vals
}
