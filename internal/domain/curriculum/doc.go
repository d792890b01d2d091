// Package curriculum содержит модель учебного плана, которую читает движок оценок.
//
// Пакет определяет:
//
//   - Сущности: ProgramStructure (класс), ProgramUnit (UE), Course (ECUE),
//     Evaluation, Grade, Enrollment, Student, Skill, TargetDomain
//   - Value Objects: EvalKind, KindWeights
//   - Интерфейс репозитория: Repository
//
// # Владение данными
//
// Все сущности принадлежат слою хранения. Движок (пакет grading) получает
// уже загруженный снимок и никогда его не изменяет. Репозиторий обязан
// отдавать согласованный снимок одного зачисления за один вызов.
//
// # Иерархия
//
//	Enrollment -> ProgramStructure -> ProgramUnit -> Course -> Evaluation
//	                                                              \-> Grade (0..1 на зачисление)
//	Student -> TargetDomain -> Skill -> Course
package curriculum
