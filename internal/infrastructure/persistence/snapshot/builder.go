// Package snapshot assembles curriculum snapshots from flat SQL rows.
// Both SQL stores read the same relational layout and hand their rows
// to the builders here, so the hierarchy is put together in one place.
package snapshot

import (
	"fmt"

	"github.com/campus-hub/grade-engine/internal/domain/curriculum"
	"github.com/campus-hub/grade-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROWS
// ══════════════════════════════════════════════════════════════════════════════

// UnitRow is one program_units row.
type UnitRow struct {
	ID      string
	Code    string
	Name    string
	Credits float64
}

// CourseRow is one courses row. UnitID is empty for courses reached
// through a skill rather than a structure.
type CourseRow struct {
	ID          string
	UnitID      string
	Code        string
	Name        string
	Coefficient float64
	Weights     curriculum.KindWeights
}

func (r CourseRow) course() curriculum.Course {
	return curriculum.Course{
		ID:          r.ID,
		Code:        r.Code,
		Name:        r.Name,
		Coefficient: r.Coefficient,
		Weights:     r.Weights,
		Evaluations: []curriculum.Evaluation{},
	}
}

// EvaluationRow is one evaluations row. Kind is stored as text and may
// use the legacy labels.
type EvaluationRow struct {
	ID       string
	CourseID string
	Name     string
	Kind     string
}

func (r EvaluationRow) evaluation() (curriculum.Evaluation, error) {
	kind, ok := curriculum.ParseEvalKind(r.Kind)
	if !ok {
		return curriculum.Evaluation{}, corrupt("LoadEvaluation", "evaluation %s has unknown kind %q", r.ID, r.Kind)
	}
	return curriculum.Evaluation{ID: r.ID, Name: r.Name, Kind: kind}, nil
}

// corrupt reports rows that do not fit the curriculum model.
func corrupt(op, format string, args ...any) error {
	return shared.NewDomainError("snapshot", op, shared.ErrCorruptData, fmt.Sprintf(format, args...))
}

// SkillRow is one skill linked to a target domain.
type SkillRow struct {
	ID   string
	Name string
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRAM STRUCTURE
// ══════════════════════════════════════════════════════════════════════════════

type coursePos struct{ unit, course int }

// StructureBuilder collects rows of one program structure. Rows must be
// added parent first and in display order.
type StructureBuilder struct {
	structure curriculum.ProgramStructure
	units     map[string]int
	courses   map[string]coursePos
}

// NewStructureBuilder starts a structure snapshot.
func NewStructureBuilder(id, code, name, level string) *StructureBuilder {
	return &StructureBuilder{
		structure: curriculum.ProgramStructure{
			ID:    id,
			Code:  code,
			Name:  name,
			Level: level,
			Units: []curriculum.ProgramUnit{},
		},
		units:   make(map[string]int),
		courses: make(map[string]coursePos),
	}
}

// AddUnit appends a unit.
func (b *StructureBuilder) AddUnit(r UnitRow) {
	b.units[r.ID] = len(b.structure.Units)
	b.structure.Units = append(b.structure.Units, curriculum.ProgramUnit{
		ID:      r.ID,
		Code:    r.Code,
		Name:    r.Name,
		Credits: r.Credits,
		Courses: []curriculum.Course{},
	})
}

// AddCourse appends a course to its unit.
func (b *StructureBuilder) AddCourse(r CourseRow) error {
	ui, ok := b.units[r.UnitID]
	if !ok {
		return corrupt("AddCourse", "course %s references unknown unit %s", r.ID, r.UnitID)
	}
	unit := &b.structure.Units[ui]
	b.courses[r.ID] = coursePos{unit: ui, course: len(unit.Courses)}
	unit.Courses = append(unit.Courses, r.course())
	return nil
}

// AddEvaluation appends an evaluation to its course.
func (b *StructureBuilder) AddEvaluation(r EvaluationRow) error {
	pos, ok := b.courses[r.CourseID]
	if !ok {
		return corrupt("AddEvaluation", "evaluation %s references unknown course %s", r.ID, r.CourseID)
	}
	ev, err := r.evaluation()
	if err != nil {
		return err
	}
	c := &b.structure.Units[pos.unit].Courses[pos.course]
	c.Evaluations = append(c.Evaluations, ev)
	return nil
}

// Build returns the assembled structure.
func (b *StructureBuilder) Build() *curriculum.ProgramStructure {
	s := b.structure
	return &s
}

// ══════════════════════════════════════════════════════════════════════════════
// TARGET DOMAIN
// ══════════════════════════════════════════════════════════════════════════════

// DomainBuilder collects the skills of one target domain and the courses
// teaching them. A course may teach several skills; its evaluations are
// attached to every copy.
type DomainBuilder struct {
	domain  curriculum.TargetDomain
	skills  map[string]int
	courses map[string][]coursePos
}

// NewDomainBuilder starts a target domain snapshot.
func NewDomainBuilder(id, name, description string) *DomainBuilder {
	return &DomainBuilder{
		domain: curriculum.TargetDomain{
			ID:             id,
			Name:           name,
			Description:    description,
			RequiredSkills: []curriculum.Skill{},
		},
		skills:  make(map[string]int),
		courses: make(map[string][]coursePos),
	}
}

// AddSkill appends a required skill.
func (b *DomainBuilder) AddSkill(r SkillRow) {
	b.skills[r.ID] = len(b.domain.RequiredSkills)
	b.domain.RequiredSkills = append(b.domain.RequiredSkills, curriculum.Skill{
		ID:      r.ID,
		Name:    r.Name,
		Courses: []curriculum.Course{},
	})
}

// AddSkillCourse links a teaching course to a skill.
func (b *DomainBuilder) AddSkillCourse(skillID string, r CourseRow) error {
	si, ok := b.skills[skillID]
	if !ok {
		return corrupt("AddSkillCourse", "course %s linked to unknown skill %s", r.ID, skillID)
	}
	skill := &b.domain.RequiredSkills[si]
	b.courses[r.ID] = append(b.courses[r.ID], coursePos{unit: si, course: len(skill.Courses)})
	skill.Courses = append(skill.Courses, r.course())
	return nil
}

// AddEvaluation attaches an evaluation to every linked copy of its course.
func (b *DomainBuilder) AddEvaluation(r EvaluationRow) error {
	positions, ok := b.courses[r.CourseID]
	if !ok {
		return corrupt("AddEvaluation", "evaluation %s references unlinked course %s", r.ID, r.CourseID)
	}
	ev, err := r.evaluation()
	if err != nil {
		return err
	}
	for _, pos := range positions {
		c := &b.domain.RequiredSkills[pos.unit].Courses[pos.course]
		c.Evaluations = append(c.Evaluations, ev)
	}
	return nil
}

// Build returns the assembled domain.
func (b *DomainBuilder) Build() *curriculum.TargetDomain {
	d := b.domain
	return &d
}
