package grading

import "fmt"

// Category - приоритет открытого курса при распределении недостающих баллов.
type Category int

const (
	CategorySecondary  Category = iota // не профильный, малый вес
	CategoryCompetency                 // профильный, малый вес
	CategoryStrategic                  // не профильный, большой вес
	CategoryCritical                   // профильный и с большим весом
)

// categoryTable[isPassion][isHighWeight]
var categoryTable = [2][2]Category{
	{CategorySecondary, CategoryStrategic},
	{CategoryCompetency, CategoryCritical},
}

var categoryMultipliers = [...]float64{
	CategorySecondary:  1.0,
	CategoryCompetency: 1.5,
	CategoryStrategic:  2.0,
	CategoryCritical:   3.0,
}

var categoryNames = [...]string{
	CategorySecondary:  "SECONDARY",
	CategoryCompetency: "COMPETENCY",
	CategoryStrategic:  "STRATEGIC",
	CategoryCritical:   "CRITICAL",
}

// Classify сочетает профильность курса и его относительный вес.
func Classify(isPassion, isHighWeight bool) Category {
	return categoryTable[b2i(isPassion)][b2i(isHighWeight)]
}

// Multiplier возвращает множитель приоритета.
func (c Category) Multiplier() float64 {
	if !c.IsValid() {
		return 0
	}
	return categoryMultipliers[c]
}

// IsValid проверяет, что категория известна.
func (c Category) IsValid() bool {
	return c >= CategorySecondary && c <= CategoryCritical
}

func (c Category) String() string {
	if !c.IsValid() {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// MarshalText сериализует категорию её именем.
func (c Category) MarshalText() ([]byte, error) {
	if !c.IsValid() {
		return nil, fmt.Errorf("unknown category %d", int(c))
	}
	return []byte(categoryNames[c]), nil
}

// UnmarshalText разбирает имя категории.
func (c *Category) UnmarshalText(text []byte) error {
	for i, name := range categoryNames {
		if name == string(text) {
			*c = Category(i)
			return nil
		}
	}
	return fmt.Errorf("unknown category %q", string(text))
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
