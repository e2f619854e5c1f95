package models

// TaskComplexity represents the classified complexity of a generation request.
type TaskComplexity string

const (
	// ComplexitySimple is for short questions and validations that the
	// cheapest model can answer.
	ComplexitySimple TaskComplexity = "simple"
	// ComplexityStandard is the balanced default for single-document work.
	ComplexityStandard TaskComplexity = "standard"
	// ComplexityComplex is for multi-file, architectural, or very long requests.
	ComplexityComplex TaskComplexity = "complex"
)

// Valid returns true if the complexity is a known value.
func (c TaskComplexity) Valid() bool {
	switch c {
	case ComplexitySimple, ComplexityStandard, ComplexityComplex:
		return true
	default:
		return false
	}
}
