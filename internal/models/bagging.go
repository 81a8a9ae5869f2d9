package models

// Bagging is an ensemble of decision trees fitted on bootstrap samples with
// every feature examined per split.
type Bagging struct {
	RandomForest
}

// type check
var _ Model = (*Bagging)(nil)

// NewBagging returns a bagging ensemble with the default hyperparameters.
func NewBagging() (bg *Bagging) {
	bg = &Bagging{RandomForest: *NewRandomForest()}
	bg.MaxFeatures = -1
	bg.ClassWeight = ""

	return bg
}

// Name implements the [Model] interface for *Bagging.
func (bg *Bagging) Name() (name string) { return "Bagging" }
