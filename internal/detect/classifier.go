// SPDX-License-Identifier: MIT
package detect

import "fmt"

// Model is a bound inference engine: features in, one probability per
// label out.
type Model interface {
	InputSize() int
	Labels() int
	// Run fills probs (len Labels) for features (len InputSize).
	Run(features, probs []float32) error
}

// LabelMapping turns a probability vector into a classification. A label
// fires when its probability strictly exceeds Threshold; a negative label
// index disables that mapping.
type LabelMapping struct {
	Threshold float64
	OnLabel   int
	OffLabel  int
}

// ClassifierDetector adapts a Model to the Detector capability.
type ClassifierDetector struct {
	model    Model
	mapping  LabelMapping
	features []float32
	probs    []float32
}

// NewClassifierDetector binds model to windows of windowSize samples. A size
// disagreement is a configuration error and returns ErrInputSizeMismatch.
func NewClassifierDetector(model Model, windowSize int, mapping LabelMapping) (*ClassifierDetector, error) {
	if model.InputSize() != windowSize {
		return nil, fmt.Errorf("%w: window %d, model expects %d", ErrInputSizeMismatch, windowSize, model.InputSize())
	}
	labels := model.Labels()
	if labels <= 0 {
		return nil, fmt.Errorf("classifier reports %d labels", labels)
	}
	if mapping.OnLabel >= labels || mapping.OffLabel >= labels {
		return nil, fmt.Errorf("label mapping (on %d, off %d) outside %d labels", mapping.OnLabel, mapping.OffLabel, labels)
	}
	return &ClassifierDetector{
		model:    model,
		mapping:  mapping,
		features: make([]float32, windowSize),
		probs:    make([]float32, labels),
	}, nil
}

// Classify runs the model once. Labels are scanned in order and the last
// one over threshold wins. Any model error is fatal to the caller.
func (d *ClassifierDetector) Classify(window []float64) (Classification, error) {
	if len(window) != len(d.features) {
		return Classification{}, fmt.Errorf("%w: window %d, model expects %d", ErrInputSizeMismatch, len(window), len(d.features))
	}
	for i, v := range window {
		d.features[i] = float32(v)
	}
	if err := d.model.Run(d.features, d.probs); err != nil {
		return Classification{}, fmt.Errorf("%w: %w", ErrClassifierFailed, err)
	}

	result := Classification{Kind: NoEvent}
	for label, p := range d.probs {
		if float64(p) <= d.mapping.Threshold {
			continue
		}
		switch label {
		case d.mapping.OnLabel:
			result = Classification{Kind: TriggerOn}
		case d.mapping.OffLabel:
			result = Classification{Kind: TriggerOff}
		}
	}
	return result, nil
}

// Probabilities returns the vector from the last run.
func (d *ClassifierDetector) Probabilities() []float32 {
	return d.probs
}
