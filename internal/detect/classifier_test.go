// SPDX-License-Identifier: MIT
package detect

import (
	"errors"
	"testing"

	"clapper/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModel returns a fixed probability vector and records its input.
type fakeModel struct {
	inputSize int
	probs     []float32
	err       error
	seen      []float32
}

func (m *fakeModel) InputSize() int { return m.inputSize }
func (m *fakeModel) Labels() int    { return len(m.probs) }

func (m *fakeModel) Run(features, probs []float32) error {
	m.seen = features
	if m.err != nil {
		return m.err
	}
	copy(probs, m.probs)
	return nil
}

func voiceMapping() LabelMapping {
	return LabelMapping{
		Threshold: config.DefaultClassThreshold,
		OnLabel:   config.DefaultClassOnLabel,
		OffLabel:  config.DefaultClassOffLabel,
	}
}

func TestClassifierMapping(t *testing.T) {
	tests := []struct {
		name  string
		probs []float32
		want  Kind
	}{
		{"go", []float32{0.95, 0.03, 0.02}, TriggerOn},
		{"stop", []float32{0.02, 0.03, 0.95}, TriggerOff},
		{"noise label", []float32{0.02, 0.96, 0.02}, NoEvent},
		{"below threshold", []float32{0.85, 0.1, 0.05}, NoEvent},
		{"exactly threshold", []float32{0.9, 0.05, 0.05}, NoEvent},
		{"later label wins", []float32{0.95, 0, 0.95}, TriggerOff},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeModel{inputSize: 4, probs: tt.probs}
			d, err := NewClassifierDetector(m, 4, voiceMapping())
			require.NoError(t, err)

			c, err := d.Classify([]float64{1, -1, 0.5, 0})
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Kind)
			assert.Equal(t, []float32{1, -1, 0.5, 0}, m.seen)
			assert.Len(t, d.Probabilities(), 3)
		})
	}
}

func TestClassifierInputSizeMismatch(t *testing.T) {
	m := &fakeModel{inputSize: 16000, probs: make([]float32, 3)}
	_, err := NewClassifierDetector(m, config.DefaultWindowSize, voiceMapping())
	assert.ErrorIs(t, err, ErrInputSizeMismatch)

	m.inputSize = 4
	d, err := NewClassifierDetector(m, 4, voiceMapping())
	require.NoError(t, err)
	_, err = d.Classify(make([]float64, 5))
	assert.ErrorIs(t, err, ErrInputSizeMismatch)
}

func TestClassifierFailure(t *testing.T) {
	boom := errors.New("tensor arena exhausted")
	m := &fakeModel{inputSize: 4, probs: make([]float32, 3), err: boom}
	d, err := NewClassifierDetector(m, 4, voiceMapping())
	require.NoError(t, err)

	_, err = d.Classify(make([]float64, 4))
	assert.ErrorIs(t, err, ErrClassifierFailed)
	assert.ErrorIs(t, err, boom)
}

func TestClassifierBadMapping(t *testing.T) {
	m := &fakeModel{inputSize: 4, probs: make([]float32, 2)}
	_, err := NewClassifierDetector(m, 4, voiceMapping())
	assert.Error(t, err, "off label 2 does not exist in a two-label model")

	_, err = NewClassifierDetector(&fakeModel{inputSize: 4}, 4, voiceMapping())
	assert.Error(t, err)
}

func TestClassifierDisabledLabel(t *testing.T) {
	mapping := voiceMapping()
	mapping.OffLabel = -1
	m := &fakeModel{inputSize: 2, probs: []float32{0, 0, 0.99}}
	d, err := NewClassifierDetector(m, 2, mapping)
	require.NoError(t, err)

	c, err := d.Classify(make([]float64, 2))
	require.NoError(t, err)
	assert.Equal(t, NoEvent, c.Kind)
}
