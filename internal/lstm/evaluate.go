package lstm

import (
	"github.com/TFMV/VecTrainer/internal/dataset"
	"github.com/TFMV/VecTrainer/internal/nn"
	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
)

// Accuracy is the fraction of correctly predicted samples per class. A
// class with no samples has accuracy 0.
type Accuracy struct {
	Negative float64
	Positive float64
}

// Misclassified records a wrongly predicted sample.
type Misclassified struct {
	TrueLabel dataset.BinaryLabel
	Predicted int
	Category  dataset.CategoryCode
	SourceID  string
	Index     int
}

// Evaluation is the result of one evaluation pass. Confusion is indexed
// [true][predicted]; predictions outside the two classes count as wrong
// and are left out of it.
type Evaluation struct {
	Accuracy
	TrueLabels    []dataset.BinaryLabel
	Predicted     []int
	Confusion     [2][2]int
	Misclassified []Misclassified
}

// Evaluate predicts samples drawn from the test set, or the training set
// when useTest is false, without updating the model.
func (t *Trainer) Evaluate(samples int, useTest, collectMisclassified bool) (*Evaluation, error) {
	if samples <= 0 {
		return nil, apperrors.Configf("evaluate", "test_samples must be positive, got %d", samples)
	}
	src := t.test
	if !useTest {
		src = t.train
	}
	if src == nil {
		return nil, apperrors.Configf("evaluate", "no test set configured")
	}

	ev := &Evaluation{
		TrueLabels: make([]dataset.BinaryLabel, 0, samples),
		Predicted:  make([]int, 0, samples),
	}
	var negCorrect, negTotal, posCorrect, posTotal int
	for j := 0; j < samples; j++ {
		s, err := src.Sample()
		if err != nil {
			return nil, err
		}
		logits, err := t.model.Forward(s.Sequence)
		if err != nil {
			return nil, err
		}
		pred := nn.ArgMax(logits)
		correct := pred == int(s.Label)

		switch s.Label {
		case dataset.Negative:
			negTotal++
			if correct {
				negCorrect++
			}
		case dataset.Positive:
			posTotal++
			if correct {
				posCorrect++
			}
		}
		if pred < 2 {
			ev.Confusion[s.Label][pred]++
		}
		if !correct && collectMisclassified {
			ev.Misclassified = append(ev.Misclassified, Misclassified{
				TrueLabel: s.Label,
				Predicted: pred,
				Category:  s.Category,
				SourceID:  s.SourceID,
				Index:     s.Index,
			})
		}
		ev.TrueLabels = append(ev.TrueLabels, s.Label)
		ev.Predicted = append(ev.Predicted, pred)
	}

	ev.Negative = ratio(negCorrect, negTotal)
	ev.Positive = ratio(posCorrect, posTotal)
	for _, m := range ev.Misclassified {
		t.logger.Info("misclassified %s (index %d, category %d): true %d predicted %d", m.SourceID, m.Index, m.Category, m.TrueLabel, m.Predicted)
	}
	return ev, nil
}

func ratio(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}
