package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nextgendevs/ng-backend/internal/models"
)

func f(v float64) *float64 { return &v }

func TestClassify(t *testing.T) {
	tests := []struct {
		name                string
		tds, temp, turb, ph *float64
		want                models.RiskLevel
	}{
		// 0 + 1 + 1 + 1 = 3
		{"clean warm water", f(500), f(20), f(10), f(7.5), models.RiskLow},
		// 2 + 3 + 6 + 5 = 16
		{"everything bad", f(2600), f(10), f(500), f(6.5), models.RiskHigh},
		// 1 + 1 + 3 + 1 = 6
		{"moderate boundary", f(2000), f(14), f(20), f(7.5), models.RiskModerate},
		// 0 + 1 + 3 + 3 = 7
		{"cool and slightly alkaline", f(1000), f(12), f(10), f(7.9), models.RiskModerate},
		// 0 + 0 + 1 + 1: turbidity 100 with tds above 400 scores nothing
		{"turbidity band gated on tds", f(1000), f(20), f(100), f(7.5), models.RiskLow},
		// 0 + 2 + 1 + 1 = 4
		{"turbidity band with low tds", f(300), f(20), f(100), f(7.5), models.RiskLow},
		// 0 + 1 + 6 + (3+1) = 11: ph exactly 7.2 hits both bands
		{"ph on band edge", f(1000), f(11), f(10), f(7.2), models.RiskHigh},
		// 2 + 1 + 3 + 5 = 11
		{"just over ten", f(3000), f(16), f(1), f(8.5), models.RiskHigh},
		// 1 + 3 + 3 + 3 = 10
		{"exactly ten", f(1500), f(13), f(401), f(7), models.RiskModerate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.tds, tt.temp, tt.turb, tt.ph))
		})
	}
}

func TestClassify_MissingInputIsUnknown(t *testing.T) {
	assert.Equal(t, models.RiskUnknown, Classify(nil, f(20), f(10), f(7.5)))
	assert.Equal(t, models.RiskUnknown, Classify(f(500), nil, f(10), f(7.5)))
	assert.Equal(t, models.RiskUnknown, Classify(f(500), f(20), nil, f(7.5)))
	assert.Equal(t, models.RiskUnknown, Classify(f(500), f(20), f(10), nil))
	assert.Equal(t, models.RiskUnknown, Classify(nil, nil, nil, nil))
}

func TestClassify_ZeroIsUnknown(t *testing.T) {
	assert.Equal(t, models.RiskUnknown, Classify(f(500), f(0), f(10), f(7.5)))
	assert.Equal(t, models.RiskUnknown, Classify(f(0), f(20), f(10), f(7.5)))
}
