package push

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateControllerGrowth(t *testing.T) {
	r := NewRateController(5)
	assert.Equal(t, 1, r.Window())

	for i := 0; i < 10; i++ {
		r.Success()
	}
	assert.Equal(t, 5, r.Window(), "window must stay at the ceiling")
}

func TestRateControllerShedding(t *testing.T) {
	r := NewRateController(16)
	for i := 0; i < 15; i++ {
		r.Success()
	}
	assert.Equal(t, 16, r.Window())

	r.Overload()
	assert.Equal(t, 8, r.Window())
	r.Overload()
	assert.Equal(t, 4, r.Window())

	for i := 0; i < 10; i++ {
		r.Overload()
	}
	assert.Equal(t, 1, r.Window(), "window must not drop below 1")
}

func TestRateControllerBounds(t *testing.T) {
	// Arbitrary success/failure sequences keep the window in [1, max].
	sequences := [][]bool{
		{true, true, false, true, false, false, true},
		{false, false, false},
		{true, true, true, true, true, true, true, true},
		{false, true, false, true, false, true},
	}
	for _, seq := range sequences {
		r := NewRateController(4)
		for _, ok := range seq {
			if ok {
				r.Success()
			} else {
				r.Overload()
			}
			assert.GreaterOrEqual(t, r.Window(), 1)
			assert.LessOrEqual(t, r.Window(), 4)
		}
	}
}

func TestRateControllerBadMax(t *testing.T) {
	r := NewRateController(0)
	assert.Equal(t, 1, r.Max())
	r.Success()
	assert.Equal(t, 1, r.Window())
}
