package push

// RateController adapts the session's concurrency window to observed
// network conditions, congestion-control style: additive growth on
// success, multiplicative shedding on overload. The window is always
// within [1, max].
type RateController struct {
	window    int
	max       int
	successes int // consecutive successful completions
	overloads int // consecutive overload failures
}

// NewRateController creates a controller with the given ceiling. The
// window starts at 1 and has to earn its way up.
func NewRateController(max int) *RateController {
	if max < 1 {
		max = 1
	}
	return &RateController{window: 1, max: max}
}

// Window returns the current allowed number of in-flight operations.
func (r *RateController) Window() int { return r.window }

// Max returns the configured ceiling.
func (r *RateController) Max() int { return r.max }

// Success records a completed operation and grows the window by one.
func (r *RateController) Success() {
	r.successes++
	r.overloads = 0
	if r.window < r.max {
		r.window++
	}
}

// Overload records a timeout, connection failure or server error and
// halves the window. Non-overload failures never reach the controller;
// they go straight to the fatal path.
func (r *RateController) Overload() {
	r.overloads++
	r.successes = 0
	r.window /= 2
	if r.window < 1 {
		r.window = 1
	}
}
