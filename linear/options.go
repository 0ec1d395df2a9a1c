package linear

// Option is a function that configures LinearRegression
type Option func(*LinearRegression)

// WithFitIntercept sets whether to calculate the intercept
func WithFitIntercept(fit bool) Option {
	return func(lr *LinearRegression) {
		lr.fitIntercept = fit
	}
}

// WithRcond sets the relative cutoff below which singular values are treated
// as zero. One-hot blocks with unseen columns make X rank deficient; those
// directions get a zero weight.
func WithRcond(rcond float64) Option {
	return func(lr *LinearRegression) {
		lr.rcond = rcond
	}
}
