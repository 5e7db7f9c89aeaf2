package calc

import (
	"math"
	"sort"
)

func registerAggregate(r *Registry) {
	const cat = "aggregate"
	r.add(cat, "SUM", numbersFunc(sum), 1, Unbounded)
	r.add(cat, "AVERAGE", numbersFunc(average), 1, Unbounded)
	r.add(cat, "MAX", numbersFunc(maximum), 1, Unbounded)
	r.add(cat, "MIN", numbersFunc(minimum), 1, Unbounded)
	r.add(cat, "MEDIAN", numbersFunc(median), 1, Unbounded)
	r.add(cat, "VAR", numbersFunc(sampleVariance), 1, Unbounded)
	r.add(cat, "VAR.S", numbersFunc(sampleVariance), 1, Unbounded)
	r.add(cat, "VARP", numbersFunc(populationVariance), 1, Unbounded)
	r.add(cat, "VAR.P", numbersFunc(populationVariance), 1, Unbounded)
	r.add(cat, "STDEV", numbersFunc(sampleStdev), 1, Unbounded)
	r.add(cat, "STDEV.S", numbersFunc(sampleStdev), 1, Unbounded)
	r.add(cat, "STDEVP", numbersFunc(populationStdev), 1, Unbounded)
	r.add(cat, "STDEV.P", numbersFunc(populationStdev), 1, Unbounded)
}

// numbersFunc adapts a reducer over the numeric arguments to a Func.
func numbersFunc(reduce func([]float64) float64) Func {
	return func(ctx *Context, args []Expr) (any, error) {
		xs, err := collectNumbers(ctx, args, false)
		if err != nil {
			return nil, err
		}
		return reduce(xs), nil
	}
}

func sum(xs []float64) float64 {
	var total float64
	for _, x := range xs {
		total += x
	}
	return total
}

// average of nothing divides by zero like the spreadsheet does.
func average(xs []float64) float64 {
	return sum(xs) / float64(len(xs))
}

func maximum(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		m = math.Max(m, x)
	}
	return m
}

func minimum(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		m = math.Min(m, x)
	}
	return m
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

func product(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	p := 1.0
	for _, x := range xs {
		p *= x
	}
	return p
}

func squaredDeviations(xs []float64) float64 {
	mean := average(xs)
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return ss
}

func sampleVariance(xs []float64) float64 {
	return squaredDeviations(xs) / float64(len(xs)-1)
}

func populationVariance(xs []float64) float64 {
	return squaredDeviations(xs) / float64(len(xs))
}

func sampleStdev(xs []float64) float64 { return math.Sqrt(sampleVariance(xs)) }

func populationStdev(xs []float64) float64 { return math.Sqrt(populationVariance(xs)) }
