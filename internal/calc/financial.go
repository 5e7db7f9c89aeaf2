package calc

import "math"

const (
	rateMaxIterations = 100
	rateTolerance     = 1e-7
)

func registerFinancial(r *Registry) {
	const cat = "financial"
	r.add(cat, "RATE", rate, 3, 6)
	r.add(cat, "PMT", pmt, 3, 5)
	r.add(cat, "PV", pv, 3, 5)
	r.add(cat, "FV", fv, 3, 5)
}

// annuity is the balance of an annuity's cash flows at rate r; the rate
// that solves a loan makes it zero. typ 1 means payments at period start.
func annuity(r, nper, pmt, pv, fv, typ float64) float64 {
	if r == 0 {
		return pv + pmt*nper + fv
	}
	g := math.Pow(1+r, nper)
	return pv*g + pmt*(1+r*typ)*(g-1)/r + fv
}

// cashflowArgs reads the optional trailing parameters starting at i.
func cashflowArgs(ctx *Context, args []Expr, i int) (a, typ float64, err error) {
	if a, err = optNumber(ctx, args, i, 0); err != nil {
		return 0, 0, err
	}
	if typ, err = optNumber(ctx, args, i+1, 0); err != nil {
		return 0, 0, err
	}
	if typ != 0 {
		typ = 1
	}
	return a, typ, nil
}

// rate solves annuity(r) = 0 by the secant method.
func rate(ctx *Context, args []Expr) (any, error) {
	xs, err := numberArgs(ctx, args[:3])
	if err != nil {
		return nil, err
	}
	nper, payment, present := xs[0], xs[1], xs[2]
	future, typ, err := cashflowArgs(ctx, args, 3)
	if err != nil {
		return nil, err
	}
	guess, err := optNumber(ctx, args, 5, 0.1)
	if err != nil {
		return nil, err
	}

	f := func(r float64) float64 { return annuity(r, nper, payment, present, future, typ) }
	// residuals are judged relative to the size of the cash flows
	scale := math.Max(1, math.Abs(present)+math.Abs(payment*nper)+math.Abs(future))
	r0, r1 := guess, guess*1.1
	if r1 == r0 {
		r1 = r0 + 0.01
	}
	f0 := f(r0)
	for i := 0; i < rateMaxIterations; i++ {
		f1 := f(r1)
		if math.Abs(f1) < rateTolerance*scale {
			return r1, nil
		}
		if f1 == f0 || math.IsNaN(f1) || math.IsInf(f1, 0) {
			break
		}
		r0, f0, r1 = r1, f1, r1-f1*(r1-r0)/(f1-f0)
	}
	ctx.engine.logger.Debug("rate did not converge", "nper", nper, "pmt", payment, "pv", present, "guess", guess)
	return nil, convergenceErr("RATE did not converge within %d iterations", rateMaxIterations)
}

func pmt(ctx *Context, args []Expr) (any, error) {
	xs, err := numberArgs(ctx, args[:3])
	if err != nil {
		return nil, err
	}
	r, nper, present := xs[0], xs[1], xs[2]
	future, typ, err := cashflowArgs(ctx, args, 3)
	if err != nil {
		return nil, err
	}
	if r == 0 {
		return -(present + future) / nper, nil
	}
	g := math.Pow(1+r, nper)
	return -(present*g + future) * r / ((1 + r*typ) * (g - 1)), nil
}

func pv(ctx *Context, args []Expr) (any, error) {
	xs, err := numberArgs(ctx, args[:3])
	if err != nil {
		return nil, err
	}
	r, nper, payment := xs[0], xs[1], xs[2]
	future, typ, err := cashflowArgs(ctx, args, 3)
	if err != nil {
		return nil, err
	}
	// annuity is linear in pv: solve annuity(pv) = 0.
	return -annuity(r, nper, payment, 0, future, typ) / math.Pow(1+r, nper), nil
}

func fv(ctx *Context, args []Expr) (any, error) {
	xs, err := numberArgs(ctx, args[:3])
	if err != nil {
		return nil, err
	}
	r, nper, payment := xs[0], xs[1], xs[2]
	present, typ, err := cashflowArgs(ctx, args, 3)
	if err != nil {
		return nil, err
	}
	return -annuity(r, nper, payment, present, 0, typ), nil
}
