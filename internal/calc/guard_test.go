package calc

// depth reports how many references are in progress.
func (g *guard) depth() int { return len(g.active) }
