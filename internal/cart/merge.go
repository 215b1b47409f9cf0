package cart

// MergeLines folds a guest cart into a server cart on login. Quantities
// sum where both carts hold the same product; otherwise the union is
// kept. Server lines keep their order, guest-only lines are appended in
// their own order. Product details on overlapping lines come from the
// server side.
func MergeLines(server, guest []Line) []Line {
	out := make([]Line, len(server))
	copy(out, server)

	index := make(map[string]int, len(out))
	for i, line := range out {
		index[line.ProductID.String()] = i
	}

	for _, line := range guest {
		if i, ok := index[line.ProductID.String()]; ok {
			out[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID.String()] = len(out)
		out = append(out, line)
	}
	return out
}
