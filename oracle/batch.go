package oracle

// splitInBatches cuts items into consecutive batches of at most size
// elements, keeping their order.
func splitInBatches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	batches := make([][]T, 0, (len(items)+size-1)/max(size, 1))
	for len(items) > 0 {
		n := min(size, len(items))
		batches = append(batches, items[:n])
		items = items[n:]
	}
	return batches
}
