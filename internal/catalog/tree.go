package catalog

// BuildTree links flat records into a forest. parentOf reports a record's
// parent key, or false for roots. Records whose parent is not in the input
// are dropped along with their descendants. Input order is kept among
// siblings.
func BuildTree[T any, K comparable](
	records []T,
	idOf func(*T) K,
	parentOf func(*T) (K, bool),
	attach func(parent, child *T),
) []*T {
	byID := make(map[K]*T, len(records))
	for i := range records {
		byID[idOf(&records[i])] = &records[i]
	}

	roots := []*T{}
	for i := range records {
		rec := &records[i]
		pid, ok := parentOf(rec)
		if !ok {
			roots = append(roots, rec)
			continue
		}
		if parent, found := byID[pid]; found {
			attach(parent, rec)
		}
	}
	return roots
}
