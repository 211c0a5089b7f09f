package domain

// Set-typed collections are compared order-independently; their elements
// are small value structs, so multiset comparison by counting suffices.

func equalUIDSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, uid := range a {
		counts[uid]++
	}
	for _, uid := range b {
		counts[uid]--
		if counts[uid] < 0 {
			return false
		}
	}
	return true
}

func equalUIDSequences(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalAliasSets(a, b []Alias) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[Alias]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		counts[v]--
		if counts[v] < 0 {
			return false
		}
	}
	return true
}

func equalDescriptionSets(a, b []Description) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[Description]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		counts[v]--
		if counts[v] < 0 {
			return false
		}
	}
	return true
}

func equalExpressionSets(a, b []FormalExpression) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[FormalExpression]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		counts[v]--
		if counts[v] < 0 {
			return false
		}
	}
	return true
}
