package sanitizer

// NormalizeStringSlice applies normalize to every item and drops blanks and
// duplicates, keeping first-seen order. The result is never nil.
func NormalizeStringSlice(items []string, normalize func(string) string) []string {
	result := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for _, item := range items {
		n := normalize(item)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		result = append(result, n)
	}
	return result
}

// NormalizeFacilities is applied to the facility list of every request.
func NormalizeFacilities(names []string) []string {
	return NormalizeStringSlice(names, NormalizeFacilityName)
}

// NormalizeUserIDs is used for the configured VIP list.
func NormalizeUserIDs(ids []string) []string {
	return NormalizeStringSlice(ids, NormalizeUserID)
}
