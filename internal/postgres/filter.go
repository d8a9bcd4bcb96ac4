package postgres

import "strings"

// SchemaFilter narrows introspection to a subset of user schemas.
// System schemas are always excluded.
type SchemaFilter struct {
	Include []string
	Exclude []string
}

// ResolveSchemas normalizes schema filter values.
// Empty input, "all" or "*" mean "all non-system schemas" and yield nil.
func ResolveSchemas(schemas []string) []string {
	if len(schemas) == 0 {
		return nil
	}
	for _, s := range schemas {
		lower := strings.ToLower(strings.TrimSpace(s))
		if lower == "all" || lower == "*" {
			return nil
		}
	}
	result := make([]string, 0, len(schemas))
	for _, s := range schemas {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// args returns the query parameters for the include and exclude lists.
// A nil slice is sent as SQL NULL, which disables that clause.
func (f SchemaFilter) args() (include, exclude []string) {
	include = ResolveSchemas(f.Include)
	for _, s := range f.Exclude {
		s = strings.TrimSpace(s)
		if s != "" {
			exclude = append(exclude, s)
		}
	}
	return include, exclude
}
