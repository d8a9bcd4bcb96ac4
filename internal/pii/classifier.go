package pii

import "strings"

// Category tags a column with the kind of personal data its name suggests.
type Category string

const (
	CategoryEmail         Category = "email"
	CategoryPhone         Category = "phone"
	CategoryIPAddress     Category = "ip_address"
	CategoryUserName      Category = "user_name"
	CategoryPostalAddress Category = "postal_address"
	CategoryCardNumber    Category = "card_number"
	CategoryNationalID    Category = "national_id"
)

// rule matches when any of its substrings occur in the lowercased name.
// allOf rules require every substring instead.
type rule struct {
	category Category
	anyOf    []string
	allOf    []string
}

// rules are evaluated independently and in order; a column may collect several tags.
// Matching is plain substring search, so "zip" also trips ip_address.
var rules = []rule{
	{category: CategoryEmail, anyOf: []string{"email"}},
	{category: CategoryPhone, anyOf: []string{"phone", "mobile", "contact"}},
	{category: CategoryIPAddress, anyOf: []string{"ip"}},
	{category: CategoryUserName, allOf: []string{"name", "user"}},
	{category: CategoryPostalAddress, anyOf: []string{"address"}},
	{category: CategoryCardNumber, anyOf: []string{"card", "cc_"}},
	{category: CategoryNationalID, anyOf: []string{"ssn", "nid"}},
}

var highSensitivity = map[Category]bool{
	CategoryEmail:      true,
	CategoryPhone:      true,
	CategoryCardNumber: true,
	CategoryNationalID: true,
}

// Classify returns the PII categories suggested by a column name.
// The result is never nil; an empty slice means the column is not PII.
func Classify(columnName string) []Category {
	name := strings.ToLower(columnName)
	reasons := []Category{}
	for _, r := range rules {
		if r.matches(name) {
			reasons = append(reasons, r.category)
		}
	}
	return reasons
}

func (r rule) matches(name string) bool {
	if len(r.allOf) > 0 {
		for _, s := range r.allOf {
			if !strings.Contains(name, s) {
				return false
			}
		}
		return true
	}
	for _, s := range r.anyOf {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

// IsHighSensitivity reports whether the category counts toward the
// high-sensitivity override in table risk evaluation.
func IsHighSensitivity(c Category) bool {
	return highSensitivity[c]
}

// Categories lists every category in rule order.
func Categories() []Category {
	out := make([]Category, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.category)
	}
	return out
}
