package domain

// Category is the closed classification set. Classifier output that does not
// match one of these is coerced to CategoryOther at the adapter boundary.
type Category string

const (
	CategoryPersonal   Category = "Personal"
	CategoryWork       Category = "Work"
	CategoryFinance    Category = "Finance"
	CategoryTravel     Category = "Travel"
	CategoryShopping   Category = "Shopping"
	CategoryMarketing  Category = "Marketing"
	CategoryNewsletter Category = "Newsletter"
	CategorySecurity   Category = "Security"
	CategoryOther      Category = "Other"
)

// Categories lists every valid category in display order. Index positions are
// part of the notifier callback grammar, so the order is stable.
var Categories = []Category{
	CategoryPersonal,
	CategoryWork,
	CategoryFinance,
	CategoryTravel,
	CategoryShopping,
	CategoryMarketing,
	CategoryNewsletter,
	CategorySecurity,
	CategoryOther,
}

// CategoryNames returns the categories as plain strings, in display order.
func CategoryNames() []string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return names
}

// ParseCategory maps a raw string onto the closed set. The second return is
// false when the value was unknown and CategoryOther was substituted.
func ParseCategory(raw string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == raw {
			return c, true
		}
	}
	return CategoryOther, false
}

// CategoryAt returns the category for a keyboard index, or CategoryOther for
// an out-of-range index.
func CategoryAt(idx int) (Category, bool) {
	if idx < 0 || idx >= len(Categories) {
		return CategoryOther, false
	}
	return Categories[idx], true
}
