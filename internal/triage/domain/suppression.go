package domain

import "time"

// Scope is the matching dimension of a suppression rule.
type Scope string

const (
	ScopeSenderCategory Scope = "sender_category"
	ScopeSender         Scope = "sender"
	ScopeDomain         Scope = "domain"
	ScopeCategory       Scope = "category"
)

// ParseScope maps a raw string onto the closed scope set.
func ParseScope(raw string) (Scope, bool) {
	switch Scope(raw) {
	case ScopeSenderCategory, ScopeSender, ScopeDomain, ScopeCategory:
		return Scope(raw), true
	}
	return "", false
}

// Suppression silences future notifications matching its scope. RuleValue
// holds the sender key or domain depending on scope; CategoryKey is empty for
// scopes that ignore category, and acts as a wildcard when empty under
// category-sensitive scopes.
type Suppression struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	AccountID   string    `json:"account_id" gorm:"index:idx_suppression_rule,unique;not null"`
	Scope       Scope     `json:"scope" gorm:"index:idx_suppression_rule,unique;not null"`
	RuleValue   string    `json:"rule_value" gorm:"index:idx_suppression_rule,unique;not null"`
	CategoryKey string    `json:"category_key" gorm:"index:idx_suppression_rule,unique"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Suppression) TableName() string {
	return "suppressions"
}

// Matches reports whether the rule silences the given candidate.
func (r Suppression) Matches(senderKey string, senderDomain string, category Category) bool {
	switch r.Scope {
	case ScopeSender:
		return r.RuleValue == senderKey
	case ScopeDomain:
		return r.RuleValue == senderDomain
	case ScopeCategory:
		return r.RuleValue == string(category)
	case ScopeSenderCategory:
		if r.RuleValue != senderKey {
			return false
		}
		return r.CategoryKey == "" || r.CategoryKey == string(category)
	}
	return false
}
