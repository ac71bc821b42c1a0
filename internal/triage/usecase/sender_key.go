package usecase

import "strings"

// NormalizeSenderKey reduces a sender address to the key suppression rules
// match on: case-folded, display and routing artifacts stripped, plus-tags
// removed so "news+march@example.com" and "news@example.com" share a key.
func NormalizeSenderKey(address string) string {
	key := strings.TrimSpace(strings.ToLower(address))

	// Tolerate a full "Name <addr>" header value.
	if idx := strings.LastIndex(key, "<"); idx >= 0 {
		key = strings.Trim(key[idx+1:], " <>")
	}
	key = strings.Trim(key, " <>")

	at := strings.LastIndex(key, "@")
	if at < 0 {
		return key
	}
	local, domain := key[:at], key[at+1:]
	if plus := strings.Index(local, "+"); plus >= 0 {
		local = local[:plus]
	}
	return local + "@" + domain
}

// SenderDomain extracts the domain portion of a sender key.
func SenderDomain(senderKey string) string {
	if at := strings.LastIndex(senderKey, "@"); at >= 0 {
		return senderKey[at+1:]
	}
	return senderKey
}
