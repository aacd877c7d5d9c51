package tools

import "regexp"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail 只校验 local@domain.tld 的基本形式
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
