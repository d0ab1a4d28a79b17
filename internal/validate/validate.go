// Package validate evaluates declarative per-field rules against a parsed
// form. All rules are evaluated; failures are collected into a Result so a
// form can be re-rendered with every problem at once.
package validate

import (
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// FieldError is a single failed check, addressed to the user.
type FieldError struct {
	Field   string
	Message string
}

// Result is the outcome of evaluating a rule set.
type Result struct {
	Errors []FieldError
}

// OK reports whether every rule passed.
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// Messages returns the user-facing messages in rule order.
func (r Result) Messages() []string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

// Rule checks one field of a form. Check returns true when the value passes.
type Rule struct {
	Field   string
	Message string
	Check   func(value string, form url.Values) bool
}

// Evaluate runs every rule against form and collects all failures.
func Evaluate(form url.Values, rules []Rule) Result {
	var res Result
	for _, rule := range rules {
		if !rule.Check(form.Get(rule.Field), form) {
			res.Errors = append(res.Errors, FieldError{Field: rule.Field, Message: rule.Message})
		}
	}
	return res
}

// Required passes when the trimmed value is non-empty.
func Required(field, message string) Rule {
	return Rule{Field: field, Message: message, Check: func(v string, _ url.Values) bool {
		return strings.TrimSpace(v) != ""
	}}
}

// MinLength passes when the trimmed value has at least n characters.
func MinLength(field string, n int, message string) Rule {
	return Rule{Field: field, Message: message, Check: func(v string, _ url.Values) bool {
		return len([]rune(strings.TrimSpace(v))) >= n
	}}
}

// IntRange passes when the trimmed value parses as an integer in [min, max].
func IntRange(field string, min, max int64, message string) Rule {
	return Rule{Field: field, Message: message, Check: func(v string, _ url.Values) bool {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return err == nil && n >= min && n <= max
	}}
}

// In passes when the value is a member of set.
func In(field string, set []string, message string) Rule {
	return Rule{Field: field, Message: message, Check: func(v string, _ url.Values) bool {
		for _, s := range set {
			if v == s {
				return true
			}
		}
		return false
	}}
}

// Match passes when the value matches the pattern.
func Match(field string, pattern *regexp.Regexp, message string) Rule {
	return Rule{Field: field, Message: message, Check: func(v string, _ url.Values) bool {
		return pattern.MatchString(v)
	}}
}

// EqualsField passes when the value equals another field's value.
func EqualsField(field, other, message string) Rule {
	return Rule{Field: field, Message: message, Check: func(v string, form url.Values) bool {
		return v == form.Get(other)
	}}
}

// Email passes when the trimmed value is a parseable address.
func Email(field, message string) Rule {
	return Rule{Field: field, Message: message, Check: func(v string, _ url.Values) bool {
		addr, err := mail.ParseAddress(strings.TrimSpace(v))
		return err == nil && addr.Address == strings.TrimSpace(v)
	}}
}

// PasswordPattern is the required password shape: 8-12 characters, no whitespace.
var PasswordPattern = regexp.MustCompile(`^\S{8,12}$`)
