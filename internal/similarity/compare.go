package similarity

import (
	"strings"
	"unicode/utf8"
)

const (
	minPrefixSurnameLen  = 4
	maxSurnameTypos      = 2
	surnameTypoPenalty   = 5
	givenNameStepPenalty = 10
)

type Result struct {
	Score int  `json:"score"`
	Exact bool `json:"exact"`
	Safe  bool `json:"safe"`
}

// CompareNames scores two person names written surname first. The first
// applicable rule wins: identical, same surname, abbreviated surname, surname
// typo. Anything else is no match.
func CompareNames(name1, name2 string, threshold int, opts Options) Result {
	n1 := Normalize(name1, opts)
	n2 := Normalize(name2, opts)
	if n1 == "" || n2 == "" {
		return Result{}
	}
	if n1 == n2 {
		return Result{Score: 100, Exact: true, Safe: true}
	}

	surname1, given1 := splitName(n1)
	surname2, given2 := splitName(n2)
	surnameOnly := given1 == "" || given2 == ""
	bothSingle := given1 == "" && given2 == ""

	// Two single-token names with the same surname are identical, so only
	// the mixed case reaches here.
	if surname1 == surname2 {
		if surnameOnly {
			return Result{Score: 70, Safe: true}
		}
		return givenNameResult(given1, given2, threshold, 100, 0)
	}

	if isAbbreviatedSurname(surname1, surname2) {
		if surnameOnly {
			if bothSingle {
				return Result{Score: 85, Safe: true}
			}
			return Result{Score: 65, Safe: true}
		}
		return givenNameResult(given1, given2, threshold, 90, 0)
	}

	if strings.HasPrefix(surname1, surname2) || strings.HasPrefix(surname2, surname1) {
		return Result{}
	}

	surnameDistance := EditDistance(surname1, surname2)
	if surnameDistance > maxSurnameTypos || surnameOnly {
		return Result{}
	}
	return givenNameResult(given1, given2, threshold, 100, surnameTypoPenalty*surnameDistance)
}

func givenNameResult(given1, given2 string, threshold, base, penalty int) Result {
	d := EditDistance(given1, given2)
	if d > threshold {
		return Result{}
	}
	return Result{Score: max(base-givenNameStepPenalty*d-penalty, 0), Safe: true}
}

func isAbbreviatedSurname(a, b string) bool {
	shorter, longer := a, b
	if utf8.RuneCountInString(shorter) > utf8.RuneCountInString(longer) {
		shorter, longer = longer, shorter
	}
	if utf8.RuneCountInString(shorter) < minPrefixSurnameLen {
		return false
	}
	return strings.HasPrefix(longer, shorter)
}
