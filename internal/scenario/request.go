package scenario

import (
	"fmt"
	"strings"
	"time"

	"github.com/hollymaclennan/residual-load-scenarios/pkg/config"
)

// Request selects what an update should compute: the ensemble model,
// an optional explicit issue (nil means latest) and the country set.
// Construct through NewRequest; a zero Request is not valid.
type Request struct {
	Model     config.Model
	Issue     *time.Time
	Countries []string
}

// NewRequest validates the model key against the registry, normalizes
// country codes to upper case and falls back to the default country
// when none are given.
func NewRequest(modelKey string, issue *time.Time, countries []string, defaultCountry string) (Request, error) {
	model, err := config.ModelByKey(modelKey)
	if err != nil {
		return Request{}, err
	}

	if len(countries) == 0 {
		countries = []string{defaultCountry}
	}

	normalized := make([]string, 0, len(countries))
	for _, c := range countries {
		c = strings.ToUpper(strings.TrimSpace(c))
		if !validCountryCode(c) {
			return Request{}, fmt.Errorf("invalid country code %q", c)
		}
		normalized = append(normalized, c)
	}

	return Request{Model: model, Issue: issue, Countries: normalized}, nil
}

func validCountryCode(code string) bool {
	if len(code) < 2 || len(code) > 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
