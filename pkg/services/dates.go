package services

import (
	"fmt"
	"strings"
	"time"

	"news-cms/pkg/logging"
)

type dateStrategy struct {
	name    string
	layouts []string
	// prepare may rewrite the input before parsing.
	prepare func(string) string
	// zoned layouts carry their own offset; the rest use the normalizer's location.
	zoned bool
}

// dateStrategies is tried top to bottom; the first layout that parses wins.
var dateStrategies = []dateStrategy{
	{
		name:    "iso8601",
		layouts: []string{time.RFC3339Nano, "2006-01-02T15:04:05-0700", "2006-01-02 15:04:05Z07:00"},
		zoned:   true,
	},
	{
		name:    "datetime",
		layouts: []string{"2006-01-02 15:04:05"},
	},
	{
		name:    "datetime-t",
		layouts: []string{"2006-01-02T15:04:05"},
	},
	{
		name:    "date",
		layouts: []string{"2006-01-02"},
		prepare: func(s string) string {
			if before, _, found := strings.Cut(s, "T"); found {
				return before
			}
			return s
		},
	},
}

// DateNormalizer turns frontmatter and API date values into timestamps.
// It never fails: anything it cannot read becomes the current time.
type DateNormalizer struct {
	now    func() time.Time
	loc    *time.Location
	logger logging.Logger
}

// NewDateNormalizer builds a normalizer interpreting zone-less values in loc.
func NewDateNormalizer(loc *time.Location, logger logging.Logger) *DateNormalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &DateNormalizer{
		now:    time.Now,
		loc:    loc,
		logger: logging.OrNoOp(logger),
	}
}

// Normalize returns the timestamp held by value.
func (n *DateNormalizer) Normalize(value any) time.Time {
	switch v := value.(type) {
	case time.Time:
		if !v.IsZero() {
			return v
		}
	case *time.Time:
		if v != nil && !v.IsZero() {
			return *v
		}
	case string:
		if t, ok := n.parse(v); ok {
			return t
		}
		if strings.TrimSpace(v) != "" {
			n.logger.Warn("date not recognised, using current time", "value", v)
		}
	case fmt.Stringer:
		// TOML local dates and datetimes.
		if t, ok := n.parse(v.String()); ok {
			return t
		}
		n.logger.Warn("date not recognised, using current time", "value", v.String())
	case nil:
	default:
		n.logger.Warn("unexpected date type, using current time", "value", value)
	}
	return n.now().In(n.loc)
}

func (n *DateNormalizer) parse(raw string) (time.Time, bool) {
	raw = strings.Trim(strings.TrimSpace(raw), `"'`)
	if raw == "" {
		return time.Time{}, false
	}
	for _, strategy := range dateStrategies {
		input := raw
		if strategy.prepare != nil {
			input = strategy.prepare(input)
		}
		for _, layout := range strategy.layouts {
			var (
				t   time.Time
				err error
			)
			if strategy.zoned {
				t, err = time.Parse(layout, input)
			} else {
				t, err = time.ParseInLocation(layout, input, n.loc)
			}
			if err == nil {
				n.logger.Debug("parsed date", "value", raw, "strategy", strategy.name)
				return t, true
			}
		}
	}
	return time.Time{}, false
}
