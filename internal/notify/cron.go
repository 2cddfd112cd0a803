package notify

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseCron validates a 5-field cron expression.
func ParseCron(expr string) (cron.Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("notify: cron %q: %w", expr, err)
	}
	return sched, nil
}

// NextCronDuration parses a 5-field cron expression and returns the duration
// until the next fire time. Returns 0 on parse error.
func NextCronDuration(expr string) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	next := sched.Next(time.Now())
	d := time.Until(next)
	if d < 0 {
		return 0
	}
	return d
}
