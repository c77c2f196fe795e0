package fdcheck

import (
	"time"

	"github.com/sirupsen/logrus"
)

func LogReporterClock(log logrus.FieldLogger, every time.Duration, now func() time.Time) Reporter {
	r := LogReporter(log, every).(*logReporter)
	r.now = now
	return r
}
