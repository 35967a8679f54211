//go:build !linux

package blackboard

import (
	"fmt"
	"time"
)

func setSystemClock(t time.Time) error {
	return fmt.Errorf("setting the system clock is not supported on this platform")
}
