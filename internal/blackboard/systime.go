package blackboard

import "log"

// syncSystemTime sets the OS clock from the first valid live fix when the
// settings ask for it. It is attempted once per session.
func (b *Blackboard) syncSystemTime() {
	if b.sysTimeSet || !b.settings.Map.SetSystemTimeFromGPS {
		return
	}
	gps := b.basic.GPS
	if gps.Simulator || gps.Replay || gps.NavWarning || b.basic.DateTime.IsZero() {
		return
	}
	b.sysTimeSet = true
	if err := b.setSystemClock(b.basic.DateTime); err != nil {
		log.Printf("system clock sync failed: %v", err)
		return
	}
	log.Printf("system clock set from gps utc=%s", b.basic.DateTime.UTC().Format("2006-01-02T15:04:05Z"))
}
