// Package quality maps requested quality tiers to resolution caps and
// metering event names, and classifies delivered resolutions back into tiers
// so charges track what was actually produced.
package quality

import "time"

// Tier is one of the ordered quality tiers.
type Tier string

const (
	Tier360  Tier = "360p"
	Tier480  Tier = "480p"
	Tier720  Tier = "720p"
	Tier1080 Tier = "1080p"
)

// Metering event names reported to the billing sink.
const (
	EventRunStarted    = "run_started"
	EventClipProcessed = "clip_processed" // flat-rate event, also the fallback-tier surcharge
)

// Config pairs a tier's resolution cap with its tier-priced metering event.
type Config struct {
	MaxHeight int
	Event     string
}

var configs = map[Tier]Config{
	Tier360:  {MaxHeight: 360, Event: "clip_processed_360p"},
	Tier480:  {MaxHeight: 480, Event: "clip_processed_480p"},
	Tier720:  {MaxHeight: 720, Event: "clip_processed_720p"},
	Tier1080: {MaxHeight: 1080, Event: "clip_processed_1080p"},
}

// Resolve is a pure, total lookup: unknown tiers resolve to 480p.
func Resolve(tier Tier) Config {
	if cfg, ok := configs[tier]; ok {
		return cfg
	}
	return configs[Tier480]
}

// Classify buckets a measured pixel height into the nearest tier at or below
// it. Anything under 480 (including unmeasured 0) is the 360p tier; 1080 and
// above is 1080p. Monotonic in height.
func Classify(height int) Tier {
	switch {
	case height < 480:
		return Tier360
	case height < 720:
		return Tier480
	case height < 1080:
		return Tier720
	default:
		return Tier1080
	}
}

// ChargeableEvent picks the metering event for a delivered clip.
//
// Before the pricing cutover every clip charges the flat event no matter what
// was delivered. From the cutover on, a measured resolution charges the
// observed tier's event; when resolution detection failed (observedHeight 0)
// the requested tier's event is charged instead. It always returns an event,
// never an error.
func ChargeableEvent(requested Tier, observedHeight int, now, cutover time.Time) string {
	if now.Before(cutover) {
		return EventClipProcessed
	}
	if observedHeight > 0 {
		return Resolve(Classify(observedHeight)).Event
	}
	return Resolve(requested).Event
}
