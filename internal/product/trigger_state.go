package product

import "time"

// TriggerState tracks the confirmation-sample bookkeeping for one policy
// across claims-monitor cycles (spec §3, §4.4).
type TriggerState struct {
	PolicyID           int64
	FirstBelowTimestamp *time.Time
	SamplesBelow       int
	LastCheckTimestamp time.Time
}

// Observe applies one price sample to the trigger state, per spec §4.4
// step 2. now is the sample time and subTrigger reports whether
// current_price < policy.trigger_price for this sample.
func (t *TriggerState) Observe(now time.Time, subTrigger bool) {
	switch {
	case subTrigger && t.SamplesBelow == 0:
		t.SamplesBelow = 1
		ts := now
		t.FirstBelowTimestamp = &ts
	case subTrigger:
		t.SamplesBelow++
	default:
		t.SamplesBelow = 0
		t.FirstBelowTimestamp = nil
	}

	t.LastCheckTimestamp = now
}

// Eligible reports whether enough consecutive sub-trigger samples have
// accumulated to authorize a payout.
func (t *TriggerState) Eligible(confirmationSamplesRequired int) bool {
	return t.SamplesBelow >= confirmationSamplesRequired
}
