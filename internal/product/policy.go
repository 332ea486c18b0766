package product

import "time"

// PolicyStatus is the lifecycle state of a Policy.
type PolicyStatus string

const (
	PolicyActive    PolicyStatus = "active"
	PolicyTriggered PolicyStatus = "triggered"
	PolicyExpired   PolicyStatus = "expired"
	PolicyClaimed   PolicyStatus = "claimed"
)

// Policy is a single sold insurance contract. It is created by the purchase
// handler (out of scope here, per spec §1) and mutated only by the claims
// monitor, which transitions Status and sets PayoutAmountCents/PayoutTime.
type Policy struct {
	ID               int64
	Holder           string
	Beneficiary      string // optional; empty means "use Holder"
	Key              Key
	CoverageAmountCents int64
	PremiumPaidCents    int64
	TriggerPrice     float64
	FloorPrice       float64
	StartTime        time.Time
	ExpiryTime       time.Time
	Status           PolicyStatus
	PayoutAmountCents int64
	PayoutTime        time.Time
}

// BeneficiaryAddress returns the Beneficiary if set, else the Holder, per
// the claims monitor's payout-recipient rule.
func (p *Policy) BeneficiaryAddress() string {
	if p.Beneficiary != "" {
		return p.Beneficiary
	}

	return p.Holder
}

// Active reports whether the policy currently counts toward exposure and
// can be triggered by the claims monitor.
func (p *Policy) Active() bool {
	return p.Status == PolicyActive
}
