package dto

import "github.com/draftforge/outreach_api/model"

// QuotaDecision is the result of a quota check. Reason is only set on deny.
type QuotaDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

type UsageCounters struct {
	Articles int `json:"articles"`
	Topics   int `json:"topics"`
	Images   int `json:"images"`
}

// TrialUsageResponse reports counters alongside limits and remaining head
// room. Limits and Remaining are null for master and anonymous identities,
// meaning unlimited.
type TrialUsageResponse struct {
	Kind      string         `json:"kind"`
	Usage     UsageCounters  `json:"usage"`
	Limits    *UsageCounters `json:"limits"`
	Remaining *UsageCounters `json:"remaining"`
}

type TrialUsageEntry struct {
	Token string            `json:"token"`
	Usage model.UsageRecord `json:"usage"`
}

type TrialUsageListResponse struct {
	Tokens []TrialUsageEntry `json:"tokens"`
}
