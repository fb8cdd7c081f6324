package models

// Plan tiers.
const (
	TierStarter = "starter"
	TierPro     = "pro"
	TierElite   = "elite"
)

// SubscriptionPlan is a named tier holding the ranking- and billing-relevant
// numbers. Ranking consumes plans as a read-only snapshot; leads copy the
// numbers they were priced with into a PlanSnapshot, so editing a plan later
// never rewrites already-created leads.
type SubscriptionPlan struct {
	ID                  string   `bson:"id" json:"id"`
	Name                string   `bson:"name" json:"name"`
	Tier                string   `bson:"tier" json:"tier"`
	LeadDiscountPercent float64  `bson:"leadDiscountPercent" json:"leadDiscountPercent"` // 0..100, reduces the lead price
	PriorityBoostPoints float64  `bson:"priorityBoostPoints" json:"priorityBoostPoints"` // added to the ranking score
	Featured            bool     `bson:"featured" json:"featured"`                       // featured placement, fixed score bonus
	AdvancedAnalytics   bool     `bson:"advancedAnalytics" json:"advancedAnalytics"`
	FeeRateOverride     *float64 `bson:"feeRateOverride,omitempty" json:"feeRateOverride,omitempty"` // nil means platform default fee rate
}

// PlanSnapshot is the slice of a plan a lead was created under.
type PlanSnapshot struct {
	PlanID              string   `bson:"planId" json:"planId"`
	Tier                string   `bson:"tier" json:"tier"`
	LeadDiscountPercent float64  `bson:"leadDiscountPercent" json:"leadDiscountPercent"`
	PriorityBoostPoints float64  `bson:"priorityBoostPoints" json:"priorityBoostPoints"`
	Featured            bool     `bson:"featured" json:"featured"`
	FeeRateOverride     *float64 `bson:"feeRateOverride,omitempty" json:"feeRateOverride,omitempty"`
}
