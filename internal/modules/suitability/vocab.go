// Package suitability evaluates whether a wealth product fits a customer:
// product risk at or below the customer's tolerance, and available funds
// meeting the product's minimum purchase threshold.
package suitability

// Customer risk tolerance and product risk level are two different label
// vocabularies. They must never be compared as strings; comparison happens
// only through these ordinal ranks.

// customerRiskRank maps customer risk-tolerance labels to ordinal ranks,
// 1 = most conservative through 5 = most aggressive.
var customerRiskRank = map[string]int{
	"保守型": 1, // conservative
	"稳健型": 2, // stable
	"平衡型": 3, // balanced
	"成长型": 4, // growth
	"进取型": 5, // aggressive
}

// productRiskRank maps product risk-level labels to ordinal ranks,
// 1 = lowest risk through 5 = highest risk.
var productRiskRank = map[string]int{
	"低风险":  1,
	"偏低风险": 2,
	"中等风险": 3,
	"偏高风险": 4,
	"高风险":  5,
}

// Unknown-label fallbacks. An unrecognized customer label rates as
// maximally conservative (rank 0, matches nothing); an unrecognized
// product label rates as maximally risky (rank 99, matched by no one).
const (
	unknownCustomerRank = 0
	unknownProductRank  = 99
)

// CustomerRiskRank maps a customer risk label to its ordinal rank.
func CustomerRiskRank(label string) int {
	if rank, ok := customerRiskRank[label]; ok {
		return rank
	}
	return unknownCustomerRank
}

// ProductRiskRank maps a product risk label to its ordinal rank.
func ProductRiskRank(label string) int {
	if rank, ok := productRiskRank[label]; ok {
		return rank
	}
	return unknownProductRank
}
