package domain

import "strings"

// Partner is a validation partner whose verdict feeds the security identity trail
type Partner string

const (
	Partner3DS        Partner = "3dsecure"
	PartnerSift       Partner = "siftscience"
	PartnerOTP        Partner = "otp"
	PartnerTransUnion Partner = "transunion"
)

// Identity categories
const (
	IdentityCategoryToken      = "TOKEN"
	IdentityCategoryChallenger = "CHALLENGER"
	IdentityCategoryValidation = "VALIDATION"
)

// Identity partner names
const (
	PartnerNameKushki     = "KUSHKI"
	PartnerName3DS        = "3DS"
	PartnerNameSift       = "SIFTSCIENCE"
	PartnerNameTransUnion = "TRANSUNION"
)

// Identity statuses
const (
	IdentityStatusApproved = "APPROVED"
	IdentityStatusDeclined = "DECLINED"
)

// IdentityTemplate describes the identity entry a partner produces
type IdentityTemplate struct {
	Category      string
	Code          string
	PartnerName   string
	RuleLabel     string
	SecureService bool
}

// Template resolves the identity template of a partner
func (p Partner) Template() (IdentityTemplate, bool) {
	switch p {
	case Partner3DS:
		return IdentityTemplate{
			Category:      IdentityCategoryChallenger,
			Code:          "SI001",
			PartnerName:   PartnerName3DS,
			RuleLabel:     "3ds",
			SecureService: true,
		}, true
	case PartnerOTP:
		return IdentityTemplate{
			Category:      IdentityCategoryChallenger,
			Code:          "SI002",
			PartnerName:   PartnerNameKushki,
			RuleLabel:     "otp",
			SecureService: true,
		}, true
	case PartnerSift:
		return IdentityTemplate{
			Category:    IdentityCategoryValidation,
			Code:        "SI003",
			PartnerName: PartnerNameSift,
			RuleLabel:   "sift",
		}, true
	case PartnerTransUnion:
		return IdentityTemplate{
			Category:    IdentityCategoryValidation,
			Code:        "SI004",
			PartnerName: PartnerNameTransUnion,
			RuleLabel:   "transunion",
		}, true
	}
	return IdentityTemplate{}, false
}

// ParsePartner maps a free-form partner/secure-service name onto the closed Partner set
func ParsePartner(s string) (Partner, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "3dsecure", "3ds", "cardinal":
		return Partner3DS, true
	case "siftscience", "sift":
		return PartnerSift, true
	case "otp", "kushkiotp":
		return PartnerOTP, true
	case "transunion":
		return PartnerTransUnion, true
	}
	return "", false
}

// IdentityInfo carries the partner verdict
type IdentityInfo struct {
	Status string `json:"status"`
}

// SecurityIdentity is one partner's validation verdict
type SecurityIdentity struct {
	IdentityCategory string       `json:"identityCategory"`
	IdentityCode     string       `json:"identityCode"`
	PartnerName      string       `json:"partnerName"`
	Info             IdentityInfo `json:"info"`
}

// KushkiInfo identifies the platform that originated the transaction
type KushkiInfo struct {
	Authorizer      string `json:"authorizer"`
	PlatformID      string `json:"platformId"`
	PlatformVersion string `json:"platformVersion"`
	Resource        string `json:"resource"`
}

// KushkiInfo defaults
const (
	KushkiInfoAuthorizerCredential = "credential"
	KushkiInfoDefaultPlatformID    = "KP001"
	KushkiInfoLatestVersion        = "latest"
	KushkiInfoResourceCard         = "card"
	KushkiInfoResourceSubscription = "subscriptions"
)

// SecurityBlock is the security section of a transaction
type SecurityBlock struct {
	ID             string   `json:"id,omitempty"`
	Service        string   `json:"service,omitempty"`
	Partners       []string `json:"partner,omitempty"`
	LimitMerchant  *float64 `json:"limitMerchant,omitempty"`
	LimitProcessor *float64 `json:"limitProcessor,omitempty"`
}

// PartnerFlags are validation flags carried by the request
type PartnerFlags struct {
	SiftValidation  bool
	RulesValidation bool
	ThreeDSReason   string
	ResponseCode    string
	Rules           []Rule
	SubscriptionID  string
	KushkiInfo      *KushkiInfo
}
