package transaction

import (
	"strings"

	"github.com/kevin07696/card-gateway/internal/domain"
)

// Rule codes with traceability meaning
const (
	RuleCodeOK            = "000"
	RuleCodeRejected      = "322"
	RuleCodeOTPRejected   = "323"
	RuleCode3DSRejected   = "324"
	RuleCodeSecureService = "325"

	// ThreeDSAuthenticatedReason is the 3DS reason code of a successful authentication
	ThreeDSAuthenticatedReason = "Y"
)

var secureServiceErrorCodes = map[string]bool{
	RuleCodeRejected:      true,
	RuleCodeOTPRejected:   true,
	RuleCode3DSRejected:   true,
	RuleCodeSecureService: true,
}

// Traceability is the identity trail of a transaction
type Traceability struct {
	KushkiInfo       *domain.KushkiInfo
	SecurityIdentity []domain.SecurityIdentity
}

type candidate struct {
	partner     domain.Partner
	template    domain.IdentityTemplate
	represented bool
}

// MergeTraceability reconciles partner verdicts with the identities a token already carries.
// Existing entries are updated in place, never duplicated nor removed.
func MergeTraceability(existing []domain.SecurityIdentity, sec *domain.SecurityBlock, flags domain.PartnerFlags) Traceability {
	candidates := partnerCandidates(sec)

	identities := make([]domain.SecurityIdentity, len(existing))
	copy(identities, existing)

	for i := range identities {
		for _, c := range candidates {
			if c.represented || !matches(identities[i], c.template) {
				continue
			}
			identities[i].Info.Status = verdict(c.partner, c.template, flags)
			c.represented = true
			break
		}
	}

	for _, c := range candidates {
		if c.represented {
			continue
		}
		identities = append(identities, domain.SecurityIdentity{
			IdentityCategory: c.template.Category,
			IdentityCode:     c.template.Code,
			PartnerName:      c.template.PartnerName,
			Info:             domain.IdentityInfo{Status: verdict(c.partner, c.template, flags)},
		})
	}

	return Traceability{
		KushkiInfo:       kushkiInfoFor(flags),
		SecurityIdentity: identities,
	}
}

func partnerCandidates(sec *domain.SecurityBlock) []*candidate {
	if sec == nil {
		return nil
	}
	names := make([]string, 0, len(sec.Partners)+1)
	names = append(names, sec.Partners...)
	if sec.Service != "" {
		names = append(names, sec.Service)
	}

	seen := make(map[domain.Partner]bool, len(names))
	var out []*candidate
	for _, name := range names {
		p, ok := domain.ParsePartner(name)
		if !ok || seen[p] {
			continue
		}
		tmpl, ok := p.Template()
		if !ok {
			continue
		}
		seen[p] = true
		out = append(out, &candidate{partner: p, template: tmpl})
	}
	return out
}

// matches reports an existing entry belongs to the partner. A Kushki TOKEN entry
// left by tokenization is a different identity than a Kushki CHALLENGER verdict.
func matches(id domain.SecurityIdentity, tmpl domain.IdentityTemplate) bool {
	if !strings.EqualFold(id.PartnerName, tmpl.PartnerName) {
		return false
	}
	if strings.EqualFold(id.PartnerName, domain.PartnerNameKushki) &&
		id.IdentityCategory == domain.IdentityCategoryToken &&
		tmpl.Category == domain.IdentityCategoryChallenger {
		return false
	}
	return true
}

func verdict(p domain.Partner, tmpl domain.IdentityTemplate, flags domain.PartnerFlags) string {
	if tmpl.SecureService {
		if p == domain.Partner3DS && flags.ThreeDSReason == ThreeDSAuthenticatedReason {
			return domain.IdentityStatusApproved
		}
		for _, r := range flags.Rules {
			if secureServiceErrorCodes[r.Code] {
				return domain.IdentityStatusDeclined
			}
		}
		return domain.IdentityStatusApproved
	}

	for _, r := range flags.Rules {
		if strings.EqualFold(r.Name, tmpl.RuleLabel) && r.Code == RuleCodeOK {
			return domain.IdentityStatusApproved
		}
	}
	if p == domain.PartnerSift && (flags.SiftValidation || flags.RulesValidation) && flags.ResponseCode != RuleCodeRejected {
		return domain.IdentityStatusApproved
	}
	return domain.IdentityStatusDeclined
}

func kushkiInfoFor(flags domain.PartnerFlags) *domain.KushkiInfo {
	if flags.KushkiInfo != nil {
		info := *flags.KushkiInfo
		return &info
	}
	resource := domain.KushkiInfoResourceCard
	if flags.SubscriptionID != "" {
		resource = domain.KushkiInfoResourceSubscription
	}
	return &domain.KushkiInfo{
		Authorizer:      domain.KushkiInfoAuthorizerCredential,
		PlatformID:      domain.KushkiInfoDefaultPlatformID,
		PlatformVersion: domain.KushkiInfoLatestVersion,
		Resource:        resource,
	}
}
