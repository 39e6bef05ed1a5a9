package fixtures

import (
	"github.com/kevin07696/card-gateway/internal/domain"
)

// TokenBuilder provides fluent API for building test tokens.
type TokenBuilder struct {
	token *domain.TokenInfo
}

// NewToken creates a token builder with a visa credit card from Ecuador.
func NewToken() *TokenBuilder {
	return &TokenBuilder{
		token: &domain.TokenInfo{
			ID:                   "tok-0001",
			Amount:               Dec("112"),
			Currency:             "USD",
			CardHolderName:       "Jane Doe",
			MaskedCardNumber:     "424242XXXXXX4242",
			LastFourDigits:       "4242",
			TransactionReference: "ref-0001",
			VaultToken:           "vault-0001",
			BinInfo: &domain.BinInfo{
				Bin:      "424242",
				Bank:     "Banco Pichincha",
				Brand:    "VISA",
				Country:  "Ecuador",
				CardType: "credit",
			},
		},
	}
}

func (b *TokenBuilder) WithBrand(brand string) *TokenBuilder {
	b.token.BinInfo.Brand = brand
	return b
}

func (b *TokenBuilder) WithCountry(country string) *TokenBuilder {
	b.token.BinInfo.Country = country
	return b
}

func (b *TokenBuilder) WithSecureService(service, id string) *TokenBuilder {
	b.token.SecureService = service
	b.token.SecureID = id
	return b
}

func (b *TokenBuilder) WithThreeDS(detail *domain.ThreeDSDetail) *TokenBuilder {
	b.token.ThreeDS = detail
	return b
}

func (b *TokenBuilder) WithIdentities(ids ...domain.SecurityIdentity) *TokenBuilder {
	b.token.SecurityIdentity = ids
	return b
}

func (b *TokenBuilder) WithReference(ref string) *TokenBuilder {
	b.token.TransactionReference = ref
	return b
}

func (b *TokenBuilder) Build() *domain.TokenInfo {
	t := *b.token
	if b.token.BinInfo != nil {
		bin := *b.token.BinInfo
		t.BinInfo = &bin
	}
	return &t
}
