package gateway

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kevin07696/card-gateway/internal/domain"
)

// Validator checks canonical requests before any upstream call
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a request validator
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// ValidateAmount rejects zero-total money movements that are not card validations
func (v *Validator) ValidateAmount(op domain.TransactionType, amount domain.Amount, isCardValidation bool) error {
	if op.IsChargeLike() && amount.Total().IsZero() && !isCardValidation {
		return domain.NewDomainError(domain.ErrorCodeAmountRequired)
	}
	return nil
}

// ValidateCharge validates a charge, preauthorization or account validation request
func (v *Validator) ValidateCharge(op domain.TransactionType, req *domain.ChargeRequest) error {
	if err := v.ValidateAmount(op, req.Amount, req.IsCardValidation); err != nil {
		return err
	}
	return v.Struct(req)
}

// Struct runs the struct-tag validation of any canonical request. Failures
// inside the sub-merchant block are missing parameters (K601), any other
// failure is an invalid body (K001).
func (v *Validator) Struct(req interface{}) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.WrapError(domain.ErrorCodeInvalidBody, err)
	}

	code := domain.ErrorCodeInvalidBody
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if strings.Contains(fe.StructNamespace(), ".SubMerchant.") {
			code = domain.ErrorCodeMissingParameters
		}
		fields = append(fields, fe.Namespace())
	}
	return domain.WrapError(code, err).WithDetail("fields", fields)
}

// ValidateSubMerchant applies the country-specific sub-merchant rules that
// need the merchant and bin countries.
func (v *Validator) ValidateSubMerchant(sub *domain.SubMerchant, merchantCountry, binCountry string) error {
	if sub == nil {
		return nil
	}
	if strings.TrimSpace(sub.CountryAns) == "" {
		return domain.NewDomainError(domain.ErrorCodeMissingParameters).WithDetail("fields", []string{"subMerchant.countryAns"})
	}
	if isMexico(merchantCountry) && isMexico(binCountry) && strings.TrimSpace(sub.CityCode) == "" {
		return domain.NewDomainError(domain.ErrorCodeMissingParameters).WithDetail("fields", []string{"subMerchant.cityCode"})
	}
	return nil
}

func isMexico(country string) bool {
	switch strings.ToLower(strings.TrimSpace(country)) {
	case "mexico", "méxico", "mx", "mex", "484":
		return true
	}
	return false
}
