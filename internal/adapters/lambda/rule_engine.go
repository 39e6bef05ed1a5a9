package lambda

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
	"go.uber.org/zap"
)

const decisionDecline = "DECLINE"

type ruleEngineRequest struct {
	TransactionReference string `json:"transactionReference"`
	MerchantID           string `json:"merchantId"`
	Token                string `json:"token"`
	Currency             string `json:"currency"`
	Bin                  string `json:"bin,omitempty"`
	Brand                string `json:"brand,omitempty"`
	Country              string `json:"country,omitempty"`
	TransactionType      string `json:"transactionType"`
	SubscriptionID       string `json:"subscriptionId,omitempty"`
	Amount               string `json:"amount"`
}

type ruleEngineResult struct {
	domain.RuleResponse
	Decision       string   `json:"decision"`
	LimitMerchant  *float64 `json:"limitMerchant,omitempty"`
	LimitProcessor *float64 `json:"limitProcessor,omitempty"`
	SecureCode     string   `json:"secureCode,omitempty"`
	SecureMessage  string   `json:"secureMessage,omitempty"`
}

// RuleEngine evaluates transactions with the rule-engine Lambda function
type RuleEngine struct {
	client       LambdaAPI
	functionName string
	logger       *zap.Logger
}

// NewRuleEngine creates the rule-engine adapter
func NewRuleEngine(client LambdaAPI, functionName string, logger *zap.Logger) *RuleEngine {
	return &RuleEngine{
		client:       client,
		functionName: functionName,
		logger:       logger,
	}
}

// Evaluate implements ports.RuleEngine
func (r *RuleEngine) Evaluate(ctx context.Context, req *ports.RuleRequest) (*domain.RuleResponse, error) {
	payload, err := json.Marshal(ruleEngineRequest{
		TransactionReference: req.TransactionReference,
		MerchantID:           req.MerchantID,
		Token:                req.TokenID,
		Currency:             req.Currency,
		Bin:                  req.Bin,
		Brand:                req.Brand,
		Country:              req.Country,
		TransactionType:      string(req.TransactionType),
		SubscriptionID:       req.SubscriptionID,
		Amount:               req.Amount.StringFixed(2),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rule request: %w", err)
	}

	body, err := invokeSync(ctx, r.client, r.functionName, payload)
	if err != nil {
		r.logger.Error("Rule engine invocation failed",
			zap.String("transaction_reference", req.TransactionReference),
			zap.Error(err))
		return nil, domain.WrapError(domain.ErrorCodeUnexpected, err)
	}

	var result ruleEngineResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeUnexpected, fmt.Errorf("failed to decode rule response: %w", err))
	}

	if strings.EqualFold(result.Decision, decisionDecline) {
		r.logger.Info("Transaction rejected by rules",
			zap.String("transaction_reference", req.TransactionReference),
			zap.String("merchant_id", req.MerchantID),
			zap.Int("rules", len(result.Rules)))
		return nil, rejection(&result)
	}

	if result.PublicID == "" {
		return nil, domain.WrapError(domain.ErrorCodeUnexpected, fmt.Errorf("rule engine returned no processor"))
	}
	return &result.RuleResponse, nil
}

// rejection carries the verdict details the transaction builder copies onto the declined trx
func rejection(result *ruleEngineResult) *domain.DomainError {
	details := map[string]interface{}{
		"rules": result.Rules,
	}
	if result.LimitMerchant != nil {
		details["limitMerchant"] = *result.LimitMerchant
	}
	if result.LimitProcessor != nil {
		details["limitProcessor"] = *result.LimitProcessor
	}
	if result.SecureCode != "" {
		details["secureCode"] = result.SecureCode
	}
	if result.SecureMessage != "" {
		details["secureMessage"] = result.SecureMessage
	}
	return domain.NewDomainError(domain.ErrorCodeRuleRejected).WithDetails(details)
}
