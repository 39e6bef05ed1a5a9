package lambda_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/kevin07696/card-gateway/internal/adapters/lambda"
	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLambda struct {
	input *awslambda.InvokeInput
	out   *awslambda.InvokeOutput
	err   error
}

func (f *fakeLambda) Invoke(ctx context.Context, params *awslambda.InvokeInput, optFns ...func(*awslambda.Options)) (*awslambda.InvokeOutput, error) {
	f.input = params
	return f.out, f.err
}

func TestKushkiInvoker_Invoke(t *testing.T) {
	call := &ports.ProcessorCall{
		ProcessorType: domain.ProcessorTypeKushki,
		ProcessorName: domain.ProcessorNameKushki,
		Operation:     "charge",
		Payload:       []byte(`{"transaction_type":"charge"}`),
	}

	t.Run("returns the function payload", func(t *testing.T) {
		fake := &fakeLambda{out: &awslambda.InvokeOutput{StatusCode: 200, Payload: []byte(`{"transaction_status":"APPROVAL"}`)}}
		invoker := lambda.NewKushkiInvoker(fake, "kushki-acq", zap.NewNop())

		raw, err := invoker.Invoke(context.Background(), call)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, raw.StatusCode)
		assert.JSONEq(t, `{"transaction_status":"APPROVAL"}`, string(raw.Body))
		assert.Equal(t, "kushki-acq", aws.ToString(fake.input.FunctionName))
		assert.Equal(t, call.Payload, fake.input.Payload)
	})

	t.Run("function error is unexpected", func(t *testing.T) {
		fake := &fakeLambda{out: &awslambda.InvokeOutput{
			StatusCode:    200,
			FunctionError: aws.String("Unhandled"),
			Payload:       []byte(`{"errorMessage":"boom"}`),
		}}
		invoker := lambda.NewKushkiInvoker(fake, "kushki-acq", zap.NewNop())

		_, err := invoker.Invoke(context.Background(), call)
		require.Error(t, err)
		assert.Equal(t, domain.ErrorCodeUnexpected, domain.GetErrorCode(err))
	})

	t.Run("transport error is an upstream failure", func(t *testing.T) {
		fake := &fakeLambda{err: errors.New("connection reset")}
		invoker := lambda.NewKushkiInvoker(fake, "kushki-acq", zap.NewNop())

		_, err := invoker.Invoke(context.Background(), call)
		var fail *domain.UpstreamFailure
		require.ErrorAs(t, err, &fail)
		assert.Equal(t, http.StatusBadGateway, fail.StatusCode)
		assert.False(t, fail.Timeout)
	})

	t.Run("deadline is a timeout", func(t *testing.T) {
		fake := &fakeLambda{err: context.DeadlineExceeded}
		invoker := lambda.NewKushkiInvoker(fake, "kushki-acq", zap.NewNop())

		_, err := invoker.Invoke(context.Background(), call)
		var fail *domain.UpstreamFailure
		require.ErrorAs(t, err, &fail)
		assert.True(t, fail.Timeout)
	})
}

func ruleRequest() *ports.RuleRequest {
	return &ports.RuleRequest{
		TransactionReference: "ref-1",
		MerchantID:           "merchant-1",
		TokenID:              "tok-1",
		Currency:             "USD",
		Bin:                  "411111",
		Brand:                "visa",
		TransactionType:      domain.TransactionTypeSale,
		Amount:               decimal.RequireFromString("112"),
	}
}

func TestRuleEngine_Evaluate(t *testing.T) {
	t.Run("approval returns the chosen processor", func(t *testing.T) {
		fake := &fakeLambda{out: &awslambda.InvokeOutput{StatusCode: 200, Payload: []byte(
			`{"decision":"APPROVE","processor":"Sandbox Processor","publicId":"proc-1","secureService":"3dsecure"}`)}}
		engine := lambda.NewRuleEngine(fake, "rule-engine", zap.NewNop())

		resp, err := engine.Evaluate(context.Background(), ruleRequest())
		require.NoError(t, err)
		assert.Equal(t, "proc-1", resp.PublicID)
		assert.Equal(t, "3dsecure", resp.SecureService)

		var sent map[string]interface{}
		require.NoError(t, json.Unmarshal(fake.input.Payload, &sent))
		assert.Equal(t, "112.00", sent["amount"])
		assert.Equal(t, "SALE", sent["transactionType"])
	})

	t.Run("decline is a rule rejection with its verdict", func(t *testing.T) {
		fake := &fakeLambda{out: &awslambda.InvokeOutput{StatusCode: 200, Payload: []byte(
			`{"decision":"DECLINE","rules":[{"code":"323","message":"OTP failed"}],"limitMerchant":100,"secureCode":"323"}`)}}
		engine := lambda.NewRuleEngine(fake, "rule-engine", zap.NewNop())

		_, err := engine.Evaluate(context.Background(), ruleRequest())
		require.Error(t, err)
		assert.True(t, domain.IsKind(err, domain.KindRuleEngineRejected))

		var de *domain.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, []domain.Rule{{Code: "323", Message: "OTP failed"}}, de.Details["rules"])
		assert.Equal(t, 100.0, de.Details["limitMerchant"])
		assert.Equal(t, "323", de.Details["secureCode"])
		assert.NotContains(t, de.Details, "limitProcessor")
	})

	t.Run("missing processor is unexpected", func(t *testing.T) {
		fake := &fakeLambda{out: &awslambda.InvokeOutput{StatusCode: 200, Payload: []byte(`{"decision":"APPROVE"}`)}}
		engine := lambda.NewRuleEngine(fake, "rule-engine", zap.NewNop())

		_, err := engine.Evaluate(context.Background(), ruleRequest())
		assert.Equal(t, domain.ErrorCodeUnexpected, domain.GetErrorCode(err))
	})

	t.Run("invocation failure is unexpected", func(t *testing.T) {
		engine := lambda.NewRuleEngine(&fakeLambda{err: errors.New("throttled")}, "rule-engine", zap.NewNop())

		_, err := engine.Evaluate(context.Background(), ruleRequest())
		assert.Equal(t, domain.ErrorCodeUnexpected, domain.GetErrorCode(err))
	})
}
