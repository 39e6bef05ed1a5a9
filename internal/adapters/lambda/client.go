// Package lambda invokes the AWS Lambda functions the pipeline depends on:
// the Kushki acquirer and the rule engine.
package lambda

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/kevin07696/card-gateway/internal/domain"
)

// LambdaAPI is the subset of the Lambda client used by the adapters
type LambdaAPI interface {
	Invoke(ctx context.Context, params *awslambda.InvokeInput, optFns ...func(*awslambda.Options)) (*awslambda.InvokeOutput, error)
}

// errFunction marks a handled or unhandled error raised inside the function
var errFunction = errors.New("lambda function error")

// invokeSync runs a request-response invocation. Transport failures come back
// as *domain.UpstreamFailure and function errors wrap errFunction.
func invokeSync(ctx context.Context, client LambdaAPI, functionName string, payload []byte) ([]byte, error) {
	out, err := client.Invoke(ctx, &awslambda.InvokeInput{
		FunctionName:   aws.String(functionName),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &domain.UpstreamFailure{Err: err, Timeout: true, StatusCode: http.StatusGatewayTimeout}
		}
		return nil, &domain.UpstreamFailure{Err: err, StatusCode: http.StatusBadGateway, Message: err.Error()}
	}
	if out.FunctionError != nil {
		return out.Payload, fmt.Errorf("%w: %s: %s", errFunction, aws.ToString(out.FunctionError), string(out.Payload))
	}
	return out.Payload, nil
}

// NewClient creates a Lambda client, optionally against a local endpoint
func NewClient(cfg aws.Config, endpoint string) *awslambda.Client {
	return awslambda.NewFromConfig(cfg, func(o *awslambda.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}
