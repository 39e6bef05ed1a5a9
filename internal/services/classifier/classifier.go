// Package classifier turns raw acquirer failures into the unified error
// taxonomy and decides when a failure is really an idempotent success or a
// signal to re-route to a failover processor.
package classifier

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kevin07696/card-gateway/internal/config"
	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/kevin07696/card-gateway/internal/domain/ports"
	"github.com/kevin07696/card-gateway/pkg/observability"
)

// Verdict is the non-error outcome of a classification
type Verdict string

const (
	// VerdictIgnore means the acquirer already processed the transaction
	VerdictIgnore Verdict = "ignore"
	// VerdictFailover means the caller should re-route once to the failover processor
	VerdictFailover Verdict = "failover"
)

// Context is the caller information a classification needs
type Context struct {
	Metadata             map[string]interface{}
	Operation            domain.TransactionType
	TransactionReference string
	MerchantID           string
	ProcessorID          string
	ProcessorName        string
	Remaining            time.Duration // execution budget left when the failure was observed
	IsCardTransaction    bool
	FailoverEligible     bool
	IsFailoverRetry      bool
}

// Outcome is returned instead of an error when the failure must not fail the request
type Outcome struct {
	Verdict Verdict
	Code    string
}

// Classifier classifies upstream failures
type Classifier struct {
	failover *config.FailoverConfig
	messages *config.MessagesConfig
	recorder ports.FailedChargeRecorder
	logger   ports.Logger
}

// New creates a classifier. recorder may be nil, in which case failed charges are only logged.
func New(failover *config.FailoverConfig, messages *config.MessagesConfig, recorder ports.FailedChargeRecorder, logger ports.Logger) *Classifier {
	return &Classifier{
		failover: failover,
		messages: messages,
		recorder: recorder,
		logger:   logger,
	}
}

// Classify maps an upstream failure onto either an Outcome or a *domain.ProcessorError
func (c *Classifier) Classify(ctx context.Context, f *domain.UpstreamFailure, cc Context) (*Outcome, error) {
	if f == nil {
		return nil, domain.NewDomainError(domain.ErrorCodeUnexpected)
	}
	name := cc.ProcessorName
	if name == "" {
		name = domain.DefaultProcessorName
	}

	switch {
	case f.Timeout || f.StatusCode >= http.StatusInternalServerError || f.Code == CodeUnreachable:
		if f.Timeout && cc.Operation.IsChargeLike() {
			c.recordFailedCharge(ctx, f, cc, name)
		}
		recordError(name, CodeUnreachable, "fail")
		c.logger.Error("Processor unreachable",
			ports.String("processor_name", name),
			ports.String("transaction_reference", cc.TransactionReference),
			ports.Int("status_code", f.StatusCode),
			ports.Bool("timeout", f.Timeout),
		)
		return nil, c.unreachable(f, cc, name)

	case f.Code == CodeAlreadyProcessed:
		recordError(name, f.Code, string(VerdictIgnore))
		c.logger.Info("Transaction already processed by acquirer",
			ports.String("processor_name", name),
			ports.String("transaction_reference", cc.TransactionReference),
			ports.String("transaction_id", f.TransactionID),
		)
		return &Outcome{Verdict: VerdictIgnore, Code: f.Code}, nil

	case f.Code == CodeFailover && c.canFailover(cc):
		recordError(name, f.Code, string(VerdictFailover))
		c.logger.Warn("Processor requested failover",
			ports.String("processor_name", name),
			ports.String("processor_id", cc.ProcessorID),
			ports.String("transaction_reference", cc.TransactionReference),
		)
		return &Outcome{Verdict: VerdictFailover, Code: f.Code}, nil

	case f.Code == CodeMissingTrxID && f.TransactionID == "":
		recordError(name, f.Code, "fail")
		c.logger.Warn("Processor error without transaction id",
			ports.String("processor_name", name),
			ports.String("code", f.Code),
			ports.String("transaction_reference", cc.TransactionReference),
		)
		pe := c.processorError(f, cc, name, f.Message)
		pe.Metadata["transaction_details"] = f.Body
		return nil, pe
	}

	recordError(name, f.Code, "fail")
	if cc.Operation == domain.TransactionTypeSale || cc.Operation == domain.TransactionTypeDeferred {
		c.recordFailedCharge(ctx, f, cc, name)
	}
	return nil, c.processorError(f, cc, name, f.Message)
}

func (c *Classifier) canFailover(cc Context) bool {
	return cc.FailoverEligible && !cc.IsFailoverRetry && cc.Remaining >= c.failover.MinRemaining
}

func (c *Classifier) unreachable(f *domain.UpstreamFailure, cc Context, name string) *domain.ProcessorError {
	msg := f.Message
	if cc.IsCardTransaction || msg == "" {
		msg = c.messages.UnreachableMessage
	}
	status := f.StatusCode
	if f.Timeout && status == 0 {
		status = http.StatusGatewayTimeout
	}

	unreachable := *f
	unreachable.Code = CodeUnreachable
	unreachable.StatusCode = status
	pe := c.processorError(&unreachable, cc, name, msg)
	if f.Code != "" {
		pe.Metadata["processorCode"] = f.Code
	}
	return pe
}

func (c *Classifier) processorError(f *domain.UpstreamFailure, cc Context, name, msg string) *domain.ProcessorError {
	metadata := make(map[string]interface{}, len(cc.Metadata)+3)
	for k, v := range cc.Metadata {
		metadata[k] = v
	}
	metadata["processorCode"] = f.Code
	metadata["processorName"] = name
	metadata["statusCode"] = f.StatusCode

	return &domain.ProcessorError{
		Err:           f,
		Metadata:      metadata,
		Code:          f.Code,
		Message:       msg,
		ProcessorName: name,
		StatusCode:    f.StatusCode,
	}
}

func (c *Classifier) recordFailedCharge(ctx context.Context, f *domain.UpstreamFailure, cc Context, name string) {
	code := f.Code
	if f.Timeout {
		code = CodeUnreachable
	}
	rec := &domain.FailedCharge{
		TransactionReference: cc.TransactionReference,
		MerchantID:           cc.MerchantID,
		ProcessorID:          cc.ProcessorID,
		ProcessorName:        name,
		Method:               cc.Operation.Method(),
		Code:                 code,
		Message:              f.Message,
		StatusCode:           f.StatusCode,
		Created:              time.Now().UnixMilli(),
	}
	if c.recorder == nil {
		c.logger.Warn("Failed charge not recorded, no recorder configured",
			ports.String("transaction_reference", cc.TransactionReference))
		return
	}
	if err := c.recorder.RecordFailedCharge(ctx, rec); err != nil {
		c.logger.Error("Failed to record failed charge",
			ports.String("transaction_reference", cc.TransactionReference),
			ports.Err(err),
		)
	}
}

// Normalize converts any pipeline error into the caller-visible {code, message, metadata} shape
func Normalize(err error) *domain.DomainError {
	if err == nil {
		return nil
	}

	var de *domain.DomainError
	if errors.As(err, &de) {
		if de.Kind == domain.KindConfiguration {
			return domain.NewDomainError(domain.ErrorCodeUnexpected)
		}
		return de
	}

	var pe *domain.ProcessorError
	if errors.As(err, &pe) {
		info := Homologate(pe.Code)
		code := info.KushkiCode
		if pe.Code == CodeUnreachable {
			code = domain.ErrorCodeProcessorUnreachable
		}
		if code == "" {
			code = domain.ErrorCodeDeclined
		}
		out := domain.NewDomainError(code).
			WithDetail("processorCode", pe.Code).
			WithDetail("processorName", pe.ProcessorName).
			WithDetail("processorMessage", pe.Message).
			WithDetails(pe.Metadata)
		out.Err = pe
		return out
	}

	return domain.WrapError(domain.ErrorCodeUnexpected, err)
}

func recordError(processorName, code, verdict string) {
	observability.RecordProcessorError(processorName, code, string(Homologate(code).Category), verdict)
}
