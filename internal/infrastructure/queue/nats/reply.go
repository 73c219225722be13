package nats

import (
	"errors"

	"github.com/kirillkom/scan-classifier/internal/core/domain"
)

// jobReply is the wire envelope a worker sends back. Exactly one of Result
// and Error is set.
type jobReply struct {
	Result *domain.ProcessResult `json:"result,omitempty"`
	Error  *replyError           `json:"error,omitempty"`
}

type replyError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

func failedReply(err error) jobReply {
	return jobReply{Error: &replyError{Stage: domain.Stage(err), Message: err.Error()}}
}

// unwrap rebuilds a typed error so transports map it like a local failure.
func (r jobReply) unwrap() (*domain.ProcessResult, error) {
	if r.Error != nil {
		cause := errors.New(r.Error.Message)
		kind := domain.KindFromStage(r.Error.Stage)
		if kind == nil {
			return nil, cause
		}
		return nil, domain.WrapError(kind, "worker", cause)
	}
	if r.Result == nil {
		return nil, errors.New("worker reply has neither result nor error")
	}
	return r.Result, nil
}
