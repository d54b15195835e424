package grpcserver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/md-rashed-zaman/catalogbus/libs/grpcx"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/model"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorDomain identifies catalog errors in errdetails.ErrorInfo.
const ErrorDomain = "catalogbus"

const (
	reasonNotFound   = "NOT_FOUND"
	reasonValidation = "VALIDATION_ERROR"
	reasonInternal   = "INTERNAL_ERROR"
)

func toStatus(ctx context.Context, logger *slog.Logger, kind model.Kind, m model.Method, err error) error {
	var (
		code   codes.Code
		reason string
		msg    string
		meta   = map[string]string{"kind": kind.String()}
	)
	switch model.CodeOf(err) {
	case model.CodeNotFound:
		code, reason, msg = codes.NotFound, reasonNotFound, model.NotFoundMessage(kind)
		var de *model.Error
		if errors.As(err, &de) && de.EntityID != "" {
			meta[kind.IDField()] = de.EntityID
		}
	case model.CodeValidation:
		code, reason, msg = codes.InvalidArgument, reasonValidation, err.Error()
	default:
		logger.Error("rpc failed",
			"request_id", grpcx.RequestIDFromContext(ctx),
			"kind", kind.String(),
			"err", err,
		)
		code, reason, msg = codes.Internal, reasonInternal, model.FailureMessage(kind, m)
	}

	st, derr := status.New(code, msg).WithDetails(&errdetails.ErrorInfo{
		Reason:   reason,
		Domain:   ErrorDomain,
		Metadata: meta,
	})
	if derr != nil {
		return status.Error(code, msg)
	}
	return st.Err()
}
