package graph

import "github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/model"

// Error codes reported under extensions.code.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeBadUserInput  = "BAD_USER_INPUT"
	CodeInternalError = "INTERNAL_ERROR"
)

// graphError is rendered by graphql-go with its Extensions.
type graphError struct {
	message string
	code    string
}

func (e *graphError) Error() string { return e.message }

func (e *graphError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.code}
}

func (r *Resolver) toGraphError(kind model.Kind, m model.Method, err error) error {
	switch model.CodeOf(err) {
	case model.CodeNotFound:
		return &graphError{message: model.NotFoundMessage(kind), code: CodeNotFound}
	case model.CodeValidation:
		return &graphError{message: err.Error(), code: CodeBadUserInput}
	default:
		r.logger.Error("graphql resolver failed", "kind", kind.String(), "err", err)
		return &graphError{message: model.FailureMessage(kind, m), code: CodeInternalError}
	}
}
