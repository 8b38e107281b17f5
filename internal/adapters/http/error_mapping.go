package httpadapter

import (
	"net/http"

	"github.com/dmarkin/fusionrag/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidParameter):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrAllSourcesUnavailable):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		// Includes ErrUnmappedQueryType: a routing table gap is a server
		// configuration bug, not a client problem.
		return http.StatusInternalServerError
	}
}
