package api

import (
	"net/http"

	"github.com/antigravity-dev/taskhub/internal/domain"
)

// statusForKind maps a domain.ErrorKind to the HTTP status transport
// adapters surface it as, per spec.md §7's error handling design.
func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindState, domain.KindSelfClaim, domain.KindSelfEval, domain.KindSkill:
		return http.StatusConflict
	case domain.KindOwner:
		return http.StatusForbidden
	case domain.KindIdentity:
		return http.StatusUnauthorized
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindExternal:
		return http.StatusBadGateway
	case domain.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// writeDomainError inspects err for a *domain.Error taxonomy and writes the
// matching status; anything else is an unanticipated internal error.
func writeDomainError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	if kind == "" {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeError(w, statusForKind(kind), err.Error())
}
