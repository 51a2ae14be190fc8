package server

import (
	"errors"
	"net/http"

	"github.com/netsblox/cloud/internal/errs"
)

var notFoundErrors = []error{
	errs.ErrProjectNotFound,
	errs.ErrRoleNotFound,
	errs.ErrInviteNotFound,
	errs.ErrGroupNotFound,
	errs.ErrUserNotFound,
	errs.ErrServiceHostNotFound,
	errs.ErrThumbnailNotFound,
}

var conflictErrors = []error{
	errs.ErrGroupExists,
	errs.ErrInviteExists,
	errs.ErrHostAlreadyAuthorized,
}

// writeError maps service errors onto HTTP statuses. User-attributable
// errors surface verbatim; anything else is an opaque internal error
// whose correlation id lets operators find the logged cause.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	for _, sentinel := range notFoundErrors {
		if errors.Is(err, sentinel) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
	}
	for _, sentinel := range conflictErrors {
		if errors.Is(err, sentinel) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
	}
	if errors.Is(err, errs.ErrForbidden) {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	if errs.IsUserError(err) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var internal *errs.InternalError
	if errors.As(err, &internal) {
		s.log.WithError(internal.Err).WithField("correlationId", internal.CorrelationID).Error(internal.Kind)
		http.Error(w, internal.Error(), http.StatusInternalServerError)
		return
	}
	s.log.WithError(err).Error("unhandled error")
	http.Error(w, "internal error", http.StatusInternalServerError)
}
