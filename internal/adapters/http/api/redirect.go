package api

import (
	"errors"
	"net/http"

	service "github.com/okian/imagecatalog/internal/app"
	"github.com/okian/imagecatalog/pkg/logger"
)

// RedirectHandler sends clients to the stored download URL of one entry.
type RedirectHandler struct {
	deps   RedirectDependencies
	logger logger.Logger
}

// NewRedirectHandler creates a new redirect handler.
func NewRedirectHandler(deps RedirectDependencies, l logger.Logger) *RedirectHandler {
	return &RedirectHandler{deps: deps, logger: l}
}

// HandleRedirect handles GET /downloadRedirect?os=<os>&denom=<denom>.
// A resolvable entry answers 302 Found; everything else is a plain-text 400.
func (h *RedirectHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	const op = "api.download_redirect"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	os, okOS := queryParam(q, "os")
	denom, okDenom := queryParam(q, "denom")
	if !okOS || !okDenom {
		writeError(w, NewKind(op, ErrBadRequest))
		return
	}

	target, err := h.deps.Resolve(r.Context(), os, denom)
	if err != nil {
		err = classifyResolve(op, err)
		h.logger.Debug(r.Context(), "redirect rejected",
			logger.String("request_id", RequestIDFromContext(r.Context())),
			logger.String("os", os),
			logger.String("denom", denom),
			logger.Error(err))
		writeError(w, err)
		return
	}
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func classifyResolve(op string, err error) error {
	var stored *service.StoredFailure
	switch {
	case errors.As(err, &stored):
		return WrapKind(op, ErrStored, err)
	case errors.Is(err, service.ErrBadRequest):
		return WrapKind(op, ErrBadRequest, err)
	case errors.Is(err, service.ErrNoMatch):
		return WrapKind(op, ErrNoMatch, err)
	default:
		return WrapKind(op, ErrUnknown, err)
	}
}
