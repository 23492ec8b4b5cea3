package api

import (
	"errors"
	"net/http"

	service "github.com/okian/imagecatalog/internal/app"
	"github.com/okian/imagecatalog/internal/domain/catalog"
	"github.com/okian/imagecatalog/pkg/logger"
)

// ListHandler serves the catalog listing for one OS.
type ListHandler struct {
	deps   ListDependencies
	logger logger.Logger
}

// NewListHandler creates a new list handler.
func NewListHandler(deps ListDependencies, l logger.Logger) *ListHandler {
	return &ListHandler{deps: deps, logger: l}
}

// HandleList handles GET /list?os=<os> requests.
func (h *ListHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	os, ok := queryParam(r.URL.Query(), "os")
	if !ok {
		writeError(w, NewKind(op, ErrBadRequest))
		return
	}

	entries, err := h.deps.List(r.Context(), os)
	if err != nil {
		err = classifyList(op, err)
		h.logger.Debug(r.Context(), "list rejected",
			logger.String("request_id", RequestIDFromContext(r.Context())),
			logger.String("os", os),
			logger.Error(err))
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []catalog.ListEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func classifyList(op string, err error) error {
	if errors.Is(err, service.ErrBadRequest) {
		return WrapKind(op, ErrBadRequest, err)
	}
	return WrapKind(op, ErrNoValues, err)
}
