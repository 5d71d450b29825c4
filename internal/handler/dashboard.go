package handler

import (
	"fmt"
	"net/http"

	"github.com/segyhp/loanbook/pkg/response"
)

// Dashboard handles GET /dashboard
func (h *LoanHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Dashboard(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, stats)
}

// Backup handles GET /backup and serves the export as a download.
func (h *LoanHandler) Backup(w http.ResponseWriter, r *http.Request) {
	backup, err := h.service.Backup(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	filename := fmt.Sprintf("loanbook-backup-%s.json", backup.ExportedAt.Format("20060102-150405"))
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	response.Success(w, backup)
}
