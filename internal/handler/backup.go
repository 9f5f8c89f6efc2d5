package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/ems/internal/backup"
)

type BackupHandler struct {
	mgr    *backup.Manager
	logger *slog.Logger
}

func NewBackupHandler(mgr *backup.Manager, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{mgr: mgr, logger: logger}
}

func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mgr.Status())
}

// Run takes a snapshot immediately.
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	if !h.mgr.Enabled() {
		writeMessage(w, http.StatusServiceUnavailable, "Backups are not configured")
		return
	}

	key, err := h.mgr.RunNow(r.Context())
	if err != nil {
		h.logger.Error("backup", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Backup failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}
