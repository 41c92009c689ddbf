package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kallevik/stjerne/internal/auth"
	"github.com/kallevik/stjerne/internal/store"
)

type ExportHandler struct {
	exportStore *store.ExportStore
	logger      *slog.Logger
}

func NewExportHandler(es *store.ExportStore, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{exportStore: es, logger: logger}
}

// Export dumps one family's full data set as JSON, suitable for re-import on
// another instance.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	familyID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	// A parent may only export their own family.
	if fam := auth.FamilyID(r.Context()); fam != 0 && fam != familyID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your family"})
		return
	}

	export, err := h.exportStore.Export(familyID)
	if err != nil {
		h.logger.Error("export family", "family_id", familyID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to export family"})
		return
	}
	if export == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "family not found"})
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="family-export.json"`)
	writeJSON(w, http.StatusOK, export)
}

// Import loads an exported family as a new family. All ids are remapped, so
// importing the same file twice creates two families.
func (h *ExportHandler) Import(w http.ResponseWriter, r *http.Request) {
	var export store.FamilyExport
	if err := json.NewDecoder(r.Body).Decode(&export); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if export.Family.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "export has no family"})
		return
	}

	familyID, err := h.exportStore.Import(&export)
	if err != nil {
		h.logger.Error("import family", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to import family"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"family_id": familyID})
}
