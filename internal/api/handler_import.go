package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gardu-monitor-backend/internal/importer"
)

// maxImportBytes bounds the size of an uploaded seed document.
const maxImportBytes = 4 << 20

// Import handles POST /api/import with a YAML seed document as the body.
func (h *Handler) Import(c *gin.Context) {
	items, err := importer.Decode(http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seed document", "detail": err.Error()})
		return
	}
	stats, err := h.store.ImportBatch(c.Request.Context(), items)
	if err != nil {
		storeError(c, err, "import")
		return
	}
	c.JSON(http.StatusOK, stats)
}
