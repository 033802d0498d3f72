package directory

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/haneul/dcrawl/internal/model"
	"github.com/haneul/dcrawl/internal/store"
	"github.com/haneul/dcrawl/pkg/utils"
)

// Handler wires the directory's HTTP surface onto a gin engine:
// health, metrics (registered by the caller via promhttp), list,
// report and error-report.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts every route onto the given router group.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/health", h.health)
	r.GET("/list", h.list)
	r.POST("/report", h.report)
	r.POST("/error-report", h.errorReport)
}

func (h *Handler) health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (h *Handler) list(c *gin.Context) {
	part, err := strconv.ParseUint(c.Query("part"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.GetResponse(nil, http.StatusBadRequest, "invalid part", nil))
		return
	}
	total, err := strconv.ParseUint(c.Query("total"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.GetResponse(nil, http.StatusBadRequest, "invalid total", nil))
		return
	}

	galleries, err := h.service.ListShard(part, total)
	if err != nil {
		h.logger.Error("list shard failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, utils.GetResponse(nil, http.StatusInternalServerError, "internal server error", nil))
		return
	}
	if galleries == nil {
		galleries = []model.GalleryState{}
	}
	c.JSON(http.StatusOK, galleries)
}

func (h *Handler) report(c *gin.Context) {
	var form model.GalleryCrawlReportForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, utils.GetResponse(nil, http.StatusBadRequest, "malformed report", nil))
		return
	}

	if err := h.service.HandleReport(form); err != nil {
		h.respondStoreError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) errorReport(c *gin.Context) {
	var form model.GalleryCrawlErrorReportForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, utils.GetResponse(nil, http.StatusBadRequest, "malformed error report", nil))
		return
	}

	if err := h.service.HandleErrorReport(form); err != nil {
		h.respondStoreError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) respondStoreError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, utils.GetResponse(nil, http.StatusNotFound, "unknown gallery id", nil))
		return
	}
	h.logger.Error("store error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, utils.GetResponse(nil, http.StatusInternalServerError, "internal server error", nil))
}
