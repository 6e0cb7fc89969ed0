package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/dashsync/internal/aggregate"
	"github.com/persistorai/dashsync/internal/models"
)

// ChartHandler serves chart series aggregated from the current snapshot.
type ChartHandler struct {
	ctrl SyncController
	rec  aggregate.Reconciler
	log  *logrus.Logger
}

// NewChartHandler creates a ChartHandler. rec resolves country labels for
// the geo series.
func NewChartHandler(ctrl SyncController, rec aggregate.Reconciler, log *logrus.Logger) *ChartHandler {
	return &ChartHandler{ctrl: ctrl, rec: rec, log: log}
}

// Bar handles GET /api/v1/charts/bar?group=topic&value=intensity.
func (h *ChartHandler) Bar(c *gin.Context) {
	group, err := models.ParseField(c.DefaultQuery("group", string(models.FieldTopic)))
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	value, err := models.ParseNumericField(c.DefaultQuery("value", string(models.FieldIntensity)))
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	s := h.ctrl.Snapshot()
	bars := aggregate.SumBy(s.Records, group, value)

	c.JSON(http.StatusOK, gin.H{"bars": bars, "total": aggregate.Total(bars), "applied_seq": s.AppliedSeq})
}

// Scatter handles GET /api/v1/charts/scatter?x=intensity&y=likelihood&weight=relevance.
func (h *ChartHandler) Scatter(c *gin.Context) {
	axes := map[string]string{
		"x":      string(models.FieldIntensity),
		"y":      string(models.FieldLikelihood),
		"weight": string(models.FieldRelevance),
	}

	fields := make(map[string]models.Field, len(axes))
	for param, def := range axes {
		f, err := models.ParseNumericField(c.DefaultQuery(param, def))
		if err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, param+": "+err.Error())
			return
		}
		fields[param] = f
	}

	s := h.ctrl.Snapshot()
	points := aggregate.Scatter(s.Records, fields["x"], fields["y"], fields["weight"])

	c.JSON(http.StatusOK, gin.H{"points": points, "applied_seq": s.AppliedSeq})
}

// Geo handles GET /api/v1/charts/geo.
func (h *ChartHandler) Geo(c *gin.Context) {
	s := h.ctrl.Snapshot()
	series := aggregate.GeoMean(s.Records, h.rec)

	if len(series.Unmatched) > 0 {
		h.log.WithField("labels", series.Unmatched).Debug("country labels without a map shape")
	}

	c.JSON(http.StatusOK, series)
}
