package handler

import (
	"strconv"
	"strings"
	"time"

	"LiveDock/internal/middleware/jwt"
	"LiveDock/internal/modules/reception/application/dto/request"
	"LiveDock/internal/modules/reception/application/service"
	"LiveDock/pkg/back"
	"LiveDock/pkg/xerr"
	"LiveDock/pkg/zlog"

	"github.com/gin-gonic/gin"
)

type ReceptionHandler struct {
	svc service.ReceptionService
}

func NewReceptionHandler(svc service.ReceptionService) *ReceptionHandler {
	return &ReceptionHandler{svc: svc}
}

func (h *ReceptionHandler) Create(c *gin.Context) {
	var req request.CreateProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}

	data, err := h.svc.Create(c.Request.Context(), req, jwt.CurrentUser(c))
	back.Result(c, data, err)
}

func (h *ReceptionHandler) ChangeStatus(c *gin.Context) {
	var req request.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}

	data, err := h.svc.Advance(c.Request.Context(), req, jwt.CurrentUser(c))
	back.Result(c, data, err)
}

// NotifyMetric 由通知回调，只校验 app key
func (h *ReceptionHandler) NotifyMetric(c *gin.Context) {
	var req request.NotifyMetricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}

	data, err := h.svc.RecordNotificationMetric(c.Request.Context(), req)
	if err == nil && data.Action != nil {
		back.Success(c, data.Action)
		return
	}
	if err == nil {
		back.Success(c, data.Process)
		return
	}
	back.Result(c, nil, err)
}

func (h *ReceptionHandler) FindAll(c *gin.Context) {
	startDate, err := parseStartDate(c)
	if err != nil {
		back.Result(c, nil, err)
		return
	}

	data, err := h.svc.FindAll(c.Request.Context(), startDate)
	back.Result(c, data, err)
}

func (h *ReceptionHandler) FindPriorityAlerts(c *gin.Context) {
	startDate, err := parseStartDate(c)
	if err != nil {
		back.Result(c, nil, err)
		return
	}

	data, err := h.svc.FindPriorityAlerts(c.Request.Context(), jwt.CurrentUserRole(c), startDate)
	back.Result(c, data, err)
}

func (h *ReceptionHandler) FindOne(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		back.Error(c, xerr.BadRequest, "Validation failed (numeric string is expected)")
		return
	}

	data, err := h.svc.FindOne(c.Request.Context(), id)
	back.Result(c, data, err)
}

// parseStartDate 接受 RFC3339 或 2006-01-02，空值不过滤
func parseStartDate(c *gin.Context) (*time.Time, error) {
	var q request.FindQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return nil, xerr.ErrParam
	}
	raw := strings.TrimSpace(q.StartDate)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, xerr.BadRequestf("startDate must be an ISO 8601 date")
}
